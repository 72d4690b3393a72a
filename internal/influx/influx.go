// Package influx records accepted telemetry samples to InfluxDB so operators
// can chart vessel movement and tide curves outside the live map.
package influx

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/harborwatch/harborwatch/internal/model/core"
)

// Recorder writes telemetry points to a single bucket using the client's
// buffered async write API.
type Recorder struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	bucket string
	logger zerolog.Logger
}

// Connect creates a recorder from viper config and validates the connection
// with a ping. Disabled or unreachable Influx returns an error; the caller
// runs without recording.
func Connect(ctx context.Context, logger zerolog.Logger) (*Recorder, error) {
	if !viper.GetBool("influx.enabled") {
		return nil, errors.New("influx.enabled is false")
	}

	client := influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		return nil, fmt.Errorf("influxdb unreachable: %v", err)
	}

	bucket := viper.GetString("influx.bucket")
	r := &Recorder{
		client: client,
		writer: client.WriteAPI(viper.GetString("influx.org"), bucket),
		bucket: bucket,
		logger: logger,
	}

	errorsCh := r.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			r.logger.Error().Err(writeErr).Str("bucket", bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()

	r.logger.Info().Str("bucket", bucket).Msg("InfluxDB recorder initialized")
	return r, nil
}

// RecordVesselTelemetry writes one accepted vessel sample.
func (r *Recorder) RecordVesselTelemetry(identity string, st core.EntityState) {
	p := influxdb2_write.NewPointWithMeasurement("vessel_telemetry").
		AddTag("call_sign", identity).
		AddTag("status", string(st.Status)).
		AddField("longitude", st.Position.Lon).
		AddField("latitude", st.Position.Lat).
		AddField("heading_degree", st.Heading).
		AddField("speed_in_knots", st.Speed).
		AddField("water_depth", st.WaterDepth).
		SetTime(st.LastUpdate)
	r.writer.WritePoint(p)
}

// RecordTideReading writes one parsed tide gauge reading.
func (r *Recorder) RecordTideReading(sensorID string, reading core.TideReading) {
	p := influxdb2_write.NewPointWithMeasurement("tide_reading").
		AddTag("sensor_id", sensorID).
		AddField("height_m", reading.Height).
		SetTime(reading.Time)
	r.writer.WritePoint(p)
}

// Close flushes buffered points and shuts the client down.
func (r *Recorder) Close() {
	r.writer.Flush()
	r.client.Close()
}
