package playback

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/overlay"
	"github.com/harborwatch/harborwatch/internal/parser"
	"github.com/harborwatch/harborwatch/internal/registry"
	"github.com/harborwatch/harborwatch/internal/render"
)

func vesselRecord(ts string, lat, lon string, heading float64) string {
	return fmt.Sprintf(`{"timestamp":%q,"latitude":%q,"longitude":%q,"heading_degree":%v,"speed_in_knots":8.2,"water_depth":21.0,"gps_quality_indicator":"RTK","telnet_status":"Connected"}`,
		ts, lat, lon, heading)
}

func sensorRecord(raw string) string {
	return fmt.Sprintf(`{"sensor_id":"TG01","raw_data":%q,"received_at":"2024-03-05T14:30:02Z"}`, raw)
}

func newController(baseURL string) *Controller {
	return NewController(baseURL, parser.NewParser(slog.Default()), slog.Default())
}

type recordingSink struct {
	mu      sync.Mutex
	samples []core.HistorySample
	indexes []int
}

func (r *recordingSink) OnSample(_ string, s core.HistorySample, idx, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	r.indexes = append(r.indexes, idx)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func (r *recordingSink) indexSeq() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.indexes...)
}

func TestFetchVesselHistoryStreaming(t *testing.T) {
	// The endpoint streams comma-separated objects without brackets, in
	// chunks that split records mid-object.
	body := vesselRecord("2024-03-05T10:00:00Z", "1°13.1709°S", "104°7.2000°E", 90) + "," +
		vesselRecord("2024-03-05T10:00:10Z", "1°13.2000°S", "104°7.3000°E", 92) + "," +
		vesselRecord("2024-03-05T10:00:20Z", "1°13.3000°S", "104°7.4000°E", 94)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < len(body); i += 40 {
			end := i + 40
			if end > len(body) {
				end = len(body)
			}
			_, _ = w.Write([]byte(body[i:end]))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := newController(srv.URL)
	samples, err := c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 1, nil)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.True(t, samples[0].Time.Before(samples[1].Time))
	assert.True(t, samples[0].HasFix)
	assert.Equal(t, 90.0, samples[0].Heading)
	assert.Equal(t, "RTK", samples[0].GPSQuality)
	assert.Equal(t, core.StatusConnected, samples[0].Status)
}

func TestFetchVesselHistorySkipsMalformedRecords(t *testing.T) {
	body := vesselRecord("2024-03-05T10:00:00Z", "1°13.1709°S", "104°7.2000°E", 90) + "," +
		`{"timestamp":"garbage","latitude":"x","longitude":"y"}` + "," +
		vesselRecord("2024-03-05T10:00:20Z", "1°13.3000°S", "104°7.4000°E", 94)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	samples, err := c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestFetchVesselHistorySendsInterval(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(vesselRecord("2024-03-05T10:00:00Z", "1°13.1709°S", "104°7.2000°E", 90)))
	}))
	defer srv.Close()

	c := newController(srv.URL)

	_, err := c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 60, nil)
	require.NoError(t, err)
	assert.Equal(t, "60", query.Get("interval"))

	// Zero falls back to every-record sampling.
	_, err = c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", query.Get("interval"))
}

func TestFetchSensorHistoryOmitsInterval(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(sensorRecord("TIME:05/03/2024 10:00:00 UTC TIDE HEIGHT: +1.100") + "\n"))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	_, err := c.FetchSensorHistory(context.Background(), "TG01",
		time.Now().Add(-time.Hour), time.Now(), nil)
	require.NoError(t, err)
	assert.False(t, query.Has("interval"), "sensor readings are not downsampled")
	assert.NotEmpty(t, query.Get("start"))
}

func TestFetchSensorHistoryNDJSON(t *testing.T) {
	body := sensorRecord("TIME:05/03/2024 10:00:00 UTC TIDE HEIGHT: +1.100") + "\n" +
		sensorRecord("STATUS:OK BATTERY:12.1V") + "\n" + // not a reading
		sensorRecord("TIME:05/03/2024 10:10:00 UTC TIDE HEIGHT: +1.150") + "\n" +
		"\n" +
		sensorRecord("TIME:05/03/2024 10:20:00 UTC TIDE HEIGHT: -0.020") + "\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	samples, err := c.FetchSensorHistory(context.Background(), "TG01",
		time.Now().Add(-time.Hour), time.Now(), nil)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.InDelta(t, 1.1, samples[0].TideHeight, 1e-9)
	assert.InDelta(t, -0.02, samples[2].TideHeight, 1e-9)
	assert.False(t, samples[0].HasFix)
}

func TestFetchSurfacesServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"history store unavailable"}`))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	_, err := c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 1, nil)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Contains(t, fe.Error(), "history store unavailable")
	assert.ErrorIs(t, c.LastError(), err)
}

func TestLastErrorClearedOnSuccess(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(vesselRecord("2024-03-05T10:00:00Z", "1°13.1709°S", "104°7.2000°E", 90)))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	_, err := c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 1, nil)
	require.Error(t, err)
	require.Error(t, c.LastError())

	fail = false
	_, err = c.FetchVesselHistory(context.Background(), "ABC123",
		time.Now().Add(-time.Hour), time.Now(), 1, nil)
	require.NoError(t, err)
	assert.NoError(t, c.LastError())
}

func sessionSamples(n int) []core.HistorySample {
	samples := make([]core.HistorySample, n)
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	for i := range samples {
		samples[i] = core.HistorySample{
			Time:     base.Add(time.Duration(i) * 10 * time.Second),
			Position: geo.LonLat{Lon: 104 + float64(i)/100, Lat: 1 + float64(i)/100},
			HasFix:   true,
			Status:   core.StatusConnected,
		}
	}
	return samples
}

func TestSessionSeek(t *testing.T) {
	samples := sessionSamples(3)
	sink := &recordingSink{}
	s, err := newSession(SessionConfig{Identity: "TG01", Sink: sink}, samples)
	require.NoError(t, err)
	defer s.Close()

	s.Seek(0.5)
	assert.Equal(t, 1, s.Index(), "seek to midpoint of 3 records lands on index 1")
	assert.InDelta(t, 0.5, s.Progress(), 1e-9)

	s.Seek(1)
	assert.Equal(t, 2, s.Index())

	s.Seek(0)
	assert.Equal(t, 0, s.Index())
}

func TestSessionPlaysThroughAndResets(t *testing.T) {
	samples := sessionSamples(4)
	sink := &recordingSink{}
	s, err := newSession(SessionConfig{
		Identity: "ABC123",
		Sink:     sink,
		TickBase: 5 * time.Millisecond,
	}, samples)
	require.NoError(t, err)
	defer s.Close()

	s.Play()
	require.Eventually(t, func() bool { return !s.Playing() },
		time.Second, 2*time.Millisecond, "session must stop at the final record")

	assert.Equal(t, 0, s.Index(), "index rewinds to the start after the final record")
	// Session open applied record 0 and each tick applied exactly one
	// record after it, never re-rendering the current one.
	assert.Equal(t, []int{0, 1, 2, 3}, sink.indexSeq())
}

func TestSessionResumesFromSeekWithoutReapply(t *testing.T) {
	samples := sessionSamples(4)
	sink := &recordingSink{}
	s, err := newSession(SessionConfig{
		Identity: "ABC123",
		Sink:     sink,
		TickBase: 5 * time.Millisecond,
	}, samples)
	require.NoError(t, err)
	defer s.Close()

	s.Seek(0.5) // index 1 of 4: floor(0.5 * 3)
	s.Play()
	require.Eventually(t, func() bool { return !s.Playing() },
		time.Second, 2*time.Millisecond)

	// Open rendered 0, the seek rendered 1, and the first tick moved
	// straight to 2.
	assert.Equal(t, []int{0, 1, 2, 3}, sink.indexSeq())
}

func TestSessionToggleAndSpeedClamp(t *testing.T) {
	s, err := newSession(SessionConfig{
		Identity: "ABC123",
		TickBase: time.Hour, // never ticks during the test
	}, sessionSamples(3))
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Toggle())
	assert.True(t, s.Playing())
	assert.False(t, s.Toggle())
	assert.False(t, s.Playing())

	s.SetSpeed(0)
	assert.Equal(t, 1.0, s.Speed())
	s.SetSpeed(99)
	assert.Equal(t, 10.0, s.Speed())
	s.SetSpeed(4)
	assert.Equal(t, 4.0, s.Speed())
}

func TestVesselSessionSuspendsLiveUpdates(t *testing.T) {
	canvas := render.NewHeadless(geom.XY{}, 12)
	reg := registry.New()
	track := overlay.NewTrack(canvas)

	body := vesselRecord("2024-03-05T10:00:00Z", "1°13.1709°S", "104°7.2000°E", 90) + "," +
		vesselRecord("2024-03-05T10:00:10Z", "1°13.2000°S", "104°7.3000°E", 92)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newController(srv.URL)
	s, err := c.OpenVesselSession(context.Background(), SessionConfig{
		Identity: "ABC123",
		Registry: reg,
		Track:    track,
	}, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)

	assert.True(t, reg.Suspended("ABC123"), "open session must shield the entity from the feed")
	assert.Greater(t, track.SegmentCount(), 0, "track drawn from fetched samples")

	s.Close()
	assert.False(t, reg.Suspended("ABC123"), "closing the session lifts the suspension")
	assert.Equal(t, 0, track.SegmentCount())
}

func TestOpenSessionEmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// empty body: no records in window
	}))
	defer srv.Close()

	c := newController(srv.URL)
	_, err := c.OpenVesselSession(context.Background(), SessionConfig{Identity: "ABC123"},
		time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrNoRecords)
}
