// Package feed defines the wire types delivered by the live telemetry feed
// and the historical query endpoints.
package feed

// Envelope is one push message from the feed: a batch of vessel and sensor
// snapshots keyed by identity (call sign / sensor id).
type Envelope struct {
	Navigation map[string]VesselSnapshot `json:"navigation"`
	Sensors    map[string]SensorSnapshot `json:"sensors"`
}

// VesselSnapshot is the per-vessel entry of a feed batch.
type VesselSnapshot struct {
	CallSign  string          `json:"call_sign"`
	Vessel    VesselInfo      `json:"vessel"`
	Telemetry VesselTelemetry `json:"telemetry"`
}

// VesselInfo carries the static vessel attributes riding along with every
// snapshot. Width and length are real-world meters, used for icon scaling.
type VesselInfo struct {
	WidthM    float64 `json:"width_m"`
	LengthM   float64 `json:"length_m"`
	Flag      string  `json:"flag"`
	Class     string  `json:"kelas"`
	Builder   string  `json:"builder"`
	YearBuilt int     `json:"year_built"`
	MapImage  string  `json:"vessel_map_image"`
	Image     string  `json:"image"`
}

// VesselTelemetry is the dynamic part of a vessel snapshot.
type VesselTelemetry struct {
	LongitudeDecimal float64 `json:"longitude_decimal"`
	LatitudeDecimal  float64 `json:"latitude_decimal"`
	HeadingDegree    float64 `json:"heading_degree"`
	SpeedInKnots     float64 `json:"speed_in_knots"`
	WaterDepth       float64 `json:"water_depth"`
	GPSQuality       string  `json:"gps_quality_indicator"`
	TelnetStatus     string  `json:"telnet_status"`
	LastUpdate       string  `json:"last_update"`
}

// SensorSnapshot is the per-sensor entry of a feed batch. Coordinates arrive
// as strings and must be validated before use.
type SensorSnapshot struct {
	ID               string   `json:"id"`
	Types            []string `json:"types"`
	Latitude         string   `json:"latitude"`
	Longitude        string   `json:"longitude"`
	ConnectionStatus string   `json:"connection_status"`
	RawData          string   `json:"raw_data"`
	LastUpdate       string   `json:"last_update"`
}

// VesselHistoryRecord is one record of the vessel history stream. Latitude
// and longitude are DMS strings ("1°13.1709°S"), not decimal degrees.
type VesselHistoryRecord struct {
	Timestamp     string  `json:"timestamp"`
	Latitude      string  `json:"latitude"`
	Longitude     string  `json:"longitude"`
	HeadingDegree float64 `json:"heading_degree"`
	SpeedInKnots  float64 `json:"speed_in_knots"`
	WaterDepth    float64 `json:"water_depth"`
	GPSQuality    string  `json:"gps_quality_indicator"`
	TelnetStatus  string  `json:"telnet_status"`
	SeriesID      int64   `json:"series_id"`
}

// SensorHistoryRecord is one newline-delimited record of the sensor history
// stream. The interesting fields (reading time, tide height) are embedded in
// RawData and extracted by the parser package.
type SensorHistoryRecord struct {
	SensorID   string `json:"sensor_id"`
	RawData    string `json:"raw_data"`
	ReceivedAt string `json:"received_at"`
}

// ErrorBody is the JSON error payload of non-2xx history responses.
type ErrorBody struct {
	Message string `json:"message"`
}
