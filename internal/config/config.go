// Package config loads the engine's JSON configuration via viper and exposes
// typed accessors.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from the JSON file in configDir and sets default
// values. Every key has a default; a missing file is an error, a sparse one
// is not.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("feed.transport", "websocket")
	viper.SetDefault("feed.url", "ws://localhost:8080/stream")
	viper.SetDefault("feed.reconnectDelaySeconds", 1)

	viper.SetDefault("mqtt.broker", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.topic", "telemetry/#")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.useTLS", false)

	viper.SetDefault("history.baseUrl", "http://localhost:8080")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "harborwatch")
	viper.SetDefault("influx.bucket", "telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("map.centerLon", 104.12)
	viper.SetDefault("map.centerLat", 1.22)
	viper.SetDefault("map.zoom", 12)

	viper.SetDefault("export.outputDir", "./exports")

	viper.SetConfigName("harborwatch.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
