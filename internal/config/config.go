// Package config loads the mapmotion configuration file and exposes typed
// sections. Engine parameters are validated separately and fatally by
// engine.Config; this package only reads and shapes the file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	Sqlite    SqliteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SqliteConfig holds settings for the embedded SQLite recorder.
type SqliteConfig struct {
	DumpPath       string `json:"dumpPath" mapstructure:"dumpPath"`
	DumpIntervalMs int    `json:"dumpIntervalMs" mapstructure:"dumpIntervalMs"`
}

// WebsocketConfig holds settings for the streaming recorder.
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// EngineFileConfig mirrors the engine section of the config file. It is
// converted to an engine.Config (and validated there) by the caller.
type EngineFileConfig struct {
	Backend    string `json:"backend" mapstructure:"backend"`
	DurationMs int    `json:"durationMs" mapstructure:"durationMs"`
	Curve      string `json:"curve" mapstructure:"curve"`
	FrameRate  int    `json:"frameRate" mapstructure:"frameRate"`
}

// Duration converts the configured leg duration to a time.Duration.
func (e EngineFileConfig) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

// Load reads configuration from the JSON config file in configDir and sets
// default values.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./mapmotionlogs")

	viper.SetDefault("engine.backend", "frame")
	viper.SetDefault("engine.durationMs", 1000)
	viper.SetDefault("engine.curve", "linear")
	viper.SetDefault("engine.frameRate", 0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpIntervalMs", 0)
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "mapmotion")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "mapmotion-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "mapmotion")
	viper.SetDefault("otel.batchTimeoutMs", 5000)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetConfigName("mapmotion.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Engine returns the engine section of the loaded configuration.
func Engine() (EngineFileConfig, error) {
	var e EngineFileConfig
	if err := viper.UnmarshalKey("engine", &e); err != nil {
		return EngineFileConfig{}, fmt.Errorf("decoding engine config: %w", err)
	}
	return e, nil
}

// Storage returns the storage section of the loaded configuration.
func Storage() (StorageConfig, error) {
	var s StorageConfig
	if err := viper.UnmarshalKey("storage", &s); err != nil {
		return StorageConfig{}, fmt.Errorf("decoding storage config: %w", err)
	}
	return s, nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
