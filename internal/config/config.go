// Package config provides structures and utilities for managing the pipeline
// configuration. All business thresholds used by the stages live here so that
// stage logic carries no hard-coded values.
package config

// EmbeddedConfig holds the content of the configuration file, typically embedded
// into the binary and passed from main.go.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "America/New_York").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// CleaningConfig holds the outlier thresholds applied by the cleaning stage.
type CleaningConfig struct {
	// MaxDurationHours is the ceiling above which a trip duration is implausible.
	MaxDurationHours float64 `yaml:"max_duration_hours"`
	// MaxFareAmount is the largest plausible fare in dollars.
	MaxFareAmount float64 `yaml:"max_fare_amount"`
	// MinFlagFare is the initial meter drop; a zero-distance trip charging more
	// than this signals a meter error.
	MinFlagFare float64 `yaml:"min_flag_fare"`
	// MaxSpeedMPH is the clamp applied to average speed when a near-zero
	// duration would blow up the division.
	MaxSpeedMPH float64 `yaml:"max_speed_mph"`
}

// WeatherConfig holds the thresholds and matching rules for the weather join.
type WeatherConfig struct {
	// ColdThresholdC is the temperature (Celsius) below which a trip is flagged cold.
	ColdThresholdC float64 `yaml:"cold_threshold_c"`
	// HotThresholdC is the temperature (Celsius) above which a trip is flagged hot.
	HotThresholdC float64 `yaml:"hot_threshold_c"`
	// MatchWindowHours bounds how far back the nearest-prior-hour match may reach.
	MatchWindowHours int `yaml:"match_window_hours"`
}

// RushHoursConfig defines the hour-of-day buckets used by the hourly rollup.
type RushHoursConfig struct {
	// MorningRush lists the hours (0-23) bucketed as morning_rush.
	MorningRush []int `yaml:"morning_rush"`
	// EveningRush lists the hours bucketed as evening_rush.
	EveningRush []int `yaml:"evening_rush"`
	// Night lists the hours bucketed as night.
	Night []int `yaml:"night"`
}

// PipelineConfig holds the settings of the transformation pipeline itself.
type PipelineConfig struct {
	// Workers is the number of date partitions processed concurrently.
	Workers int `yaml:"workers"`
	// TripTable, etc. name the lake tables written by each tier.
	TripTable     string `yaml:"trip_table"`
	EnrichedTable string `yaml:"enriched_table"`
	// RollupPrefix prefixes the per-rollup table names.
	RollupPrefix string `yaml:"rollup_prefix"`
	// Cleaning holds the outlier thresholds.
	Cleaning CleaningConfig `yaml:"cleaning"`
	// Weather holds the weather join settings.
	Weather WeatherConfig `yaml:"weather"`
	// RushHours holds the hour-of-day bucket boundaries.
	RushHours RushHoursConfig `yaml:"rush_hours"`
}

// LakeConfig holds the settings of the partitioned table store.
type LakeConfig struct {
	// StorageRef names the storage connection backing the lake.
	StorageRef string `yaml:"storage_ref"`
	// Bucket is the bucket (or local base directory key) holding lake tables.
	Bucket string `yaml:"bucket"`
	// CompressionType is the parquet compression codec ("SNAPPY", "GZIP", "NONE").
	CompressionType string `yaml:"compression_type"`
}

// SourcesConfig names the raw input locations read by the ingestion step.
type SourcesConfig struct {
	// TripPrefix is the object prefix holding raw monthly trip parquet files.
	TripPrefix string `yaml:"trip_prefix"`
	// ZoneObject is the object name of the zone lookup CSV.
	ZoneObject string `yaml:"zone_object"`
	// WeatherObject is the object name of the hourly weather CSV.
	WeatherObject string `yaml:"weather_object"`
}

// TelemetryConfig holds tracing configuration.
type TelemetryConfig struct {
	// Enabled toggles span export entirely.
	Enabled bool `yaml:"enabled"`
	// Protocol selects the OTLP transport, "grpc" or "http".
	Protocol string `yaml:"protocol"`
	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS on the exporter connection.
	Insecure bool `yaml:"insecure"`
}

// MetricsConfig holds the metrics exposition settings.
type MetricsConfig struct {
	// Enabled toggles the Prometheus recorder; a no-op recorder is used otherwise.
	Enabled bool `yaml:"enabled"`
	// ListenAddr is the address serving the /metrics endpoint (empty disables the listener).
	ListenAddr string `yaml:"listen_addr"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// MetadataDBRef is the name of the database connection used by the run repository.
	MetadataDBRef string `yaml:"metadata_db_ref"`
}

// PlatformConfig holds all configuration under the "platform" top-level key.
type PlatformConfig struct {
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Pipeline contains the transformation pipeline settings.
	Pipeline PipelineConfig `yaml:"pipeline"`
	// Lake contains the table store settings.
	Lake LakeConfig `yaml:"lake"`
	// Sources names the raw input locations.
	Sources SourcesConfig `yaml:"sources"`
	// Telemetry contains tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Metrics contains metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// Databases holds raw per-connection database configurations, decoded on
	// demand with mapstructure.
	Databases map[string]interface{} `yaml:"database"`
	// Storages holds raw per-connection storage configurations.
	Storages map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Platform contains the top-level configuration of the analytics platform.
	Platform PlatformConfig `yaml:"platform"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Pipeline: PipelineConfig{
				Workers:       4,
				TripTable:     "bronze_trips",
				EnrichedTable: "silver_trips",
				RollupPrefix:  "gold_",
				Cleaning: CleaningConfig{
					MaxDurationHours: 24,
					MaxFareAmount:    1000,
					MinFlagFare:      3.0,
					MaxSpeedMPH:      120,
				},
				Weather: WeatherConfig{
					ColdThresholdC:   5,
					HotThresholdC:    28,
					MatchWindowHours: 3,
				},
				RushHours: RushHoursConfig{
					MorningRush: []int{7, 8, 9},
					EveningRush: []int{16, 17, 18, 19},
					Night:       []int{22, 23, 0, 1, 2, 3, 4, 5},
				},
			},
			Lake: LakeConfig{
				StorageRef:      "lake",
				Bucket:          "warehouse",
				CompressionType: "SNAPPY",
			},
			Sources: SourcesConfig{
				TripPrefix:    "raw/trips",
				ZoneObject:    "raw/taxi_zones.csv",
				WeatherObject: "raw/central_park_weather.csv",
			},
			Telemetry: TelemetryConfig{
				Enabled:  false,
				Protocol: "grpc",
				Endpoint: "localhost:4317",
				Insecure: true,
			},
			Metrics: MetricsConfig{
				Enabled: true,
			},
			Infrastructure: InfrastructureConfig{
				MetadataDBRef: "metadata",
			},
			Databases: map[string]interface{}{},
			Storages:  map[string]interface{}{},
		},
	}
}
