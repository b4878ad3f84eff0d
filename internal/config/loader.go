package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "config"

// LoadConfig loads configuration from the embedded YAML and environment
// variables. Precedence, lowest to highest: struct defaults, embedded YAML
// (with ${VAR} placeholders expanded), environment variables.
// This function is expected to be called only once during application startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	expander := NewOsEnvironmentExpander()
	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to expand environment placeholders in embedded config", err, false, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	var toggles yamlToggles
	if err := yaml.Unmarshal(expanded, &toggles); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	mergeConfig(cfg, &yamlConfig, &toggles)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// yamlToggles re-reads the boolean switches through pointers. A plain bool
// cannot distinguish an omitted key from an explicit false, so the merge
// consults these to decide whether the YAML actually set a toggle.
type yamlToggles struct {
	Platform struct {
		Telemetry struct {
			Enabled  *bool `yaml:"enabled"`
			Insecure *bool `yaml:"insecure"`
		} `yaml:"telemetry"`
		Metrics struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"metrics"`
	} `yaml:"platform"`
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Non-zero values in sourceConfig overwrite the corresponding defaults;
// boolean toggles overwrite only when present in the YAML document.
func mergeConfig(destConfig, sourceConfig *Config, toggles *yamlToggles) {
	dest, source := &destConfig.Platform, &sourceConfig.Platform

	if source.System.Timezone != "" {
		dest.System.Timezone = source.System.Timezone
	}
	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}

	mergePipelineConfig(&dest.Pipeline, &source.Pipeline)

	if source.Lake.StorageRef != "" {
		dest.Lake.StorageRef = source.Lake.StorageRef
	}
	if source.Lake.Bucket != "" {
		dest.Lake.Bucket = source.Lake.Bucket
	}
	if source.Lake.CompressionType != "" {
		dest.Lake.CompressionType = source.Lake.CompressionType
	}

	if source.Sources.TripPrefix != "" {
		dest.Sources.TripPrefix = source.Sources.TripPrefix
	}
	if source.Sources.ZoneObject != "" {
		dest.Sources.ZoneObject = source.Sources.ZoneObject
	}
	if source.Sources.WeatherObject != "" {
		dest.Sources.WeatherObject = source.Sources.WeatherObject
	}

	if source.Telemetry.Protocol != "" {
		dest.Telemetry.Protocol = source.Telemetry.Protocol
	}
	if source.Telemetry.Endpoint != "" {
		dest.Telemetry.Endpoint = source.Telemetry.Endpoint
	}
	if toggles.Platform.Telemetry.Enabled != nil {
		dest.Telemetry.Enabled = *toggles.Platform.Telemetry.Enabled
	}
	if toggles.Platform.Telemetry.Insecure != nil {
		dest.Telemetry.Insecure = *toggles.Platform.Telemetry.Insecure
	}

	if toggles.Platform.Metrics.Enabled != nil {
		dest.Metrics.Enabled = *toggles.Platform.Metrics.Enabled
	}
	if source.Metrics.ListenAddr != "" {
		dest.Metrics.ListenAddr = source.Metrics.ListenAddr
	}

	if source.Infrastructure.MetadataDBRef != "" {
		dest.Infrastructure.MetadataDBRef = source.Infrastructure.MetadataDBRef
	}

	if source.Databases != nil {
		if dest.Databases == nil {
			dest.Databases = make(map[string]interface{})
		}
		for key, value := range source.Databases {
			dest.Databases[key] = value
		}
	}
	if source.Storages != nil {
		if dest.Storages == nil {
			dest.Storages = make(map[string]interface{})
		}
		for key, value := range source.Storages {
			dest.Storages[key] = value
		}
	}
}

// mergePipelineConfig merges source into dest, keeping defaults for zero values.
func mergePipelineConfig(dest, source *PipelineConfig) {
	if source.Workers != 0 {
		dest.Workers = source.Workers
	}
	if source.TripTable != "" {
		dest.TripTable = source.TripTable
	}
	if source.EnrichedTable != "" {
		dest.EnrichedTable = source.EnrichedTable
	}
	if source.RollupPrefix != "" {
		dest.RollupPrefix = source.RollupPrefix
	}
	if source.Cleaning.MaxDurationHours != 0 {
		dest.Cleaning.MaxDurationHours = source.Cleaning.MaxDurationHours
	}
	if source.Cleaning.MaxFareAmount != 0 {
		dest.Cleaning.MaxFareAmount = source.Cleaning.MaxFareAmount
	}
	if source.Cleaning.MinFlagFare != 0 {
		dest.Cleaning.MinFlagFare = source.Cleaning.MinFlagFare
	}
	if source.Cleaning.MaxSpeedMPH != 0 {
		dest.Cleaning.MaxSpeedMPH = source.Cleaning.MaxSpeedMPH
	}
	if source.Weather.ColdThresholdC != 0 {
		dest.Weather.ColdThresholdC = source.Weather.ColdThresholdC
	}
	if source.Weather.HotThresholdC != 0 {
		dest.Weather.HotThresholdC = source.Weather.HotThresholdC
	}
	if source.Weather.MatchWindowHours != 0 {
		dest.Weather.MatchWindowHours = source.Weather.MatchWindowHours
	}
	if source.RushHours.MorningRush != nil {
		dest.RushHours.MorningRush = source.RushHours.MorningRush
	}
	if source.RushHours.EveningRush != nil {
		dest.RushHours.EveningRush = source.RushHours.EveningRush
	}
	if source.RushHours.Night != nil {
		dest.RushHours.Night = source.RushHours.Night
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables. The "yaml" tag determines the variable name: nested
// struct tags are joined with underscores and upper-cased, so
// `platform.pipeline.workers` becomes PLATFORM_PIPELINE_WORKERS.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setFieldFromString(field, envValue); err != nil {
			return exception.NewPipelineError(moduleName, "invalid environment override "+envVarName, err, false, false)
		}
		logger.Debugf("Config field %s overridden from environment variable %s.", fieldType.Name, envVarName)
	}
	return nil
}

// setFieldFromString converts an environment variable string to the field's type.
func setFieldFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Int {
			parts := strings.Split(value, ",")
			ints := make([]int, 0, len(parts))
			for _, p := range parts {
				n, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil {
					return err
				}
				ints = append(ints, n)
			}
			field.Set(reflect.ValueOf(ints))
		}
	}
	return nil
}
