package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/openclinic/clinicdesk/pkg/stores"
	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: CLINICDESK_DATABASE__PATH sets database.path.
const EnvPrefix = "CLINICDESK_"

// Config is the root clinicdesk configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database" koanf:"database" validate:"required"`
	Telemetry TelemetryConfig `yaml:"telemetry" koanf:"telemetry" validate:"required"`
}

// DatabaseConfig configures the SQLite record store.
type DatabaseConfig struct {
	Path            string        `yaml:"path" koanf:"path" validate:"required"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" koanf:"busy_timeout" validate:"gte=0"`
	MaxOpenConns    int           `yaml:"max_open_conns" koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" koanf:"conn_max_lifetime" validate:"gte=0"`

	// PurgeDemoData removes demo patients and doctors during migration.
	PurgeDemoData bool `yaml:"purge_demo_data" koanf:"purge_demo_data"`
}

// TelemetryConfig selects logging, tracing, metrics and event options.
type TelemetryConfig struct {
	Environment string `yaml:"environment" koanf:"environment"`

	LogLevel  string `yaml:"log_level" koanf:"log_level" validate:"oneof=trace debug info warn error fatal"`
	LogFormat string `yaml:"log_format" koanf:"log_format" validate:"oneof=console json"`
	LogOutput string `yaml:"log_output" koanf:"log_output"`

	TraceExporter string  `yaml:"trace_exporter" koanf:"trace_exporter" validate:"oneof=none stdout otlp"`
	TraceEndpoint string  `yaml:"trace_endpoint" koanf:"trace_endpoint" validate:"required_if=TraceExporter otlp"`
	SamplingRate  float64 `yaml:"sampling_rate" koanf:"sampling_rate" validate:"gte=0,lte=1"`

	MetricsEnabled   bool   `yaml:"metrics_enabled" koanf:"metrics_enabled"`
	MetricsNamespace string `yaml:"metrics_namespace" koanf:"metrics_namespace"`

	EventsEnabled bool `yaml:"events_enabled" koanf:"events_enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "clinic.db",
			BusyTimeout:     30 * time.Second,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
			PurgeDemoData:   true,
		},
		Telemetry: TelemetryConfig{
			Environment:      "development",
			LogLevel:         "info",
			LogFormat:        "console",
			LogOutput:        "stderr",
			TraceExporter:    "none",
			SamplingRate:     1.0,
			MetricsEnabled:   true,
			MetricsNamespace: "clinicdesk",
			EventsEnabled:    true,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then CLINICDESK_ environment variables. A .env
// file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return nil
}

func loadEnv(cfg *Config) error {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return nil
}

// Validate checks the struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// StoreConfig converts the database section for stores.NewSQLiteStore.
func (c *Config) StoreConfig() stores.Config {
	return stores.Config{
		Path:            c.Database.Path,
		BusyTimeout:     c.Database.BusyTimeout,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		SkipDemoPurge:   !c.Database.PurgeDemoData,
	}
}

// TelemetryConfig converts the telemetry section for telemetry.NewTelemetry.
func (c *Config) TelemetryConfig(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if version != "" {
		tc.ServiceVersion = version
	}
	if c.Telemetry.Environment != "" {
		tc.Environment = c.Telemetry.Environment
	}

	tc.Logging.Level = c.Telemetry.LogLevel
	tc.Logging.Format = c.Telemetry.LogFormat
	if c.Telemetry.LogOutput != "" {
		tc.Logging.Output = c.Telemetry.LogOutput
	}

	tc.Tracing.Exporter = c.Telemetry.TraceExporter
	tc.Tracing.Endpoint = c.Telemetry.TraceEndpoint
	tc.Tracing.SamplingRate = c.Telemetry.SamplingRate

	tc.Metrics.Enabled = c.Telemetry.MetricsEnabled
	if c.Telemetry.MetricsNamespace != "" {
		tc.Metrics.Namespace = c.Telemetry.MetricsNamespace
	}

	tc.Events.Enabled = c.Telemetry.EventsEnabled
	return tc
}
