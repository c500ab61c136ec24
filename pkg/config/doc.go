// Package config loads clinicdesk configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with CLINICDESK_. A .env file in the working
// directory is read into the environment at startup. Nested keys use a double
// underscore in variable names:
//
//	database:
//	  path: /var/lib/clinicdesk/clinic.db
//	  busy_timeout: 30s
//	  purge_demo_data: true
//	telemetry:
//	  log_level: info
//	  trace_exporter: none
//
//	CLINICDESK_DATABASE__PATH=/tmp/clinic.db
//	CLINICDESK_TELEMETRY__LOG_LEVEL=debug
//
// The loaded Config is validated with go-playground/validator struct tags and
// converted to store and telemetry settings with StoreConfig and
// TelemetryConfig.
package config
