package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/config"
	"github.com/openclinic/clinicdesk/pkg/stores"
	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

// session is an opened, migrated store plus the telemetry around it.
type session struct {
	ctx       context.Context
	store     *stores.SQLiteStore
	tel       *telemetry.Telemetry
	migration *stores.MigrationReport
}

// openSession loads configuration, starts telemetry, opens the database and
// migrates it.
func openSession(cmd *cobra.Command, version string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}

	tel, err := telemetry.NewTelemetry(cfg.TelemetryConfig(version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	ctx := tel.WithContext(cmd.Context())

	store, err := stores.NewSQLiteStore(cfg.StoreConfig())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Init(ctx); err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	report, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &session{
		ctx:       ctx,
		store:     store,
		tel:       tel,
		migration: report,
	}, nil
}

// Close closes the store, optionally dumps metrics, and flushes telemetry.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}

	if printMetrics {
		if err := s.tel.Metrics.WriteText(os.Stderr); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// withSession opens a session, runs fn and prints its result as JSON.
func withSession(version string, fn func(cmd *cobra.Command, args []string, s *session) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, version)
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := fn(cmd, args, s)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", arg)
	}
	return id, nil
}

// optString returns the flag value when it was given on the command line and
// nil otherwise, so unset fields are stored as NULL.
func optString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func optInt64(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(name)
	return &v
}

func optFloat64(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}
