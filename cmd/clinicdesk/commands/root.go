package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	dbPath       string
	verbose      bool
	printMetrics bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clinicdesk",
		Short: "clinicdesk - clinic records on SQLite",
		Long: `clinicdesk manages the patients, doctors, appointments and invoices of a
small clinic in a single SQLite database file.

Every command migrates the database before running, so a new file is
created and an old one upgraded automatically. Results are printed as JSON.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&printMetrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	rootCmd.AddCommand(newInitCommand(version))
	rootCmd.AddCommand(newPurgeCommand(version))
	rootCmd.AddCommand(newPatientsCommand(version))
	rootCmd.AddCommand(newDoctorsCommand(version))
	rootCmd.AddCommand(newAppointmentsCommand(version))
	rootCmd.AddCommand(newInvoicesCommand(version))
	rootCmd.AddCommand(newReportCommand(version))

	return rootCmd
}
