package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInitCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the clinic database",
		Long: `Create the database file if needed, bring its schema up to date and
remove demo seed rows. Prints what the migration changed.`,
		Args: cobra.NoArgs,
		RunE: withSession(version, func(cmd *cobra.Command, _ []string, s *session) (any, error) {
			log.Info().
				Str("path", s.store.Path()).
				Strs("added_columns", s.migration.AddedColumns).
				Msg("Database ready")
			return s.migration, nil
		}),
	}
}

func newPurgeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-demo",
		Short: "Remove demo seed rows",
		Long: `Delete patients and doctors left behind by demo seeding: names containing
"Test" and the doctor "Dr. Who". Runs even when startup purging is disabled.`,
		Args: cobra.NoArgs,
		RunE: withSession(version, func(cmd *cobra.Command, _ []string, s *session) (any, error) {
			return s.store.PurgeDemoData(s.ctx)
		}),
	}
}
