package commands

import (
	"github.com/spf13/cobra"
)

func newReportCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the appointment report",
		Long: `Print every appointment whose patient and doctor both still exist, joined
with their contact details, newest appointment first.`,
		Args: cobra.NoArgs,
		RunE: withSession(version, func(cmd *cobra.Command, _ []string, s *session) (any, error) {
			return s.store.AppointmentReport(s.ctx)
		}),
	}
}
