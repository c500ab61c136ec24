package commands

import (
	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/stores"
)

func newAppointmentsCommand(version string) *cobra.Command {
	return recordCommands[*stores.Appointment, *stores.AppointmentListing, stores.AppointmentInput]{
		use:   "appointments",
		short: "Manage appointments",
		bindFlags: func(cmd *cobra.Command) {
			f := cmd.Flags()
			f.Int64("patient-id", 0, "patient id (required)")
			f.Int64("doctor-id", 0, "doctor id (required)")
			f.String("scheduled-at", "", "date and time of the visit (required)")
			f.String("reason", "", "reason for the visit")
			f.String("status", "", `status; create defaults to "scheduled"`)
		},
		input: func(cmd *cobra.Command) stores.AppointmentInput {
			return stores.AppointmentInput{
				PatientID:   optInt64(cmd, "patient-id"),
				DoctorID:    optInt64(cmd, "doctor-id"),
				ScheduledAt: optString(cmd, "scheduled-at"),
				Reason:      optString(cmd, "reason"),
				Status:      optString(cmd, "status"),
			}
		},
		list:   stores.Store.ListAppointments,
		get:    stores.Store.GetAppointment,
		create: stores.Store.CreateAppointment,
		update: stores.Store.UpdateAppointment,
		remove: stores.Store.DeleteAppointment,
	}.command(version)
}
