package commands

import (
	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/stores"
)

func newDoctorsCommand(version string) *cobra.Command {
	return recordCommands[*stores.Doctor, *stores.Doctor, stores.DoctorInput]{
		use:   "doctors",
		short: "Manage doctor records",
		bindFlags: func(cmd *cobra.Command) {
			f := cmd.Flags()
			f.String("name", "", "display name (required)")
			f.String("specialty", "", "medical specialty")
			f.String("phone", "", "phone number")
			f.String("email", "", "email address")
			f.String("schedule", "", `availability, e.g. "MON-SAT"`)
		},
		input: func(cmd *cobra.Command) stores.DoctorInput {
			return stores.DoctorInput{
				Name:      optString(cmd, "name"),
				Specialty: optString(cmd, "specialty"),
				Phone:     optString(cmd, "phone"),
				Email:     optString(cmd, "email"),
				Schedule:  optString(cmd, "schedule"),
			}
		},
		list:   stores.Store.ListDoctors,
		get:    stores.Store.GetDoctor,
		create: stores.Store.CreateDoctor,
		update: stores.Store.UpdateDoctor,
		remove: stores.Store.DeleteDoctor,
	}.command(version)
}
