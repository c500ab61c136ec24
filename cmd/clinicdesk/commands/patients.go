package commands

import (
	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/stores"
)

func newPatientsCommand(version string) *cobra.Command {
	return recordCommands[*stores.Patient, *stores.Patient, stores.PatientInput]{
		use:   "patients",
		short: "Manage patient records",
		bindFlags: func(cmd *cobra.Command) {
			f := cmd.Flags()
			f.String("first-name", "", "first name (required)")
			f.String("last-name", "", "last name (required)")
			f.String("dob", "", "date of birth")
			f.String("phone", "", "phone number")
			f.String("email", "", "email address")
			f.String("address", "", "postal address")
			f.Int64("age", 0, "age in years")
			f.String("gender", "", "gender")
		},
		input: func(cmd *cobra.Command) stores.PatientInput {
			return stores.PatientInput{
				FirstName: optString(cmd, "first-name"),
				LastName:  optString(cmd, "last-name"),
				DOB:       optString(cmd, "dob"),
				Phone:     optString(cmd, "phone"),
				Email:     optString(cmd, "email"),
				Address:   optString(cmd, "address"),
				Age:       optInt64(cmd, "age"),
				Gender:    optString(cmd, "gender"),
			}
		},
		list:   stores.Store.ListPatients,
		get:    stores.Store.GetPatient,
		create: stores.Store.CreatePatient,
		update: stores.Store.UpdatePatient,
		remove: stores.Store.DeletePatient,
	}.command(version)
}
