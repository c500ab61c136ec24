package commands

import (
	"github.com/spf13/cobra"

	"github.com/openclinic/clinicdesk/pkg/stores"
)

func newInvoicesCommand(version string) *cobra.Command {
	return recordCommands[*stores.Invoice, *stores.InvoiceListing, stores.InvoiceInput]{
		use:   "invoices",
		short: "Manage invoices",
		bindFlags: func(cmd *cobra.Command) {
			f := cmd.Flags()
			f.Int64("patient-id", 0, "patient id (required)")
			f.Int64("doctor-id", 0, "doctor id")
			f.Float64("amount", 0, "amount (required)")
			f.String("issued-on", "", "issue date")
			f.String("description", "", "line description")
		},
		input: func(cmd *cobra.Command) stores.InvoiceInput {
			return stores.InvoiceInput{
				PatientID:   optInt64(cmd, "patient-id"),
				DoctorID:    optInt64(cmd, "doctor-id"),
				Amount:      optFloat64(cmd, "amount"),
				IssuedOn:    optString(cmd, "issued-on"),
				Description: optString(cmd, "description"),
			}
		},
		list:   stores.Store.ListInvoices,
		get:    stores.Store.GetInvoice,
		create: stores.Store.CreateInvoice,
		update: stores.Store.UpdateInvoice,
		remove: stores.Store.DeleteInvoice,
	}.command(version)
}
