package stores

import (
	"context"
)

// AppointmentStatusScheduled is written when an appointment is created without a status.
const AppointmentStatusScheduled = "scheduled"

// DefaultDoctorSchedule is backfilled into doctors rows when the schedule column is first added.
const DefaultDoctorSchedule = "MON-SAT"

// Patient represents a row of the patients table
type Patient struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	DOB       *string `json:"dob"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	Age       *int64  `json:"age"` // nil when unset or not a whole number
	Gender    *string `json:"gender"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// PatientInput carries the caller-supplied columns of a patient.
// A nil field is written as NULL, on create and on update alike.
type PatientInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	DOB       *string `json:"dob"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	Age       *int64  `json:"age"`
	Gender    *string `json:"gender"`
}

// Doctor represents a row of the doctors table
type Doctor struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Specialty *string `json:"specialty"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Schedule  *string `json:"schedule"` // free-text availability, e.g. "MON-SAT"
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// DoctorInput carries the caller-supplied columns of a doctor.
type DoctorInput struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Schedule  *string `json:"schedule"`
}

// Appointment represents a row of the appointments table
type Appointment struct {
	ID          int64   `json:"id"`
	PatientID   int64   `json:"patient_id"`
	DoctorID    int64   `json:"doctor_id"`
	ScheduledAt string  `json:"scheduled_at"`
	Reason      *string `json:"reason"`
	Status      *string `json:"status"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

// AppointmentInput carries the caller-supplied columns of an appointment.
// Status falls back to "scheduled" on create only; on update nil means NULL.
type AppointmentInput struct {
	PatientID   *int64  `json:"patient_id"`
	DoctorID    *int64  `json:"doctor_id"`
	ScheduledAt *string `json:"scheduled_at"`
	Reason      *string `json:"reason"`
	Status      *string `json:"status"`
}

// AppointmentListing is an appointment enriched with display names.
// PatientName and DoctorName are nil when the referenced row no longer exists.
type AppointmentListing struct {
	Appointment
	PatientName *string `json:"patient_name"`
	DoctorName  *string `json:"doctor_name"`
}

// Invoice represents a row of the invoices table
type Invoice struct {
	ID          int64    `json:"id"`
	PatientID   int64    `json:"patient_id"`
	DoctorID    *int64   `json:"doctor_id"`
	Amount      *float64 `json:"amount"`     // nil when a legacy row holds a non-numeric value
	IssuedOn    *string  `json:"issued_on"`
	Description *string  `json:"description"`
	CreatedAt   *string  `json:"created_at"` // nil for rows written before timestamps existed
	UpdatedAt   *string  `json:"updated_at"`
}

// InvoiceInput carries the caller-supplied columns of an invoice.
type InvoiceInput struct {
	PatientID   *int64   `json:"patient_id"`
	DoctorID    *int64   `json:"doctor_id"`
	Amount      *float64 `json:"amount"`
	IssuedOn    *string  `json:"issued_on"`
	Description *string  `json:"description"`
}

// InvoiceListing is an invoice enriched with display names.
type InvoiceListing struct {
	Invoice
	PatientName *string `json:"patient_name"`
	DoctorName  *string `json:"doctor_name"`
}

// AppointmentReportRow is one flattened row of the appointment report.
// Only appointments whose patient and doctor both exist are reported.
type AppointmentReportRow struct {
	AppointmentID   int64   `json:"appointment_id"`
	ScheduledAt     string  `json:"scheduled_at"`
	Reason          *string `json:"reason"`
	Status          *string `json:"status"`
	PatientID       int64   `json:"patient_id"`
	PatientName     string  `json:"patient_name"`
	PatientPhone    *string `json:"patient_phone"`
	PatientEmail    *string `json:"patient_email"`
	DoctorID        int64   `json:"doctor_id"`
	DoctorName      string  `json:"doctor_name"`
	DoctorSpecialty *string `json:"doctor_specialty"`
}

// MigrationReport summarises what a Migrate call changed.
type MigrationReport struct {
	// AddedColumns lists "table.column" entries added by the additive migration.
	AddedColumns []string `json:"added_columns"`

	// BackfilledDoctors is the number of doctors given the default schedule.
	BackfilledDoctors int64 `json:"backfilled_doctors"`

	// PurgedPatients and PurgedDoctors count demo rows removed at startup.
	PurgedPatients int64 `json:"purged_patients"`
	PurgedDoctors  int64 `json:"purged_doctors"`
}

// PurgeResult counts the demo rows removed by PurgeDemoData.
type PurgeResult struct {
	Patients int64 `json:"patients"`
	Doctors  int64 `json:"doctors"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) (*MigrationReport, error)
	PurgeDemoData(ctx context.Context) (*PurgeResult, error)

	// Patient operations
	ListPatients(ctx context.Context) ([]*Patient, error)
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	CreatePatient(ctx context.Context, in PatientInput) (*Patient, error)
	UpdatePatient(ctx context.Context, id int64, in PatientInput) (*Patient, error)
	DeletePatient(ctx context.Context, id int64) (*Patient, error)

	// Doctor operations
	ListDoctors(ctx context.Context) ([]*Doctor, error)
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id int64) (*Doctor, error)

	// Appointment operations
	ListAppointments(ctx context.Context) ([]*AppointmentListing, error)
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	CreateAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, in AppointmentInput) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) (*Appointment, error)

	// Invoice operations
	ListInvoices(ctx context.Context) ([]*InvoiceListing, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, in InvoiceInput) (*Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) (*Invoice, error)

	// Reports
	AppointmentReport(ctx context.Context) ([]*AppointmentReportRow, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
