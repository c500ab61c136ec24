package stores

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

// stepClock returns a time one second later on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func strPtr(s string) *string       { return &s }
func int64Ptr(i int64) *int64       { return &i }
func float64Ptr(f float64) *float64 { return &f }

// openTestStore opens a store on a fresh database file without migrating it.
func openTestStore(t *testing.T, cfg Config) *SQLiteStore {
	t.Helper()

	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "clinic.db")
	}
	if cfg.Clock == nil {
		cfg.Clock = newStepClock().Now
	}

	store, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// setupTestStore creates a migrated store backed by a temporary file
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := openTestStore(t, Config{})
	if _, err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func createPatient(t *testing.T, store *SQLiteStore, first, last string) *Patient {
	t.Helper()

	p, err := store.CreatePatient(context.Background(), PatientInput{
		FirstName: strPtr(first),
		LastName:  strPtr(last),
	})
	if err != nil {
		t.Fatalf("failed to create patient %s %s: %v", first, last, err)
	}
	return p
}

func createDoctor(t *testing.T, store *SQLiteStore, name string) *Doctor {
	t.Helper()

	d, err := store.CreateDoctor(context.Background(), DoctorInput{Name: strPtr(name)})
	if err != nil {
		t.Fatalf("failed to create doctor %s: %v", name, err)
	}
	return d
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "clinic.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before Init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewSQLiteStore_RejectsURIDelimiters(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"question mark", "/tmp/clinic?.db"},
		{"hash", "/tmp/clinic#1.db"},
		{"percent", "/tmp/clinic%20a.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSQLiteStore(Config{Path: tt.path}); err == nil {
				t.Errorf("expected error for path %q", tt.path)
			}
		})
	}
}

// TestReadsWhileWriterHoldsLock checks that queries succeed while another
// connection holds the write reservation, and that writes report ClassLocked.
func TestReadsWhileWriterHoldsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.db")
	store := openTestStore(t, Config{Path: path, BusyTimeout: 100 * time.Millisecond})
	ctx := context.Background()
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	patient := createPatient(t, store, "Anna", "Smith")

	other, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open second connection: %v", err)
	}
	defer other.Close()

	conn, err := other.Conn(ctx)
	if err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("failed to take write reservation: %v", err)
	}
	defer conn.ExecContext(ctx, "ROLLBACK")

	if _, err := store.ListPatients(ctx); err != nil {
		t.Errorf("list failed while writer active: %v", err)
	}
	if _, err := store.GetPatient(ctx, patient.ID); err != nil {
		t.Errorf("get failed while writer active: %v", err)
	}
	if _, err := store.AppointmentReport(ctx); err != nil {
		t.Errorf("report failed while writer active: %v", err)
	}
	if _, err := store.DeleteDoctor(ctx, 999); !IsNotFound(err) {
		t.Errorf("delete of missing row: err = %v, want not found", err)
	}

	_, err = store.CreatePatient(ctx, PatientInput{FirstName: strPtr("Bob"), LastName: strPtr("Jones")})
	if ClassOf(err) != ClassLocked {
		t.Errorf("create while writer active: class = %q, want %q", ClassOf(err), ClassLocked)
	}
}

// TestStoreMigrations tests schema creation and additive evolution
func TestStoreMigrations(t *testing.T) {
	store := openTestStore(t, Config{})
	ctx := context.Background()

	report, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	want := []string{"patients.age", "patients.gender", "doctors.schedule"}
	if len(report.AddedColumns) != len(want) {
		t.Fatalf("expected added columns %v, got %v", want, report.AddedColumns)
	}
	for i := range want {
		if report.AddedColumns[i] != want[i] {
			t.Errorf("expected added column %s, got %s", want[i], report.AddedColumns[i])
		}
	}

	for _, table := range []string{"patients", "doctors", "appointments", "invoices"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// second run is a no-op
	report, err = store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to re-run migrate: %v", err)
	}
	if len(report.AddedColumns) != 0 {
		t.Errorf("expected no added columns on second run, got %v", report.AddedColumns)
	}
}

func TestMigrate_LegacyDoctorsBackfill(t *testing.T) {
	store := openTestStore(t, Config{})
	ctx := context.Background()

	legacy := `
		CREATE TABLE doctors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			specialty TEXT,
			phone TEXT,
			email TEXT,
			created_at TEXT,
			updated_at TEXT
		)`
	if _, err := store.db.ExecContext(ctx, legacy); err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO doctors (name, specialty) VALUES ('Dr. Grey', 'Surgery'), ('Dr. Shepherd', 'Neurology')`); err != nil {
		t.Fatalf("failed to seed legacy doctors: %v", err)
	}

	report, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if report.BackfilledDoctors != 2 {
		t.Errorf("expected 2 backfilled doctors, got %d", report.BackfilledDoctors)
	}

	doctors, err := store.ListDoctors(ctx)
	if err != nil {
		t.Fatalf("failed to list doctors: %v", err)
	}
	for _, d := range doctors {
		if d.Schedule == nil || *d.Schedule != DefaultDoctorSchedule {
			t.Errorf("doctor %s: expected schedule %s, got %v", d.Name, DefaultDoctorSchedule, d.Schedule)
		}
	}

	// A schedule cleared after the column exists is not backfilled again.
	cleared, err := store.UpdateDoctor(ctx, doctors[0].ID, DoctorInput{Name: strPtr(doctors[0].Name)})
	if err != nil {
		t.Fatalf("failed to update doctor: %v", err)
	}
	if cleared.Schedule != nil {
		t.Fatalf("expected schedule to be cleared, got %q", *cleared.Schedule)
	}

	report, err = store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to re-run migrate: %v", err)
	}
	if report.BackfilledDoctors != 0 {
		t.Errorf("expected no backfill on second run, got %d", report.BackfilledDoctors)
	}

	again, err := store.GetDoctor(ctx, doctors[0].ID)
	if err != nil {
		t.Fatalf("failed to get doctor: %v", err)
	}
	if again.Schedule != nil {
		t.Errorf("expected schedule to stay NULL, got %q", *again.Schedule)
	}
}

func TestPurgeDemoData(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createPatient(t, store, "Testy", "McTest")
	createPatient(t, store, "Jane", "Contest")
	anna := createPatient(t, store, "Anna", "Smith")
	createDoctor(t, store, "Dr. Who")
	createDoctor(t, store, "Dr. Who (locum)")
	house := createDoctor(t, store, "Dr. House")

	res, err := store.PurgeDemoData(ctx)
	if err != nil {
		t.Fatalf("failed to purge: %v", err)
	}
	if res.Patients != 2 {
		t.Errorf("expected 2 purged patients, got %d", res.Patients)
	}
	if res.Doctors != 2 {
		t.Errorf("expected 2 purged doctors, got %d", res.Doctors)
	}

	patients, err := store.ListPatients(ctx)
	if err != nil {
		t.Fatalf("failed to list patients: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != anna.ID {
		t.Errorf("expected only Anna to remain, got %+v", patients)
	}

	doctors, err := store.ListDoctors(ctx)
	if err != nil {
		t.Fatalf("failed to list doctors: %v", err)
	}
	if len(doctors) != 1 || doctors[0].ID != house.ID {
		t.Errorf("expected only Dr. House to remain, got %+v", doctors)
	}
}

func TestMigrate_PurgesDemoRows(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createPatient(t, store, "Test", "Patient")
	createDoctor(t, store, "Dr. Who")

	report, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if report.PurgedPatients != 1 || report.PurgedDoctors != 1 {
		t.Errorf("expected 1 purged patient and doctor, got %+v", report)
	}
}

func TestMigrate_SkipDemoPurge(t *testing.T) {
	store := openTestStore(t, Config{SkipDemoPurge: true})
	ctx := context.Background()

	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	createPatient(t, store, "Testy", "McTest")

	report, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if report.PurgedPatients != 0 {
		t.Errorf("expected purge to be skipped, got %d", report.PurgedPatients)
	}

	patients, _ := store.ListPatients(ctx)
	if len(patients) != 1 {
		t.Errorf("expected demo patient to survive, got %d patients", len(patients))
	}
}

// TestPatientCRUD tests Patient CRUD operations
func TestPatientCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Create
	created, err := store.CreatePatient(ctx, PatientInput{
		FirstName: strPtr("Anna"),
		LastName:  strPtr("Smith"),
		DOB:       strPtr("1990-04-12"),
		Phone:     strPtr("555-0100"),
		Email:     strPtr("anna@example.com"),
		Age:       int64Ptr(34),
		Gender:    strPtr("F"),
	})
	if err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated ID")
	}
	if created.CreatedAt == nil {
		t.Fatal("expected created_at to be set")
	}
	if _, err := time.ParseInLocation(TimestampLayout, *created.CreatedAt, time.Local); err != nil {
		t.Errorf("created_at %q does not match layout: %v", *created.CreatedAt, err)
	}
	if created.UpdatedAt != nil {
		t.Errorf("expected updated_at to be NULL, got %q", *created.UpdatedAt)
	}

	// Read
	retrieved, err := store.GetPatient(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to get patient: %v", err)
	}
	if retrieved.FirstName != "Anna" || retrieved.LastName != "Smith" {
		t.Errorf("unexpected name %s %s", retrieved.FirstName, retrieved.LastName)
	}
	if retrieved.Age == nil || *retrieved.Age != 34 {
		t.Errorf("expected age 34, got %v", retrieved.Age)
	}
	if retrieved.Address != nil {
		t.Errorf("expected address NULL, got %q", *retrieved.Address)
	}

	// Update overwrites every column; omitted fields become NULL.
	updated, err := store.UpdatePatient(ctx, created.ID, PatientInput{
		FirstName: strPtr("Anna"),
		LastName:  strPtr("Jones"),
		Phone:     strPtr("555-0199"),
	})
	if err != nil {
		t.Fatalf("failed to update patient: %v", err)
	}
	if updated.LastName != "Jones" {
		t.Errorf("expected last name Jones, got %s", updated.LastName)
	}
	if updated.Email != nil || updated.DOB != nil || updated.Age != nil || updated.Gender != nil {
		t.Errorf("expected omitted fields to be NULL, got %+v", updated)
	}
	if updated.UpdatedAt == nil || *updated.UpdatedAt <= *updated.CreatedAt {
		t.Errorf("expected updated_at after created_at, got %v / %v", updated.UpdatedAt, *updated.CreatedAt)
	}
	if *updated.CreatedAt != *created.CreatedAt {
		t.Error("update must not change created_at")
	}

	// Delete returns the pre-deletion snapshot
	deleted, err := store.DeletePatient(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to delete patient: %v", err)
	}
	if deleted.LastName != "Jones" {
		t.Errorf("expected snapshot of deleted row, got %+v", deleted)
	}

	_, err = store.GetPatient(ctx, created.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"get patient", func() error { _, err := store.GetPatient(ctx, 404); return err }},
		{"update patient", func() error {
			_, err := store.UpdatePatient(ctx, 404, PatientInput{FirstName: strPtr("A"), LastName: strPtr("B")})
			return err
		}},
		{"delete patient", func() error { _, err := store.DeletePatient(ctx, 404); return err }},
		{"get doctor", func() error { _, err := store.GetDoctor(ctx, 404); return err }},
		{"delete doctor", func() error { _, err := store.DeleteDoctor(ctx, 404); return err }},
		{"get appointment", func() error { _, err := store.GetAppointment(ctx, 404); return err }},
		{"update appointment", func() error {
			_, err := store.UpdateAppointment(ctx, 404, AppointmentInput{
				PatientID: int64Ptr(1), DoctorID: int64Ptr(1), ScheduledAt: strPtr("2024-01-01T10:00"),
			})
			return err
		}},
		{"delete appointment", func() error { _, err := store.DeleteAppointment(ctx, 404); return err }},
		{"get invoice", func() error { _, err := store.GetInvoice(ctx, 404); return err }},
		{"delete invoice", func() error { _, err := store.DeleteInvoice(ctx, 404); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
			if ClassOf(err) != ClassNotFound {
				t.Errorf("expected class %s, got %s", ClassNotFound, ClassOf(err))
			}
		})
	}
}

func TestConstraintViolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"patient without first name", func() error {
			_, err := store.CreatePatient(ctx, PatientInput{LastName: strPtr("Smith")})
			return err
		}},
		{"doctor without name", func() error {
			_, err := store.CreateDoctor(ctx, DoctorInput{Specialty: strPtr("Cardiology")})
			return err
		}},
		{"appointment without time", func() error {
			_, err := store.CreateAppointment(ctx, AppointmentInput{PatientID: int64Ptr(1), DoctorID: int64Ptr(1)})
			return err
		}},
		{"invoice without amount", func() error {
			_, err := store.CreateInvoice(ctx, InvoiceInput{PatientID: int64Ptr(1)})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if err == nil {
				t.Fatal("expected constraint error")
			}
			if ClassOf(err) != ClassConstraint {
				t.Errorf("expected class %s, got %s (%v)", ClassConstraint, ClassOf(err), err)
			}
		})
	}

	// nothing was written
	patients, _ := store.ListPatients(ctx)
	if len(patients) != 0 {
		t.Errorf("expected failed create to roll back, got %d patients", len(patients))
	}
}

func TestListOrdering(t *testing.T) {
	t.Run("patients by created_at", func(t *testing.T) {
		store := setupTestStore(t)
		first := createPatient(t, store, "Ada", "Lovelace")
		second := createPatient(t, store, "Alan", "Turing")

		patients, err := store.ListPatients(context.Background())
		if err != nil {
			t.Fatalf("failed to list patients: %v", err)
		}
		if len(patients) != 2 || patients[0].ID != first.ID || patients[1].ID != second.ID {
			t.Errorf("expected creation order, got %+v", patients)
		}
	})

	t.Run("updates do not reorder patients", func(t *testing.T) {
		store := setupTestStore(t)
		ctx := context.Background()

		a := createPatient(t, store, "Ada", "Lovelace")
		b := createPatient(t, store, "Alan", "Turing")
		c := createPatient(t, store, "Grace", "Hopper")

		for _, p := range []*Patient{c, a, b} {
			_, err := store.UpdatePatient(ctx, p.ID, PatientInput{
				FirstName: strPtr(p.FirstName + " (edited)"),
				LastName:  strPtr(p.LastName),
			})
			if err != nil {
				t.Fatalf("failed to update patient %d: %v", p.ID, err)
			}
		}

		patients, err := store.ListPatients(ctx)
		if err != nil {
			t.Fatalf("failed to list patients: %v", err)
		}
		var got []int64
		for _, p := range patients {
			got = append(got, p.ID)
		}
		want := []int64{a.ID, b.ID, c.ID}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			t.Errorf("expected order %v, got %v", want, got)
		}
	})

	t.Run("equal timestamps fall back to id", func(t *testing.T) {
		fixed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)
		store := openTestStore(t, Config{Clock: func() time.Time { return fixed }})
		if _, err := store.Migrate(context.Background()); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}

		a := createDoctor(t, store, "Dr. A")
		b := createDoctor(t, store, "Dr. B")

		doctors, err := store.ListDoctors(context.Background())
		if err != nil {
			t.Fatalf("failed to list doctors: %v", err)
		}
		if len(doctors) != 2 || doctors[0].ID != a.ID || doctors[1].ID != b.ID {
			t.Errorf("expected id order on ties, got %+v", doctors)
		}
	})

	t.Run("empty tables list as empty slices", func(t *testing.T) {
		store := setupTestStore(t)
		ctx := context.Background()

		patients, err := store.ListPatients(ctx)
		if err != nil || patients == nil || len(patients) != 0 {
			t.Errorf("expected empty non-nil slice, got %v, %v", patients, err)
		}
		report, err := store.AppointmentReport(ctx)
		if err != nil || report == nil || len(report) != 0 {
			t.Errorf("expected empty non-nil report, got %v, %v", report, err)
		}
	})
}

// TestLegacyValues covers rows whose stored values do not match the column type.
func TestLegacyValues(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	normal := createPatient(t, store, "Anna", "Smith")
	res, err := store.db.ExecContext(ctx,
		`INSERT INTO patients (first_name, last_name, age) VALUES (?, ?, ?)`, "Bob", "Jones", "")
	if err != nil {
		t.Fatalf("failed to insert legacy patient: %v", err)
	}
	legacyPatient, _ := res.LastInsertId()

	patients, err := store.ListPatients(ctx)
	if err != nil {
		t.Fatalf("failed to list patients: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}

	got, err := store.GetPatient(ctx, legacyPatient)
	if err != nil {
		t.Fatalf("failed to get legacy patient: %v", err)
	}
	if got.Age != nil {
		t.Errorf("expected nil age for empty string, got %d", *got.Age)
	}
	if _, err := store.GetPatient(ctx, normal.ID); err != nil {
		t.Errorf("failed to get patient: %v", err)
	}

	res, err = store.db.ExecContext(ctx,
		`INSERT INTO invoices (patient_id, amount) VALUES (?, ?)`, normal.ID, "n/a")
	if err != nil {
		t.Fatalf("failed to insert legacy invoice: %v", err)
	}
	legacyInvoice, _ := res.LastInsertId()
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO invoices (patient_id, amount) VALUES (?, ?)`, normal.ID, 40); err != nil {
		t.Fatalf("failed to insert invoice: %v", err)
	}

	invoices, err := store.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(invoices))
	}
	for _, inv := range invoices {
		switch {
		case inv.ID == legacyInvoice && inv.Amount != nil:
			t.Errorf("expected nil amount for legacy text, got %v", *inv.Amount)
		case inv.ID != legacyInvoice && (inv.Amount == nil || *inv.Amount != 40):
			t.Errorf("expected amount 40, got %v", inv.Amount)
		}
	}
}

// TestAppointmentCRUD tests appointments, listing joins and the report
func TestAppointmentCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	patient, err := store.CreatePatient(ctx, PatientInput{
		FirstName: strPtr("Anna"),
		LastName:  strPtr("Smith"),
		Phone:     strPtr("555-0100"),
	})
	if err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}
	doctor, err := store.CreateDoctor(ctx, DoctorInput{
		Name:      strPtr("Dr. House"),
		Specialty: strPtr("Diagnostics"),
	})
	if err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}

	// Create without status defaults to scheduled
	first, err := store.CreateAppointment(ctx, AppointmentInput{
		PatientID:   int64Ptr(patient.ID),
		DoctorID:    int64Ptr(doctor.ID),
		ScheduledAt: strPtr("2024-03-04T10:00"),
		Reason:      strPtr("Checkup"),
	})
	if err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}
	if first.Status == nil || *first.Status != AppointmentStatusScheduled {
		t.Errorf("expected default status %s, got %v", AppointmentStatusScheduled, first.Status)
	}

	// Dangling references are accepted: foreign keys are not enforced.
	dangling, err := store.CreateAppointment(ctx, AppointmentInput{
		PatientID:   int64Ptr(999),
		DoctorID:    int64Ptr(doctor.ID),
		ScheduledAt: strPtr("2024-03-05T11:00"),
		Status:      strPtr("cancelled"),
	})
	if err != nil {
		t.Fatalf("failed to create dangling appointment: %v", err)
	}

	listings, err := store.ListAppointments(ctx)
	if err != nil {
		t.Fatalf("failed to list appointments: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(listings))
	}
	if listings[0].ID != dangling.ID || listings[1].ID != first.ID {
		t.Errorf("expected newest id first, got %d, %d", listings[0].ID, listings[1].ID)
	}
	if listings[0].PatientName != nil {
		t.Errorf("expected nil patient name for dangling row, got %q", *listings[0].PatientName)
	}
	if listings[1].PatientName == nil || *listings[1].PatientName != "Anna Smith" {
		t.Errorf("expected patient name Anna Smith, got %v", listings[1].PatientName)
	}
	if listings[1].DoctorName == nil || *listings[1].DoctorName != "Dr. House" {
		t.Errorf("expected doctor name Dr. House, got %v", listings[1].DoctorName)
	}

	// Report uses inner joins and skips the dangling appointment
	report, err := store.AppointmentReport(ctx)
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("expected 1 report row, got %d", len(report))
	}
	row := report[0]
	if row.AppointmentID != first.ID || row.PatientName != "Anna Smith" || row.DoctorName != "Dr. House" {
		t.Errorf("unexpected report row %+v", row)
	}
	if row.PatientPhone == nil || *row.PatientPhone != "555-0100" {
		t.Errorf("expected patient phone, got %v", row.PatientPhone)
	}
	if row.DoctorSpecialty == nil || *row.DoctorSpecialty != "Diagnostics" {
		t.Errorf("expected doctor specialty, got %v", row.DoctorSpecialty)
	}

	// Update without status writes NULL
	updated, err := store.UpdateAppointment(ctx, first.ID, AppointmentInput{
		PatientID:   int64Ptr(patient.ID),
		DoctorID:    int64Ptr(doctor.ID),
		ScheduledAt: strPtr("2024-03-06T09:30"),
	})
	if err != nil {
		t.Fatalf("failed to update appointment: %v", err)
	}
	if updated.Status != nil {
		t.Errorf("expected NULL status after update, got %q", *updated.Status)
	}
	if updated.ScheduledAt != "2024-03-06T09:30" {
		t.Errorf("expected rescheduled time, got %s", updated.ScheduledAt)
	}

	// Deleting the patient leaves the appointment in place
	if _, err := store.DeletePatient(ctx, patient.ID); err != nil {
		t.Fatalf("failed to delete patient: %v", err)
	}
	if _, err := store.GetAppointment(ctx, first.ID); err != nil {
		t.Errorf("expected appointment to survive patient deletion: %v", err)
	}

	deleted, err := store.DeleteAppointment(ctx, first.ID)
	if err != nil {
		t.Fatalf("failed to delete appointment: %v", err)
	}
	if deleted.ID != first.ID {
		t.Errorf("expected snapshot of appointment %d, got %d", first.ID, deleted.ID)
	}
}

// TestInvoiceCRUD tests invoices and their listing order
func TestInvoiceCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	patient := createPatient(t, store, "Anna", "Smith")

	// A row from before timestamps existed
	res, err := store.db.ExecContext(ctx,
		`INSERT INTO invoices (patient_id, amount, description) VALUES (?, ?, ?)`,
		patient.ID, 10.0, "legacy")
	if err != nil {
		t.Fatalf("failed to insert legacy invoice: %v", err)
	}
	legacyID, _ := res.LastInsertId()

	created, err := store.CreateInvoice(ctx, InvoiceInput{
		PatientID:   int64Ptr(patient.ID),
		Amount:      float64Ptr(125.5),
		IssuedOn:    strPtr("2024-03-04"),
		Description: strPtr("Consultation"),
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	if created.DoctorID != nil {
		t.Errorf("expected no doctor, got %d", *created.DoctorID)
	}
	if created.Amount == nil || *created.Amount != 125.5 {
		t.Errorf("expected amount 125.5, got %v", created.Amount)
	}

	listings, err := store.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("failed to list invoices: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(listings))
	}
	if listings[0].ID != created.ID || listings[1].ID != legacyID {
		t.Errorf("expected rows without created_at last, got %d, %d", listings[0].ID, listings[1].ID)
	}
	if listings[0].PatientName == nil || *listings[0].PatientName != "Anna Smith" {
		t.Errorf("expected patient name, got %v", listings[0].PatientName)
	}
	if listings[0].DoctorName != nil {
		t.Errorf("expected nil doctor name, got %q", *listings[0].DoctorName)
	}

	doctor := createDoctor(t, store, "Dr. House")
	updated, err := store.UpdateInvoice(ctx, created.ID, InvoiceInput{
		PatientID: int64Ptr(patient.ID),
		DoctorID:  int64Ptr(doctor.ID),
		Amount:    float64Ptr(99),
	})
	if err != nil {
		t.Fatalf("failed to update invoice: %v", err)
	}
	if updated.DoctorID == nil || *updated.DoctorID != doctor.ID {
		t.Errorf("expected doctor %d, got %v", doctor.ID, updated.DoctorID)
	}
	if updated.Description != nil {
		t.Errorf("expected description cleared, got %q", *updated.Description)
	}

	if _, err := store.DeleteInvoice(ctx, created.ID); err != nil {
		t.Fatalf("failed to delete invoice: %v", err)
	}
	if _, err := store.GetInvoice(ctx, created.ID); !IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestStoreTelemetry(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	var events []telemetry.Event
	tel.Events.Subscribe(func(e telemetry.Event) {
		events = append(events, e)
	}, telemetry.FilterByEntity(entityPatients))

	store := setupTestStore(t)
	ctx := tel.WithContext(context.Background())

	p := createPatientCtx(t, ctx, store)
	if _, err := store.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("failed to delete patient: %v", err)
	}
	_, _ = store.GetPatient(ctx, p.ID)

	if len(events) != 2 {
		t.Fatalf("expected created and deleted events, got %d", len(events))
	}
	if events[0].Type != telemetry.EventTypeRecordCreated || events[1].Type != telemetry.EventTypeRecordDeleted {
		t.Errorf("unexpected event types %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].RecordID != p.ID {
		t.Errorf("expected record id %d, got %d", p.ID, events[1].RecordID)
	}
}

func createPatientCtx(t *testing.T, ctx context.Context, store *SQLiteStore) *Patient {
	t.Helper()

	p, err := store.CreatePatient(ctx, PatientInput{FirstName: strPtr("Grace"), LastName: strPtr("Hopper")})
	if err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}
	return p
}

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}
