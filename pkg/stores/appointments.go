package stores

import (
	"context"
	"database/sql"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

const appointmentColumns = `id, patient_id, doctor_id, scheduled_at, reason, status, created_at, updated_at`

func scanAppointment(row rowScanner) (*Appointment, error) {
	a := &Appointment{}
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func getAppointment(ctx context.Context, q querier, id int64) (*Appointment, error) {
	a, err := scanAppointment(q.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound(entityAppointments, id)
	}
	if err != nil {
		return nil, wrapError(entityAppointments, "failed to get appointment", err)
	}
	return a, nil
}

// ListAppointments returns every appointment, newest first, with the patient's
// full name and the doctor's name. Appointments whose patient or doctor was
// deleted are still listed with nil names.
func (s *SQLiteStore) ListAppointments(ctx context.Context) ([]*AppointmentListing, error) {
	query := `
		SELECT
			a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.reason, a.status,
			a.created_at, a.updated_at,
			p.first_name || ' ' || p.last_name AS patient_name,
			d.name AS doctor_name
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.id DESC
	`

	listings := []*AppointmentListing{}
	err := s.read(ctx, entityAppointments, "list", func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return wrapError(entityAppointments, "failed to list appointments", err)
		}
		defer rows.Close()

		for rows.Next() {
			l := &AppointmentListing{}
			err := rows.Scan(
				&l.ID,
				&l.PatientID,
				&l.DoctorID,
				&l.ScheduledAt,
				&l.Reason,
				&l.Status,
				&l.CreatedAt,
				&l.UpdatedAt,
				&l.PatientName,
				&l.DoctorName,
			)
			if err != nil {
				return wrapError(entityAppointments, "failed to scan appointment", err)
			}
			listings = append(listings, l)
		}

		if err := rows.Err(); err != nil {
			return wrapError(entityAppointments, "error iterating appointments", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// GetAppointment retrieves an appointment by ID
func (s *SQLiteStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var a *Appointment
	err := s.read(ctx, entityAppointments, "get", func(ctx context.Context, q querier) error {
		var err error
		a, err = getAppointment(ctx, q, id)
		return err
	})
	return a, err
}

// CreateAppointment inserts an appointment. A nil Status is stored as "scheduled".
// The referenced patient and doctor are not checked.
func (s *SQLiteStore) CreateAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	query := `
		INSERT INTO appointments (patient_id, doctor_id, scheduled_at, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	status := AppointmentStatusScheduled
	if in.Status != nil {
		status = *in.Status
	}

	var a *Appointment
	err := s.run(ctx, entityAppointments, "create", func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			in.PatientID,
			in.DoctorID,
			in.ScheduledAt,
			in.Reason,
			status,
			s.now(),
		)
		if err != nil {
			return wrapError(entityAppointments, "failed to create appointment", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return wrapError(entityAppointments, "failed to get appointment ID", err)
		}

		a, err = getAppointment(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordCreated, entityAppointments, a.ID)
	return a, nil
}

// UpdateAppointment overwrites every mutable column of an appointment with in.
// Unlike create, a nil Status is written as NULL.
func (s *SQLiteStore) UpdateAppointment(ctx context.Context, id int64, in AppointmentInput) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET patient_id = ?, doctor_id = ?, scheduled_at = ?, reason = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	var a *Appointment
	err := s.run(ctx, entityAppointments, "update", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			in.PatientID,
			in.DoctorID,
			in.ScheduledAt,
			in.Reason,
			in.Status,
			s.now(),
			id,
		)
		if err != nil {
			return wrapError(entityAppointments, "failed to update appointment", err)
		}

		a, err = getAppointment(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordUpdated, entityAppointments, id)
	return a, nil
}

// DeleteAppointment deletes an appointment and returns the pre-deletion row.
func (s *SQLiteStore) DeleteAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var a *Appointment
	err := s.deleteSnapshot(ctx, entityAppointments, id, func(ctx context.Context, q querier) error {
		var err error
		a, err = getAppointment(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordDeleted, entityAppointments, id)
	return a, nil
}
