package stores

import (
	"context"
	"database/sql"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

const patientColumns = `id, first_name, last_name, dob, phone, email, address, age, gender, created_at, updated_at`

func scanPatient(row rowScanner) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DOB,
		&p.Phone,
		&p.Email,
		&p.Address,
		lenientInt64{&p.Age},
		&p.Gender,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func getPatient(ctx context.Context, q querier, id int64) (*Patient, error) {
	p, err := scanPatient(q.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound(entityPatients, id)
	}
	if err != nil {
		return nil, wrapError(entityPatients, "failed to get patient", err)
	}
	return p, nil
}

// ListPatients returns every patient, oldest first.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]*Patient, error) {
	patients := []*Patient{}

	err := s.read(ctx, entityPatients, "list", func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+patientColumns+` FROM patients ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return wrapError(entityPatients, "failed to list patients", err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return wrapError(entityPatients, "failed to scan patient", err)
			}
			patients = append(patients, p)
		}

		if err := rows.Err(); err != nil {
			return wrapError(entityPatients, "error iterating patients", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return patients, nil
}

// GetPatient retrieves a patient by ID. A missing row yields ErrNotFound.
func (s *SQLiteStore) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var p *Patient
	err := s.read(ctx, entityPatients, "get", func(ctx context.Context, q querier) error {
		var err error
		p, err = getPatient(ctx, q, id)
		return err
	})
	return p, err
}

// CreatePatient inserts a patient and returns it as stored.
func (s *SQLiteStore) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	query := `
		INSERT INTO patients (first_name, last_name, dob, phone, email, address, age, gender, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var p *Patient
	err := s.run(ctx, entityPatients, "create", func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			in.FirstName,
			in.LastName,
			in.DOB,
			in.Phone,
			in.Email,
			in.Address,
			in.Age,
			in.Gender,
			s.now(),
		)
		if err != nil {
			return wrapError(entityPatients, "failed to create patient", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return wrapError(entityPatients, "failed to get patient ID", err)
		}

		p, err = getPatient(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordCreated, entityPatients, p.ID)
	return p, nil
}

// UpdatePatient overwrites every mutable column of a patient with in.
// Fields left nil in in are stored as NULL; this is not a partial patch.
func (s *SQLiteStore) UpdatePatient(ctx context.Context, id int64, in PatientInput) (*Patient, error) {
	query := `
		UPDATE patients
		SET first_name = ?, last_name = ?, dob = ?, phone = ?, email = ?,
			address = ?, age = ?, gender = ?, updated_at = ?
		WHERE id = ?
	`

	var p *Patient
	err := s.run(ctx, entityPatients, "update", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			in.FirstName,
			in.LastName,
			in.DOB,
			in.Phone,
			in.Email,
			in.Address,
			in.Age,
			in.Gender,
			s.now(),
			id,
		)
		if err != nil {
			return wrapError(entityPatients, "failed to update patient", err)
		}

		p, err = getPatient(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordUpdated, entityPatients, id)
	return p, nil
}

// DeletePatient deletes a patient and returns the row as it was before
// deletion. Appointments and invoices referencing it are left in place.
func (s *SQLiteStore) DeletePatient(ctx context.Context, id int64) (*Patient, error) {
	var p *Patient
	err := s.deleteSnapshot(ctx, entityPatients, id, func(ctx context.Context, q querier) error {
		var err error
		p, err = getPatient(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordDeleted, entityPatients, id)
	return p, nil
}
