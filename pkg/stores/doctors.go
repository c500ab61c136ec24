package stores

import (
	"context"
	"database/sql"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

const doctorColumns = `id, name, specialty, phone, email, schedule, created_at, updated_at`

func scanDoctor(row rowScanner) (*Doctor, error) {
	d := &Doctor{}
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Phone,
		&d.Email,
		&d.Schedule,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func getDoctor(ctx context.Context, q querier, id int64) (*Doctor, error) {
	d, err := scanDoctor(q.QueryRowContext(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound(entityDoctors, id)
	}
	if err != nil {
		return nil, wrapError(entityDoctors, "failed to get doctor", err)
	}
	return d, nil
}

// ListDoctors returns every doctor, oldest first.
func (s *SQLiteStore) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	doctors := []*Doctor{}

	err := s.read(ctx, entityDoctors, "list", func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+doctorColumns+` FROM doctors ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return wrapError(entityDoctors, "failed to list doctors", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDoctor(rows)
			if err != nil {
				return wrapError(entityDoctors, "failed to scan doctor", err)
			}
			doctors = append(doctors, d)
		}

		if err := rows.Err(); err != nil {
			return wrapError(entityDoctors, "error iterating doctors", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doctors, nil
}

// GetDoctor retrieves a doctor by ID
func (s *SQLiteStore) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	var d *Doctor
	err := s.read(ctx, entityDoctors, "get", func(ctx context.Context, q querier) error {
		var err error
		d, err = getDoctor(ctx, q, id)
		return err
	})
	return d, err
}

// CreateDoctor inserts a doctor and returns it as stored.
func (s *SQLiteStore) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	query := `
		INSERT INTO doctors (name, specialty, phone, email, schedule, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var d *Doctor
	err := s.run(ctx, entityDoctors, "create", func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			in.Name,
			in.Specialty,
			in.Phone,
			in.Email,
			in.Schedule,
			s.now(),
		)
		if err != nil {
			return wrapError(entityDoctors, "failed to create doctor", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return wrapError(entityDoctors, "failed to get doctor ID", err)
		}

		d, err = getDoctor(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordCreated, entityDoctors, d.ID)
	return d, nil
}

// UpdateDoctor overwrites every mutable column of a doctor with in.
func (s *SQLiteStore) UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error) {
	query := `
		UPDATE doctors
		SET name = ?, specialty = ?, phone = ?, email = ?, schedule = ?, updated_at = ?
		WHERE id = ?
	`

	var d *Doctor
	err := s.run(ctx, entityDoctors, "update", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			in.Name,
			in.Specialty,
			in.Phone,
			in.Email,
			in.Schedule,
			s.now(),
			id,
		)
		if err != nil {
			return wrapError(entityDoctors, "failed to update doctor", err)
		}

		d, err = getDoctor(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordUpdated, entityDoctors, id)
	return d, nil
}

// DeleteDoctor deletes a doctor and returns the pre-deletion row.
func (s *SQLiteStore) DeleteDoctor(ctx context.Context, id int64) (*Doctor, error) {
	var d *Doctor
	err := s.deleteSnapshot(ctx, entityDoctors, id, func(ctx context.Context, q querier) error {
		var err error
		d, err = getDoctor(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordDeleted, entityDoctors, id)
	return d, nil
}
