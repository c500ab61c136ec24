package stores

import (
	"context"
	"database/sql"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

const invoiceColumns = `id, patient_id, doctor_id, amount, issued_on, description, created_at, updated_at`

func scanInvoice(row rowScanner) (*Invoice, error) {
	inv := &Invoice{}
	err := row.Scan(
		&inv.ID,
		&inv.PatientID,
		&inv.DoctorID,
		lenientFloat64{&inv.Amount},
		&inv.IssuedOn,
		&inv.Description,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}

func getInvoice(ctx context.Context, q querier, id int64) (*Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound(entityInvoices, id)
	}
	if err != nil {
		return nil, wrapError(entityInvoices, "failed to get invoice", err)
	}
	return inv, nil
}

// ListInvoices returns every invoice with patient and doctor display names,
// oldest first. Rows without created_at (written before timestamps existed)
// sort after all timestamped rows.
func (s *SQLiteStore) ListInvoices(ctx context.Context) ([]*InvoiceListing, error) {
	query := `
		SELECT
			i.id, i.patient_id, i.doctor_id, i.amount, i.issued_on, i.description,
			i.created_at, i.updated_at,
			p.first_name || ' ' || p.last_name AS patient_name,
			d.name AS doctor_name
		FROM invoices i
		LEFT JOIN patients p ON p.id = i.patient_id
		LEFT JOIN doctors d ON d.id = i.doctor_id
		ORDER BY (i.created_at IS NULL) ASC, i.created_at ASC, i.id ASC
	`

	listings := []*InvoiceListing{}
	err := s.read(ctx, entityInvoices, "list", func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return wrapError(entityInvoices, "failed to list invoices", err)
		}
		defer rows.Close()

		for rows.Next() {
			l := &InvoiceListing{}
			err := rows.Scan(
				&l.ID,
				&l.PatientID,
				&l.DoctorID,
				lenientFloat64{&l.Amount},
				&l.IssuedOn,
				&l.Description,
				&l.CreatedAt,
				&l.UpdatedAt,
				&l.PatientName,
				&l.DoctorName,
			)
			if err != nil {
				return wrapError(entityInvoices, "failed to scan invoice", err)
			}
			listings = append(listings, l)
		}

		if err := rows.Err(); err != nil {
			return wrapError(entityInvoices, "error iterating invoices", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// GetInvoice retrieves an invoice by ID
func (s *SQLiteStore) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv *Invoice
	err := s.read(ctx, entityInvoices, "get", func(ctx context.Context, q querier) error {
		var err error
		inv, err = getInvoice(ctx, q, id)
		return err
	})
	return inv, err
}

// CreateInvoice inserts an invoice and returns it as stored.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	query := `
		INSERT INTO invoices (patient_id, doctor_id, amount, issued_on, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var inv *Invoice
	err := s.run(ctx, entityInvoices, "create", func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			in.PatientID,
			in.DoctorID,
			in.Amount,
			in.IssuedOn,
			in.Description,
			s.now(),
		)
		if err != nil {
			return wrapError(entityInvoices, "failed to create invoice", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return wrapError(entityInvoices, "failed to get invoice ID", err)
		}

		inv, err = getInvoice(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordCreated, entityInvoices, inv.ID)
	return inv, nil
}

// UpdateInvoice overwrites every mutable column of an invoice with in.
func (s *SQLiteStore) UpdateInvoice(ctx context.Context, id int64, in InvoiceInput) (*Invoice, error) {
	query := `
		UPDATE invoices
		SET patient_id = ?, doctor_id = ?, amount = ?, issued_on = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	var inv *Invoice
	err := s.run(ctx, entityInvoices, "update", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			in.PatientID,
			in.DoctorID,
			in.Amount,
			in.IssuedOn,
			in.Description,
			s.now(),
			id,
		)
		if err != nil {
			return wrapError(entityInvoices, "failed to update invoice", err)
		}

		inv, err = getInvoice(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordUpdated, entityInvoices, id)
	return inv, nil
}

// DeleteInvoice deletes an invoice and returns the pre-deletion row.
func (s *SQLiteStore) DeleteInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv *Invoice
	err := s.deleteSnapshot(ctx, entityInvoices, id, func(ctx context.Context, q querier) error {
		var err error
		inv, err = getInvoice(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.PublishRecordChanged(ctx, telemetry.EventTypeRecordDeleted, entityInvoices, id)
	return inv, nil
}
