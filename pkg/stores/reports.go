package stores

import (
	"context"
)

// AppointmentReport returns a flattened appointment/patient/doctor view,
// newest appointment first. It uses inner joins, so appointments whose
// patient or doctor no longer exists are omitted.
func (s *SQLiteStore) AppointmentReport(ctx context.Context) ([]*AppointmentReportRow, error) {
	query := `
		SELECT
			a.id AS appointment_id,
			a.scheduled_at,
			a.reason,
			a.status,

			p.id AS patient_id,
			p.first_name || ' ' || p.last_name AS patient_name,
			p.phone AS patient_phone,
			p.email AS patient_email,

			d.id AS doctor_id,
			d.name AS doctor_name,
			d.specialty AS doctor_specialty
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.id DESC
	`

	report := []*AppointmentReportRow{}
	err := s.read(ctx, entityAppointments, "report", func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return wrapError(entityAppointments, "failed to build appointment report", err)
		}
		defer rows.Close()

		for rows.Next() {
			r := &AppointmentReportRow{}
			err := rows.Scan(
				&r.AppointmentID,
				&r.ScheduledAt,
				&r.Reason,
				&r.Status,
				&r.PatientID,
				&r.PatientName,
				&r.PatientPhone,
				&r.PatientEmail,
				&r.DoctorID,
				&r.DoctorName,
				&r.DoctorSpecialty,
			)
			if err != nil {
				return wrapError(entityAppointments, "failed to scan report row", err)
			}
			report = append(report, r)
		}

		if err := rows.Err(); err != nil {
			return wrapError(entityAppointments, "error iterating report rows", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}
