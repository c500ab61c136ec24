package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openclinic/clinicdesk/pkg/telemetry"
)

// additiveColumn is a column introduced after the first schema release.
// backfill, when set, runs only in the call that adds the column.
type additiveColumn struct {
	table      string
	column     string
	definition string
	backfill   func(ctx context.Context, tx *sql.Tx) (int64, error)
}

var additiveColumns = []additiveColumn{
	{table: entityPatients, column: "age", definition: "INTEGER"},
	{table: entityPatients, column: "gender", definition: "TEXT"},
	{table: entityDoctors, column: "schedule", definition: "TEXT", backfill: backfillDoctorSchedule},
}

// Migrate brings the database to the current schema and purges demo rows.
//
// The embedded migrations create the first-release tables, then columns added
// since are probed with PRAGMA table_info and added when missing. Schema
// failures are returned. Demo purge failures are logged and discarded.
// Migrate is safe to call on every startup.
func (s *SQLiteStore) Migrate(ctx context.Context) (*MigrationReport, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	logger := telemetry.FromContext(ctx).NewComponentLogger("stores")

	if err := s.applyMigrations(); err != nil {
		return nil, err
	}

	report := &MigrationReport{AddedColumns: []string{}}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return evolveSchema(ctx, tx, report)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evolve schema: %w", err)
	}
	for _, col := range report.AddedColumns {
		logger.WithField("column", col).Info("added column")
	}

	if !s.skipPurge {
		purged, err := s.PurgeDemoData(ctx)
		if err != nil {
			logger.WithError(err).Warn("demo data purge failed, continuing startup")
		} else {
			report.PurgedPatients = purged.Patients
			report.PurgedDoctors = purged.Doctors
		}
	}

	logger.WithFields(map[string]interface{}{
		"added_columns":      len(report.AddedColumns),
		"backfilled_doctors": report.BackfilledDoctors,
		"purged_patients":    report.PurgedPatients,
		"purged_doctors":     report.PurgedDoctors,
	}).Info("database initialized")

	return report, nil
}

// applyMigrations runs the embedded golang-migrate migration set.
func (s *SQLiteStore) applyMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// m.Close is not called: it would close s.db.
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// evolveSchema adds every missing additive column and runs its backfill.
func evolveSchema(ctx context.Context, tx *sql.Tx, report *MigrationReport) error {
	for _, col := range additiveColumns {
		exists, err := columnExists(ctx, tx, col.table, col.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, col.definition)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", col.table, col.column, err)
		}
		report.AddedColumns = append(report.AddedColumns, col.table+"."+col.column)
		telemetry.RecordSchemaColumnAdded(ctx, col.table, col.column)

		if col.backfill == nil {
			continue
		}
		n, err := col.backfill(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to backfill %s.%s: %w", col.table, col.column, err)
		}
		if col.table == entityDoctors {
			report.BackfilledDoctors += n
		}
	}
	return nil
}

// columnExists reports whether table has column, using PRAGMA table_info.
// A missing table has no columns.
func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		if name == column {
			found = true
		}
	}

	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating table info for %s: %w", table, err)
	}

	return found, nil
}

func backfillDoctorSchedule(ctx context.Context, tx *sql.Tx) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE doctors SET schedule = ? WHERE schedule IS NULL OR schedule = ''`,
		DefaultDoctorSchedule,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeDemoData removes seed rows left by earlier demo builds: patients whose
// first or last name contains "Test" and doctors named, or containing,
// "Dr. Who". Matching uses SQLite LIKE, so it is ASCII case-insensitive and a
// real name such as "Testaments" is also removed.
func (s *SQLiteStore) PurgeDemoData(ctx context.Context) (*PurgeResult, error) {
	res := &PurgeResult{}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM patients WHERE first_name LIKE '%Test%' OR last_name LIKE '%Test%'`)
		if err != nil {
			return fmt.Errorf("failed to purge demo patients: %w", err)
		}
		if res.Patients, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		result, err = tx.ExecContext(ctx,
			`DELETE FROM doctors WHERE name = 'Dr. Who' OR name LIKE '%Dr. Who%'`)
		if err != nil {
			return fmt.Errorf("failed to purge demo doctors: %w", err)
		}
		if res.Doctors, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordDemoPurge(ctx, entityPatients, res.Patients)
	telemetry.RecordDemoPurge(ctx, entityDoctors, res.Doctors)
	return res, nil
}
