// Package stores is the clinic persistence layer: a SQLite schema manager and
// record store for patients, doctors, appointments and invoices.
//
// Every operation is its own unit of work. It takes a pooled connection, runs
// in one transaction, commits or rolls back, and releases the connection.
// Missing rows are reported as ErrNotFound; other failures are *StoreError
// values classified as constraint, locked or internal.
//
// Call Migrate once at startup. It creates missing tables, adds columns
// introduced after the first schema release and removes demo seed rows.
package stores
