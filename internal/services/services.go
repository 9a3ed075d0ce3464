// Package services contains the business logic: account directory, vehicle
// catalog, auth session flow, search, and event recording. Handlers talk to
// the XServiceProvider interfaces; every mutation goes through the ownership
// gate in internal/auth before touching the store.
package services

import (
	"database/sql"
	"strings"
)

// dbtx is the subset of *sql.DB and *sql.Tx the services need, so the same
// statement helpers run standalone or inside the signup transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
