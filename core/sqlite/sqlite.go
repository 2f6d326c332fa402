// Package sqlite opens SQLite databases for the song catalog with either
// the pure Go (modernc.org/sqlite) or the CGO (mattn/go-sqlite3) driver.
//
// Build modes:
//   - Default (CGO_ENABLED=0): modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// Use Open instead of sql.Open so the driver matching the build is used.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultPragmas are applied by OpenDatabase to writable databases.
var DefaultPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the driver selected at build time.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenDatabase opens path and applies DefaultPragmas. The connection is
// closed again if any pragma fails.
func OpenDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := ApplyPragmas(ctx, db, DefaultPragmas...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ApplyPragmas executes each pragma statement in order.
func ApplyPragmas(ctx context.Context, db *sql.DB, pragmas ...string) error {
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
