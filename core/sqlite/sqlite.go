// Package sqlite selects the SQLite driver for the hand-off database.
// The default build uses the pure Go modernc.org/sqlite driver; building
// with -tags cgo_sqlite (and CGO enabled) selects mattn/go-sqlite3.
//
// Use Open instead of sql.Open so the selected driver is applied.
package sqlite

import "database/sql"

// DriverName returns the registered SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType identifies the underlying implementation: "cgo" for
// mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// Open opens a SQLite database using the selected driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}
