//go:build cgo_sqlite

// The CGO driver lives in contrib/sqlite-external so the default build
// carries no C toolchain requirement.
package sqlite

import (
	_ "github.com/FocuswithJustin/BirthdayVerse/contrib/sqlite-external" // CGO SQLite driver
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3 (via contrib/sqlite-external)"
)
