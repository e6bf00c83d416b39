// Package sqliteexternal links the CGO SQLite driver for the offline verse
// store.
//
// To use the CGO driver (github.com/mattn/go-sqlite3), build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/birthdayverse
//
// Without the tag the store uses modernc.org/sqlite through
// github.com/FocuswithJustin/BirthdayVerse/core/sqlite and needs no C compiler.
package sqliteexternal
