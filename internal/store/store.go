// Package store is the offline verse source backed by a SQLite database.
//
// A store holds one translation. Rows are keyed by catalog book name,
// chapter and verse number, so a chapter read is a single indexed range
// scan.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/sqlite"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

const schema = `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	CREATE TABLE IF NOT EXISTS verses (
		book TEXT NOT NULL,
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (book, chapter, verse)
	);
`

// Meta keys written by the importer.
const (
	MetaTitle      = "title"
	MetaSource     = "source"
	MetaImportedAt = "imported_at"
)

// Row is one stored verse.
type Row struct {
	Book    string
	Chapter int
	Verse   int
	Text    string
}

// Store reads and writes verses in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing store read-only.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.OpenContext(ctx, path, true)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	s := &Store{db: db, path: path}

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='verses'`).Scan(&name)
	if err != nil {
		db.Close()
		if err == sql.ErrNoRows {
			return nil, errors.NewValidation("db", fmt.Sprintf("%s has no verses table", path))
		}
		return nil, errors.NewIO("read schema", path, err)
	}
	return s, nil
}

// Create opens path for writing, creating the file and schema as needed.
func Create(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.OpenContext(ctx, path, false)
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchChapter implements verse.Lookup.
// A chapter with no rows is reported as not found.
func (s *Store) FetchChapter(ctx context.Context, book string, chapter int) ([]verse.Verse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT verse, text FROM verses WHERE book = ? AND chapter = ? ORDER BY verse`,
		book, chapter)
	if err != nil {
		return nil, errors.NewTransport("sqlite", "fetch chapter", 0, err)
	}
	defer rows.Close()

	var verses []verse.Verse
	for rows.Next() {
		var v verse.Verse
		if err := rows.Scan(&v.Number, &v.Text); err != nil {
			return nil, errors.NewTransport("sqlite", "scan verse", 0, err)
		}
		verses = append(verses, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransport("sqlite", "fetch chapter", 0, err)
	}

	if len(verses) == 0 {
		return nil, errors.NewNotFound("chapter", fmt.Sprintf("%s %d", book, chapter))
	}
	return verses, nil
}

// Insert writes rows in one transaction, replacing existing verses with the
// same key. It returns the number of rows written.
func (s *Store) Insert(ctx context.Context, rows []Row) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewIO("begin", s.path, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO verses (book, chapter, verse, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.NewIO("prepare insert", s.path, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Book, r.Chapter, r.Verse, r.Text); err != nil {
			return 0, errors.NewIO(fmt.Sprintf("insert %s %d:%d", r.Book, r.Chapter, r.Verse), s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewIO("commit", s.path, err)
	}
	return len(rows), nil
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return errors.NewIO("set meta "+key, s.path, err)
	}
	return nil
}

// Meta returns a metadata value, or "" if it is not set.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewIO("get meta "+key, s.path, err)
	}
	return value, nil
}

// Stats summarizes store contents.
type Stats struct {
	Books    int `json:"books"`
	Chapters int `json:"chapters"`
	Verses   int `json:"verses"`
}

// Stats counts distinct books, chapters and verses.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT book),
			(SELECT COUNT(*) FROM (SELECT DISTINCT book, chapter FROM verses)),
			COUNT(*)
		FROM verses`).Scan(&st.Books, &st.Chapters, &st.Verses)
	if err != nil {
		return Stats{}, errors.NewIO("stats", s.path, err)
	}
	return st, nil
}

var _ verse.Lookup = (*Store)(nil)
