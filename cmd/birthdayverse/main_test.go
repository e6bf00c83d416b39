package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/lookup"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

// Test helper functions

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

// chapterServer answers "colossians 3" with 25 verses and 404s everything else.
func chapterServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/colossians%203" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		var verses []string
		for i := 1; i <= 25; i++ {
			verses = append(verses, fmt.Sprintf(`{"book_name":"Colossians","chapter":3,"verse":%d,"text":"Colossians three %d\n"}`, i, i))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"reference":"Colossians 3","verses":[%s]}`, strings.Join(verses, ","))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func colossiansOSIS() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<osis xmlns="http://www.bibletechnologies.net/2003/OSIS/namespace">
<osisText osisIDWork="Test"><header><work osisWork="Test"><title>Test Bible</title></work></header>
<div type="book" osisID="Col"><chapter osisID="Col.3">`)
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&b, `<verse osisID="Col.3.%d">Stored verse %d</verse>`, i, i)
	}
	b.WriteString(`</chapter></div></osisText></osis>`)
	return b.String()
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "birthdayverse version "+version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBooksCommand(t *testing.T) {
	out, err := runCLI(t, "books")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 66 {
		t.Fatalf("got %d lines, want 66", len(lines))
	}
	if !strings.HasPrefix(lines[13], "13  2samuel") || !strings.Contains(lines[13], "2 Samuel") {
		t.Errorf("line 13 = %q", lines[13])
	}

	out, err = runCLI(t, "books", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var books []catalog.Book
	if err := json.Unmarshal([]byte(out), &books); err != nil {
		t.Fatal(err)
	}
	if len(books) != 66 || books[19].Name != "colossians" {
		t.Errorf("books = %d entries, [19] = %+v", len(books), books[19])
	}
}

func TestVerseCommandHTTP(t *testing.T) {
	ts := chapterServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{"date argument", []string{"verse", "1990-05-15"}},
		{"field flags", []string{"verse", "--day", "15", "--month", "5", "--year", "1990"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--source", "http", "--api-base", ts.URL}, tt.args...)
			out, err := runCLI(t, args...)
			if err != nil {
				t.Fatalf("run() = %v", err)
			}
			// 2010 mod 25 = 10, the 11th verse
			want := "Colossians three 11\ncolossians 3:11\n"
			if out != want {
				t.Errorf("output = %q, want %q", out, want)
			}
		})
	}
}

func TestVerseCommandJSON(t *testing.T) {
	ts := chapterServer(t)

	out, err := runCLI(t, "--api-base", ts.URL, "verse", "1990-05-15", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got lookup.Outcome
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Book != "colossians" || got.Candidate.BookIndex != 19 || got.Candidate.Chapter != 3 {
		t.Errorf("outcome = %+v", got)
	}
	if got.Date != (birthday.Date{Day: 15, Month: 5, Year: 1990}) || got.Result.Reference != "colossians 3:11" {
		t.Errorf("outcome = %+v", got)
	}
}

func TestVerseCommandFallback(t *testing.T) {
	ts := chapterServer(t)

	// 2000-01-01 is deuteronomy 31, which the server does not have.
	out, err := runCLI(t, "--api-base", ts.URL, "verse", "2000-01-01")
	if err != nil {
		t.Fatal(err)
	}
	want := verse.FallbackText + "\n" + verse.FallbackReference + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestVerseCommandTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := runCLI(t, "--api-base", ts.URL, "verse", "1990-05-15")
	if !errors.Is(err, errors.ErrTransport) {
		t.Fatalf("run() = %v, want transport error", err)
	}
	if !strings.HasPrefix(err.Error(), lookup.FailedMessage) {
		t.Errorf("error = %q, want prefix %q", err, lookup.FailedMessage)
	}
}

func TestVerseCommandBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing", []string{"verse"}, lookup.IncompleteMessage},
		{"day only", []string{"verse", "--day", "15"}, lookup.IncompleteMessage},
		{"slashes", []string{"verse", "15/05/1990"}, birthday.InvalidDateMessage},
		{"zero month", []string{"verse", "1990-00-15"}, lookup.IncompleteMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil {
				t.Fatal("run() succeeded")
			}
			if got := userMessage(err); got != tt.want {
				t.Errorf("userMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImportThenSQLiteVerse(t *testing.T) {
	dir := t.TempDir()
	osisPath := createTestFile(t, dir, "col.osis.xml", colossiansOSIS())
	dbPath := filepath.Join(dir, "verses.db")

	out, err := runCLI(t, "--db", dbPath, "import", osisPath, "--batch-size", "10")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 25 verses in 1 chapters") || !strings.Contains(out, "Title: Test Bible") {
		t.Errorf("import output = %q", out)
	}

	out, err = runCLI(t, "--source", "sqlite", "--db", dbPath, "verse", "1990-05-15")
	if err != nil {
		t.Fatalf("verse: %v", err)
	}
	if out != "Stored verse 11\ncolossians 3:11\n" {
		t.Errorf("verse output = %q", out)
	}

	// Chapters the store lacks resolve to the fallback.
	out, err = runCLI(t, "--source", "sqlite", "--db", dbPath, "verse", "1975-02-09")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, verse.FallbackReference) {
		t.Errorf("output = %q, want fallback", out)
	}
}

func TestConfigFileSelectsSource(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "verses.db")
	osisPath := createTestFile(t, dir, "col.xml", colossiansOSIS())
	cfgPath := createTestFile(t, dir, "birthdayverse.yaml", fmt.Sprintf(`
source:
  kind: sqlite
  db_path: %s
logging:
  level: warn
  format: text
`, dbPath))

	if _, err := runCLI(t, "--config", cfgPath, "import", osisPath); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err := runCLI(t, "-c", cfgPath, "verse", "1990-05-15")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "colossians 3:11\n") {
		t.Errorf("output = %q", out)
	}
}

func TestInvalidGlobals(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"source", []string{"--source", "pigeon", "books"}, "source.kind"},
		{"log level", []string{"--log-level", "loud", "books"}, "logging.level"},
		{"log format", []string{"--log-format", "xml", "books"}, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			var verr *errors.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("run() = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestMissingStore(t *testing.T) {
	_, err := runCLI(t, "--source", "sqlite", "--db", filepath.Join(t.TempDir(), "absent.db"), "verse", "1990-05-15")
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("run() = %v, want IOError", err)
	}
}

func TestServeStopsWhenCancelled(t *testing.T) {
	cfgPath := createTestFile(t, t.TempDir(), "serve.yaml", "server:\n  port: 0\n  shutdown_timeout: 1s\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"--config", cfgPath, "serve"}, &stdout, &stderr); err != nil {
		t.Fatalf("serve = %v", err)
	}
	if !strings.Contains(stderr.String(), "server_startup") && !strings.Contains(stderr.String(), "rest_api") {
		t.Errorf("startup not logged: %s", stderr.String())
	}
}
