// Package importer loads a Bible translation into the offline verse store.
//
// Supported inputs are OSIS XML and chapter JSON in the shape returned by
// the HTTP verse source, optionally compressed with gzip, xz or zstd.
// Books are mapped onto the catalog; books the catalog does not know are
// skipped and counted.
package importer

import (
	"sort"

	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/internal/bibleapi"
	"github.com/FocuswithJustin/BirthdayVerse/internal/store"
)

// Document is a parsed translation ready to be stored.
type Document struct {
	Format string
	Title  string
	Rows   []store.Row
	// Skipped counts verses per source book id that had no catalog entry.
	Skipped map[string]int

	index map[rowKey]int
}

type rowKey struct {
	book           string
	chapter, verse int
}

func newDocument(format string) *Document {
	return &Document{
		Format:  format,
		Skipped: make(map[string]int),
		index:   make(map[rowKey]int),
	}
}

// add records an OSIS-addressed verse.
func (d *Document) add(c *catalog.Catalog, ref osisRef, text string) {
	book, ok := c.ByOSIS(ref.Book)
	if !ok {
		d.Skipped[ref.Book]++
		return
	}
	d.addRow(book.Name, ref.Chapter, ref.Verse, text)
}

// addRow records a verse by catalog name. Empty texts are dropped and a
// repeated reference replaces the earlier text.
func (d *Document) addRow(book string, chapter, verseNum int, text string) {
	text = bibleapi.CleanText(text)
	if text == "" {
		return
	}
	key := rowKey{book, chapter, verseNum}
	if i, ok := d.index[key]; ok {
		d.Rows[i].Text = text
		return
	}
	d.index[key] = len(d.Rows)
	d.Rows = append(d.Rows, store.Row{Book: book, Chapter: chapter, Verse: verseNum, Text: text})
}

// SkippedVerses returns the total number of skipped verses.
func (d *Document) SkippedVerses() int {
	n := 0
	for _, count := range d.Skipped {
		n += count
	}
	return n
}

// SkippedBooks returns the skipped source book ids in sorted order.
func (d *Document) SkippedBooks() []string {
	books := make([]string, 0, len(d.Skipped))
	for b := range d.Skipped {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}

// Chapters returns the number of distinct chapters in the document.
func (d *Document) Chapters() int {
	type chapterKey struct {
		book    string
		chapter int
	}
	seen := make(map[chapterKey]bool)
	for _, r := range d.Rows {
		seen[chapterKey{r.Book, r.Chapter}] = true
	}
	return len(seen)
}
