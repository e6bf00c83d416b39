// Package catalog provides the fixed, ordered book catalog used for
// index-based verse addressing.
package catalog

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
)

// Book holds the metadata for a single book of the Bible.
type Book struct {
	// Name is the lowercase, no-space identifier (e.g., "1corinthians").
	// It is the key sent to verse sources and used in references.
	Name string `json:"name"`

	// Chapters is the number of chapters in the book (always >= 1).
	Chapters int `json:"chapters"`

	// OSIS is the OSIS book ID (e.g., "1Cor"), used when importing OSIS texts.
	OSIS string `json:"osis"`

	// Title is the display title (e.g., "1 Corinthians").
	Title string `json:"title"`
}

// Catalog is an immutable ordered list of books.
// The order is significant: it defines index-based addressing.
type Catalog struct {
	books  []Book
	byName map[string]int
	byOSIS map[string]int
}

// New builds a catalog from the given books in order.
// Names must be unique and non-empty, and every book needs at least one chapter.
func New(books []Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, errors.NewValidation("books", "catalog must contain at least one book")
	}

	c := &Catalog{
		books:  make([]Book, len(books)),
		byName: make(map[string]int, len(books)),
		byOSIS: make(map[string]int, len(books)),
	}
	copy(c.books, books)

	for i, b := range c.books {
		if b.Name == "" {
			return nil, errors.NewValidation("name", fmt.Sprintf("book at index %d has no name", i))
		}
		if b.Chapters < 1 {
			return nil, errors.NewValidation("chapters", fmt.Sprintf("book %q must have at least one chapter", b.Name))
		}
		if _, dup := c.byName[b.Name]; dup {
			return nil, errors.NewValidation("name", fmt.Sprintf("duplicate book name %q", b.Name))
		}
		c.byName[b.Name] = i
		if b.OSIS != "" {
			c.byOSIS[b.OSIS] = i
		}
	}

	return c, nil
}

// MustNew is like New but panics on an invalid book list.
// It is intended for static tables built at package initialization.
func MustNew(books []Book) *Catalog {
	c, err := New(books)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

// Len returns the number of books.
func (c *Catalog) Len() int {
	return len(c.books)
}

// At returns the book at index i. It panics if i is out of range,
// like a slice index.
func (c *Catalog) At(i int) Book {
	return c.books[i]
}

// Lookup returns the book with the given name.
func (c *Catalog) Lookup(name string) (Book, bool) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// Index returns the position of the named book, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.byName[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// ByOSIS returns the book with the given OSIS book ID.
func (c *Catalog) ByOSIS(osisID string) (Book, bool) {
	i, ok := c.byOSIS[osisID]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// Books returns a copy of the books in catalog order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}
