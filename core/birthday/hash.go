package birthday

import "github.com/FocuswithJustin/BirthdayVerse/core/catalog"

// Candidate is a book/chapter/verse triple derived from a date before
// its existence in a verse source is confirmed.
type Candidate struct {
	BookIndex int `json:"book_index"`
	Chapter   int `json:"chapter"`
	// Verse is 0 when the whole chapter is addressed.
	Verse int `json:"verse,omitempty"`
}

// Hash maps a date onto a candidate in the given catalog:
//
//	bookIndex = (day*month + year) mod len(catalog)
//	chapter   = ((day + month + year) mod chapters(bookIndex)) + 1
//
// Both moduli are floored so negative years still land in range.
// The verse is selected later from the fetched chapter.
func Hash(d Date, c *catalog.Catalog) Candidate {
	bookIndex := FloorMod(d.Day*d.Month+d.Year, c.Len())
	chapters := c.At(bookIndex).Chapters
	return Candidate{
		BookIndex: bookIndex,
		Chapter:   FloorMod(d.Seed(), chapters) + 1,
	}
}

// FloorMod returns a mod n in [0, n) for n > 0.
// Go's % truncates toward zero and yields negative results for negative a.
func FloorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
