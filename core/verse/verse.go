// Package verse resolves date-derived candidates into verse text.
package verse

import (
	"context"
	"fmt"
)

// Verse is a single numbered verse within a chapter.
type Verse struct {
	Number int    `json:"verse"`
	Text   string `json:"text"`
}

// Lookup fetches the verses of a whole chapter.
//
// Implementations return the verses ordered by number. A chapter that does
// not exist in the source is reported with an error matching
// errors.ErrNotFound; any other failure to reach or decode the source is
// reported with an error matching errors.ErrTransport.
type Lookup interface {
	FetchChapter(ctx context.Context, book string, chapter int) ([]Verse, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, book string, chapter int) ([]Verse, error)

// FetchChapter calls f.
func (f LookupFunc) FetchChapter(ctx context.Context, book string, chapter int) ([]Verse, error) {
	return f(ctx, book, chapter)
}

// Result is the terminal output of a resolution.
type Result struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
	// Fallback is true when Text and Reference are the fixed fallback verse.
	Fallback bool `json:"fallback,omitempty"`
}

// Fixed fallback verse returned when the computed chapter does not exist.
const (
	FallbackReference = "Psalms 23:1"
	FallbackText      = "The LORD is my shepherd; I shall not want."
)

// Fallback returns the fixed fallback result.
func Fallback() Result {
	return Result{
		Text:      FallbackText,
		Reference: FallbackReference,
		Fallback:  true,
	}
}

// FormatReference formats a reference as "<book> <chapter>:<verse>".
func FormatReference(book string, chapter, verse int) string {
	return fmt.Sprintf("%s %d:%d", book, chapter, verse)
}
