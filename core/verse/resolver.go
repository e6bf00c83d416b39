package verse

import (
	"context"
	"time"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
)

// DefaultTimeout bounds a single chapter fetch.
const DefaultTimeout = 10 * time.Second

// Options configures a Resolver.
type Options struct {
	// Timeout bounds each chapter fetch (0 = DefaultTimeout, negative = none).
	Timeout time.Duration
}

// Resolver turns candidates into verses using a whole-chapter fetch.
//
// A missing chapter resolves to the fixed fallback verse. There is no
// search over neighbouring verses, chapters or books, so every call
// issues exactly one fetch.
type Resolver struct {
	catalog *catalog.Catalog
	lookup  Lookup
	timeout time.Duration
}

// NewResolver creates a resolver over the given catalog and verse source.
func NewResolver(c *catalog.Catalog, lookup Lookup, opts Options) *Resolver {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		catalog: c,
		lookup:  lookup,
		timeout: timeout,
	}
}

// Catalog returns the catalog the resolver addresses.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Resolve fetches the candidate's chapter and selects verse
// (day + month + year) mod N from its N verses.
//
// Not-found chapters yield Fallback() with a nil error. Transport failures
// are returned as errors matching errors.ErrTransport.
func (r *Resolver) Resolve(ctx context.Context, cand birthday.Candidate, d birthday.Date) (Result, error) {
	if cand.BookIndex < 0 || cand.BookIndex >= r.catalog.Len() {
		return Fallback(), nil
	}
	book := r.catalog.At(cand.BookIndex)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	verses, err := r.fetch(ctx, book.Name, cand.Chapter)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return Fallback(), nil
		}
		return Result{}, err
	}
	if len(verses) == 0 {
		return Fallback(), nil
	}

	v := verses[SelectIndex(d, len(verses))]
	return Result{
		Text:      v.Text,
		Reference: FormatReference(book.Name, cand.Chapter, v.Number),
	}, nil
}

// fetch calls the lookup, converting panics and untyped errors into
// transport errors so nothing escapes the resolver boundary.
func (r *Resolver) fetch(ctx context.Context, book string, chapter int) (verses []Verse, err error) {
	defer func() {
		if p := recover(); p != nil {
			verses = nil
			err = errors.NewTransport("lookup", "fetch chapter", 0, errors.Wrapf(errors.ErrInternal, "panic: %v", p))
		}
	}()

	verses, err = r.lookup.FetchChapter(ctx, book, chapter)
	if err == nil || errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrTransport) {
		return verses, err
	}
	return nil, errors.NewTransport("lookup", "fetch chapter", 0, err)
}

// SelectIndex returns the verse index for a chapter of n verses (n > 0).
func SelectIndex(d birthday.Date, n int) int {
	return birthday.FloorMod(d.Seed(), n)
}
