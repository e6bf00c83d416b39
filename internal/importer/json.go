package importer

import (
	"bytes"
	"io"

	json "github.com/goccy/go-json"

	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/internal/bibleapi"
)

// ParseJSON reads chapter JSON: a single chapter response or an array of
// them. Book names are matched against the catalog after removing spaces
// and lowercasing, so "Song of Solomon" maps to "songofsolomon".
func ParseJSON(r io.Reader, c *catalog.Catalog) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}

	var chapters []bibleapi.ChapterResponse
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, errors.NewParse("JSON", "", "empty input")
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &chapters); err != nil {
			return nil, errors.NewParse("JSON", "", err.Error())
		}
	default:
		var one bibleapi.ChapterResponse
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, errors.NewParse("JSON", "", err.Error())
		}
		chapters = append(chapters, one)
	}

	doc := newDocument("json")
	for _, ch := range chapters {
		if doc.Title == "" {
			doc.Title = ch.TranslationName
		}
		for _, e := range ch.Verses {
			name := bibleapi.CatalogName(e.BookName)
			if _, ok := c.Lookup(name); !ok {
				doc.Skipped[e.BookName]++
				continue
			}
			if e.Chapter < 1 || e.Verse < 1 {
				return nil, errors.NewParse("JSON", "", "verse entries need positive chapter and verse numbers")
			}
			doc.addRow(name, e.Chapter, e.Verse, e.Text)
		}
	}
	return doc, nil
}
