package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
	"github.com/FocuswithJustin/BirthdayVerse/internal/store"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 5000

// Report summarizes one import.
type Report struct {
	Path         string        `json:"path"`
	Format       string        `json:"format"`
	Compression  Compression   `json:"compression,omitempty"`
	Title        string        `json:"title,omitempty"`
	Verses       int           `json:"verses"`
	Chapters     int           `json:"chapters"`
	Skipped      int           `json:"skipped"`
	SkippedBooks []string      `json:"skipped_books,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Options configures Import.
type Options struct {
	BatchSize int
	// Now is used for the imported_at metadata; defaults to time.Now.
	Now func() time.Time
}

// ParseFile decodes path into a Document. The format is chosen by the
// inner file extension (.xml/.osis or .json) and falls back to sniffing
// the first byte.
func ParseFile(path string, c *catalog.Catalog) (*Document, error) {
	fr, err := openFile(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer fr.Close()

	_, ext := splitExt(path)
	br := bufio.NewReader(fr)

	format := ""
	switch ext {
	case ".xml", ".osis":
		format = "osis"
	case ".json":
		format = "json"
	default:
		format, err = sniff(br)
		if err != nil {
			return nil, errors.NewIO("read", path, err)
		}
	}

	var doc *Document
	switch format {
	case "osis":
		doc, err = ParseOSIS(br, c)
	case "json":
		doc, err = ParseJSON(br, c)
	default:
		return nil, errors.NewUnsupported("input format", fmt.Sprintf("cannot detect format of %s", path))
	}
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// sniff inspects the first non-space byte of the input.
func sniff(br *bufio.Reader) (string, error) {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '<':
			return "osis", br.UnreadByte()
		case '{', '[':
			return "json", br.UnreadByte()
		default:
			return "", nil
		}
	}
}

// Import parses path and writes its verses into s.
func Import(ctx context.Context, path string, s *store.Store, c *catalog.Catalog, opts Options) (Report, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	doc, err := ParseFile(path, c)
	if err != nil {
		return Report{}, err
	}
	if len(doc.Rows) == 0 {
		return Report{}, errors.NewValidation("input", fmt.Sprintf("%s contains no verses for known books", path))
	}

	for i := 0; i < len(doc.Rows); i += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		end := i + opts.BatchSize
		if end > len(doc.Rows) {
			end = len(doc.Rows)
		}
		if _, err := s.Insert(ctx, doc.Rows[i:end]); err != nil {
			return Report{}, errors.Wrapf(err, "import rows %d-%d of %s", i+1, end, path)
		}
	}

	meta := map[string]string{
		store.MetaSource:     path,
		store.MetaImportedAt: opts.Now().UTC().Format(time.RFC3339),
	}
	if doc.Title != "" {
		meta[store.MetaTitle] = doc.Title
	}
	for k, v := range meta {
		if err := s.SetMeta(ctx, k, v); err != nil {
			return Report{}, err
		}
	}

	comp, _ := splitExt(path)
	report := Report{
		Path:         path,
		Format:       doc.Format,
		Compression:  comp,
		Title:        doc.Title,
		Verses:       len(doc.Rows),
		Chapters:     doc.Chapters(),
		Skipped:      doc.SkippedVerses(),
		SkippedBooks: doc.SkippedBooks(),
		Duration:     time.Since(start),
	}
	logging.ImportEvent(path, report.Format, report.Verses, report.Skipped, report.Duration, "chapters", report.Chapters)
	return report, nil
}
