package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies the outer encoding of an input file.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
	CompressionZstd Compression = "zstd"
)

// splitExt returns the compression implied by path and the remaining
// inner extension, e.g. "kjv.osis.xml.gz" gives (gzip, ".xml").
func splitExt(path string) (Compression, string) {
	name := strings.ToLower(filepath.Base(path))
	comp := CompressionNone
	switch {
	case strings.HasSuffix(name, ".gz"):
		comp, name = CompressionGzip, strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".xz"):
		comp, name = CompressionXZ, strings.TrimSuffix(name, ".xz")
	case strings.HasSuffix(name, ".zst"):
		comp, name = CompressionZstd, strings.TrimSuffix(name, ".zst")
	}
	return comp, filepath.Ext(name)
}

// fileReader is an input file with its decompressor.
type fileReader struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

// openFile opens path and wraps it in the decompressor its extension names.
func openFile(path string) (*fileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	comp, _ := splitExt(path)
	fr := &fileReader{Reader: f, file: f}

	switch comp {
	case CompressionGzip:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		fr.Reader = gzr
		fr.decompressor = gzr
	case CompressionXZ:
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		fr.Reader = xzr
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		fr.Reader = zr
		fr.decompressor = zstdCloser{zr}
	}
	return fr, nil
}

// Close closes the decompressor and the file.
func (r *fileReader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// zstd.Decoder.Close has no error result.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
