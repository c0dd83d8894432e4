package index

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/fingerprint"
	"github.com/klauspost/compress/gzip"
)

// ErrMalformedRecord is returned by Load when a record cannot be parsed.
var ErrMalformedRecord = errors.New("malformed index record")

// escapedMarker is the third field of a record whose path is written as a
// Go-quoted string. csv.Reader folds a quoted "\r\n" into "\n", so paths
// containing a carriage return cannot be stored verbatim. Every other
// record has exactly two fields.
const escapedMarker = "escaped"

// encodePath returns the CSV fields for path.
func encodePath(path string) (field string, escaped bool) {
	if strings.ContainsRune(path, '\r') {
		return strconv.Quote(path), true
	}
	return path, false
}

// decodePath reverses encodePath for a record's fields other than the
// fingerprint.
func decodePath(record []string) (string, error) {
	switch {
	case len(record) == 2:
		return record[0], nil
	case len(record) == 3 && record[2] == escapedMarker:
		path, err := strconv.Unquote(record[0])
		if err != nil {
			return "", fmt.Errorf("escaped path %q: %w", record[0], err)
		}
		return path, nil
	default:
		return "", fmt.Errorf("want 2 fields, got %d", len(record))
	}
}

// Load reads the index stored at path. A missing file is created and treated
// as an empty index. Any unparsable record fails the whole load; a partially
// loaded index is never returned.
func Load(path string) (*Index, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}

	idx := New()
	if info.Size() == 0 {
		return idx, nil
	}

	if err := idx.decode(file); err != nil {
		return nil, fmt.Errorf("loading index %s: %w", path, err)
	}
	return idx, nil
}

// decode parses a gzip-compressed CSV record stream into x.
func (x *Index) decode(r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompressing: %w", err)
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return fmt.Errorf("%w %d: %w", ErrMalformedRecord, n, err)
			}
			return fmt.Errorf("reading record %d: %w", n, err)
		}

		path, err := decodePath(record)
		if err != nil {
			return fmt.Errorf("%w %d: %w", ErrMalformedRecord, n, err)
		}
		fp, err := fingerprint.Parse(record[1])
		if err != nil {
			return fmt.Errorf("%w %d: %w", ErrMalformedRecord, n, err)
		}
		x.entries[path] = fp
	}
}

// encode writes every entry, sorted by path, as a gzip-compressed CSV stream.
func (x *Index) encode(w io.Writer) error {
	gz := gzip.NewWriter(w)
	writer := csv.NewWriter(gz)

	for _, e := range x.Entries() {
		field, escaped := encodePath(e.Path)
		record := []string{field, e.Fingerprint.String()}
		if escaped {
			record = append(record, escapedMarker)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return gz.Close()
}

// Save writes the index to path. The data goes to a temporary file in the
// same directory which is synced and renamed over path, so a crash mid-write
// leaves the previous index intact.
func (x *Index) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpPath := tmp.Name()

	if err := x.writeTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp index: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing index: %w", err)
	}

	return nil
}

// writeTo encodes into f and syncs it.
func (x *Index) writeTo(f *os.File) error {
	if err := f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp index: %w", err)
	}
	if err := x.encode(f); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}
	return nil
}
