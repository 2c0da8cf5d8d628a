package checksum

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raoulx24/rsync-backup/internal/fs"
)

// Format identifies an on-disk encoding of a record.
type Format int

const (
	FormatNone Format = iota
	V1
	V2
)

const (
	FileV1 = "checksums.md5"
	FileV2 = "checksums.gz"
)

func (f Format) String() string {
	switch f {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return "none"
	}
}

// FileName is the name of the record file in this format.
func (f Format) FileName() string {
	switch f {
	case V1:
		return FileV1
	case V2:
		return FileV2
	default:
		return ""
	}
}

// decode reads the entries of an opened record file.
func (f Format) decode(r io.Reader) (Record, error) {
	switch f {
	case V1:
		return decodeLines(r, true)
	case V2:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return Record{}, err
		}
		defer gz.Close()
		return decodeLines(gz, false)
	default:
		return Record{}, fmt.Errorf("unknown checksum format %d", f)
	}
}

// Locate returns the record file in dir and its format, preferring V2.
func Locate(dir string) (string, Format, error) {
	for _, f := range []Format{V2, V1} {
		path := filepath.Join(dir, f.FileName())
		_, err := os.Stat(path)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", FormatNone, err
		}
	}
	return "", FormatNone, ErrNoRecord
}

// Load reads the record stored in the snapshot directory dir.
// It returns ErrNoRecord when neither encoding is present.
func Load(dir string) (Record, Format, error) {
	path, format, err := Locate(dir)
	if err != nil {
		return Record{}, FormatNone, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Record{}, FormatNone, err
	}
	defer f.Close()

	rec, err := format.decode(f)
	if err != nil {
		return Record{}, FormatNone, fmt.Errorf("reading %s: %w", path, err)
	}
	return rec, format, nil
}

// Write stores rec in dir in the current format, atomically.
func Write(ctx context.Context, filesystem fs.FS, dir string, rec Record) (string, error) {
	path := filepath.Join(dir, FileV2)
	err := filesystem.WriteAtomic(ctx, path, func(w io.Writer) error {
		gz := gzip.NewWriter(w)
		bw := bufio.NewWriter(gz)
		for _, e := range rec.Entries {
			if _, err := fmt.Fprintf(bw, "%s  %s\n", e.Sum, e.Path); err != nil {
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return gz.Close()
	})
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func decodeLines(r io.Reader, legacy bool) (Record, error) {
	var rec Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(scanLF)

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}

		// "<sum>  <path>"; md5sum marks binary mode as "<sum> *<path>"
		sum, path, ok := strings.Cut(line, "  ")
		if !ok && legacy {
			sum, path, ok = strings.Cut(line, " *")
		}
		if !ok || !IsSum(sum) {
			return Record{}, fmt.Errorf("malformed checksum line %q", line)
		}
		if legacy {
			path = strings.TrimPrefix(path, "./")
		}
		rec.Entries = append(rec.Entries, Entry{Path: path, Sum: sum})
	}

	return rec, sc.Err()
}

// scanLF splits on '\n' only. A '\r' before it belongs to the path.
func scanLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
