// Package checksum stores and rebuilds the per-snapshot checksum record.
//
// A record maps every regular file under a snapshot's content root to the
// MD5 checksum of its content. rsync prints the same digest for %C when
// run with --checksum-choice=md5 (3.2 and later) or by default on 3.1. Two
// encodings exist on disk, both one "<checksum>  <path>" line per file:
//
//	checksums.md5  legacy, plain text, paths may carry a "./" prefix
//	checksums.gz   current, gzip-compressed
//
// Writers always produce the current format. Readers prefer it and fall
// back to the legacy file.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// Entry is the checksum of one file, path relative to the content root.
type Entry struct {
	Path string
	Sum  string
}

// Record is the ordered list of entries of one snapshot.
type Record struct {
	Entries []Entry
}

// Len returns the number of entries.
func (r Record) Len() int {
	return len(r.Entries)
}

// Map indexes the record by path.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Entries))
	for _, e := range r.Entries {
		m[e.Path] = e.Sum
	}
	return m
}

var ErrNoRecord = errors.New("no checksum record")

const hashBufferSize = 128 * 512

// File returns the hex MD5 checksum of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashBufferSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsSum reports whether s looks like a hex MD5 checksum.
func IsSum(s string) bool {
	if len(s) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
