// Package runlog names, lists and reads the per-run log files of a job.
package runlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

// EndMessage is the message of the last line every run writes.
const EndMessage = "END STATUS"

// UnknownStatus is reported for logs whose run never wrote an end line.
const UnknownStatus = "Unknown status"

var namePattern = regexp.MustCompile(`^([0-9-]{17})\.log$`)

// File is one run log, named after the run's timestamp.
type File struct {
	Path      string
	Stamp     string
	CreatedAt time.Time
}

// Name returns the log file name for a run started at stamp.
func Name(stamp string) string {
	return stamp + ".log"
}

// Open creates (or appends to) the log of the run started at stamp.
func Open(dir, stamp string) (*os.File, string, error) {
	path := filepath.Join(dir, Name(stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, "", fmt.Errorf("opening run log: %w", err)
	}
	return f, path, nil
}

// List returns the run logs in dir, newest first.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := namePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation(snapshot.StampLayout, m[1], time.Local)
		if err != nil {
			continue
		}
		files = append(files, File{Path: filepath.Join(dir, e.Name()), Stamp: m[1], CreatedAt: t})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Stamp > files[j].Stamp
	})
	return files, nil
}

type endLine struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// EndStatus returns the status recorded on the last line of a run log.
func EndStatus(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return endStatus(f)
}

func endStatus(r io.Reader) (string, error) {
	var last string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}

	var end endLine
	if err := json.Unmarshal([]byte(last), &end); err != nil || end.Message != EndMessage || end.Status == "" {
		return UnknownStatus, nil
	}
	return end.Status, nil
}
