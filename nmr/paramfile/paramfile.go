// Package paramfile reads and writes flat "key= value" parameter files.
//
// Blank lines and lines starting with '#' are skipped. Keys are matched
// case-insensitively and keep their order of first appearance.
package paramfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cwbudde/algo-nmr/nmr"
)

// Entry is one key/value line.
type Entry struct {
	Key   string
	Value string
}

// File is an ordered set of entries.
type File struct {
	Entries []Entry
}

// Read parses a parameter file.
func Read(r io.Reader) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("paramfile: line %d: malformed %q: %w", line, text, nmr.StatusInvalidParam)
		}
		f.Set(key, strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("paramfile: %w: %w", nmr.StatusIO, err)
	}
	return f, nil
}

// Write writes every entry as "key= value".
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range f.Entries {
		if _, err := fmt.Fprintf(bw, "%s= %s\n", e.Key, e.Value); err != nil {
			return fmt.Errorf("paramfile: %w: %w", nmr.StatusIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("paramfile: %w: %w", nmr.StatusIO, err)
	}
	return nil
}

func (f *File) index(key string) int {
	for i, e := range f.Entries {
		if strings.EqualFold(e.Key, key) {
			return i
		}
	}
	return -1
}

// Get returns the value stored for key.
func (f *File) Get(key string) (string, bool) {
	if i := f.index(key); i >= 0 {
		return f.Entries[i].Value, true
	}
	return "", false
}

// Set stores value for key, replacing an existing entry in place.
func (f *File) Set(key, value string) {
	if i := f.index(key); i >= 0 {
		f.Entries[i].Value = value
		return
	}
	f.Entries = append(f.Entries, Entry{Key: key, Value: value})
}

// Setf stores a formatted value for key.
func (f *File) Setf(key, format string, args ...any) {
	f.Set(key, fmt.Sprintf(format, args...))
}

// Fields returns the whitespace-separated fields of the value for key.
func (f *File) Fields(key string) ([]string, bool) {
	v, ok := f.Get(key)
	if !ok {
		return nil, false
	}
	return strings.Fields(v), true
}
