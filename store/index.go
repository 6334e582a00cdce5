package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrFormat is returned for malformed index lines, duplicate or
	// empty record names and data that doesn't follow the store layout.
	ErrFormat = errors.New("invalid format")

	// ErrNotFound is returned when a store file or a requested record
	// doesn't exist.
	ErrNotFound = errors.New("not found")
)

// Sentinel terminates every record in the data file
const Sentinel byte = 0

// Entry is a single line of the index
type Entry struct {
	Name  string
	Start int64
	// size of the record in the data file, including the sentinel
	Length int64
}

// PayloadSize returns size of the record without the sentinel
func (e *Entry) PayloadSize() int64 {
	return e.Length - 1
}

// End returns the offset just past the record's sentinel
func (e *Entry) End() int64 {
	return e.Start + e.Length
}

// ValidateName returns an error if name can't be stored in the index
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrFormat)
	}
	if strings.ContainsAny(name, "\t\n") {
		return fmt.Errorf("%w: name %q contains a tab or newline", ErrFormat, name)
	}
	return nil
}

// FormatIndexLine returns an index line, including the trailing newline.
// name must be valid (see ValidateName).
func FormatIndexLine(name string, start int64, length int64) string {
	var buf []byte
	buf = appendIndexLine(buf, name, start, length)
	return string(buf)
}

func appendIndexLine(buf []byte, name string, start int64, length int64) []byte {
	buf = append(buf, name...)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, start, 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, length, 10)
	return append(buf, '\n')
}

// ParseIndexLine parses a single index line (without the trailing newline)
// into e. e is passed in to allow re-using Entry.
func ParseIndexLine(line string, e *Entry) error {
	name, rest, ok := strings.Cut(line, "\t")
	if !ok {
		return fmt.Errorf("%w: expected 3 tab-separated fields in index line %q", ErrFormat, line)
	}
	startStr, lengthStr, ok := strings.Cut(rest, "\t")
	if !ok || strings.Contains(lengthStr, "\t") {
		return fmt.Errorf("%w: expected 3 tab-separated fields in index line %q", ErrFormat, line)
	}
	if name == "" {
		return fmt.Errorf("%w: empty name in index line %q", ErrFormat, line)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return fmt.Errorf("%w: invalid start '%s' in index line %q", ErrFormat, startStr, line)
	}
	length, err := strconv.ParseInt(lengthStr, 10, 64)
	if err != nil || length < 1 {
		return fmt.Errorf("%w: invalid length '%s' in index line %q", ErrFormat, lengthStr, line)
	}

	e.Name = name
	e.Start = start
	e.Length = length
	return nil
}

// ParseIndex returns an iterator over entries read from r, yielding the
// 0-based position of each entry. Empty lines are skipped.
// path is only used in error messages.
// Call the returned error function after iteration to check for errors.
func ParseIndex(r io.Reader, path string) (iter.Seq2[int, *Entry], func() error) {
	var iterErr error

	seq := func(yield func(int, *Entry) bool) {
		reader := bufio.NewReader(r)
		lineNo := 0
		pos := 0
		for {
			line, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				iterErr = fmt.Errorf("error reading index file %s: %w", path, err)
				return
			}
			if err == io.EOF && line == "" {
				return
			}
			lineNo++
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if line != "" {
				e := &Entry{}
				if perr := ParseIndexLine(line, e); perr != nil {
					iterErr = fmt.Errorf("%s:%d: %w", path, lineNo, perr)
					return
				}
				if !yield(pos, e) {
					return
				}
				pos++
			}
			if err == io.EOF {
				return
			}
		}
	}

	return seq, func() error { return iterErr }
}

// ParseIndexFromFile is like ParseIndex but reads from a file
func ParseIndexFromFile(path string) (iter.Seq2[int, *Entry], func() error) {
	var openErr error
	var errFn func() error

	seq := func(yield func(int, *Entry) bool) {
		f, err := os.Open(path)
		if err != nil {
			openErr = notFoundOr(err)
			return
		}
		defer f.Close()
		var entries iter.Seq2[int, *Entry]
		entries, errFn = ParseIndex(f, path)
		entries(yield)
	}

	return seq, func() error {
		if openErr != nil {
			return openErr
		}
		if errFn != nil {
			return errFn()
		}
		return nil
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
