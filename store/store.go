package store

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Store is an opened data + index file pair.
// Entries are loaded into memory, data is read on demand.
type Store struct {
	DataPath  string
	IndexPath string

	entries []*Entry
	byName  map[string]int
}

// OpenStore loads the index and checks that the data file exists.
// Malformed index lines and duplicate names are ErrFormat errors.
func OpenStore(dataPath string, indexPath string) (*Store, error) {
	st, err := os.Stat(dataPath)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("data file %s is a directory", dataPath)
	}

	s := &Store{
		DataPath:  dataPath,
		IndexPath: indexPath,
		byName:    map[string]int{},
	}
	entries, errFn := ParseIndexFromFile(indexPath)
	for pos, e := range entries {
		if prev, dup := s.byName[e.Name]; dup {
			return nil, fmt.Errorf("%s: %w: duplicate name '%s' at positions %d and %d", indexPath, ErrFormat, e.Name, prev, pos)
		}
		s.byName[e.Name] = pos
		s.entries = append(s.entries, e)
	}
	if err := errFn(); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return s, nil
}

// Len returns number of records
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns entries in index order.
// The slice is a copy, entries must not be modified.
func (s *Store) Entries() []*Entry {
	return append([]*Entry{}, s.entries...)
}

// Entry returns entry at 0-based position i in the index
func (s *Store) Entry(i int) (*Entry, bool) {
	if i < 0 || i >= len(s.entries) {
		return nil, false
	}
	return s.entries[i], true
}

// Lookup returns the entry with a given name and its position in the index
func (s *Store) Lookup(name string) (*Entry, int, bool) {
	pos, ok := s.byName[name]
	if !ok {
		return nil, -1, false
	}
	return s.entries[pos], pos, true
}

// ReadRecord reads the record's bytes. If trimSentinel is true, the sentinel
// is not read and the returned slice has only the payload.
// It opens its own handle to the data file so it's safe to call concurrently.
func (s *Store) ReadRecord(e *Entry, trimSentinel bool) ([]byte, error) {
	return ReadRecordAt(s.DataPath, e.Start, e.Length, trimSentinel)
}

// OpenReader opens a handle for reading many records from the data file.
// A Reader must not be shared between goroutines.
func (s *Store) OpenReader() (*Reader, error) {
	return OpenReader(s.DataPath)
}

// Check verifies that every entry addresses a span inside the data file
// that ends with a sentinel
func (s *Store) Check() error {
	r, err := s.OpenReader()
	if err != nil {
		return err
	}
	defer r.Close()
	size, err := r.Size()
	if err != nil {
		return err
	}
	var last [1]byte
	for pos, e := range s.entries {
		if e.End() > size {
			return fmt.Errorf("%w: record '%s' (%d) at offset %d, length %d is past end of data file (size %d)", ErrFormat, e.Name, pos, e.Start, e.Length, size)
		}
		if _, err := r.f.ReadAt(last[:], e.End()-1); err != nil {
			return fmt.Errorf("failed to read %s at offset %d: %w", s.DataPath, e.End()-1, err)
		}
		if last[0] != Sentinel {
			return fmt.Errorf("%w: record '%s' (%d) at offset %d, length %d doesn't end with a sentinel", ErrFormat, e.Name, pos, e.Start, e.Length)
		}
	}
	return nil
}

// Reader reads records from a data file through a single handle
type Reader struct {
	path string
	f    *os.File
}

// OpenReader opens the data file at path
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &Reader{path: path, f: f}, nil
}

func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Size returns the size of the data file
func (r *Reader) Size() (int64, error) {
	st, err := r.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Read seeks to start and reads length bytes (length - 1 if trimSentinel).
// Reading past end of file is an error.
func (r *Reader) Read(start int64, length int64, trimSentinel bool) ([]byte, error) {
	if trimSentinel {
		length--
	}
	if start < 0 || length < 0 {
		return nil, fmt.Errorf("%w: invalid span at offset %d, length %d", ErrFormat, start, length)
	}
	_, err := r.f.Seek(start, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to seek %s to offset %d: %w", r.path, start, err)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(r.f, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%s: reached end of file after reading %d bytes at offset %d, expected %d", r.path, n, start, length)
		}
		return nil, fmt.Errorf("failed to read %d bytes from %s at offset %d: %w", length, r.path, start, err)
	}
	return buf, nil
}

// ReadHeader returns the leading bytes of a record up to (not including)
// the first byte < 33 (space or control character)
func (r *Reader) ReadHeader(e *Entry) ([]byte, error) {
	sr := io.NewSectionReader(r.f, e.Start, e.Length)
	var header []byte
	var chunk [1024]byte
	for {
		n, err := sr.Read(chunk[:])
		tok := HeaderToken(chunk[:n])
		header = append(header, tok...)
		if len(tok) < n {
			return header, nil
		}
		if err == io.EOF {
			return nil, fmt.Errorf("%w: record '%s' at offset %d has no sentinel", ErrFormat, e.Name, e.Start)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s at offset %d: %w", r.path, e.Start, err)
		}
	}
}

// ReadRecordAt opens path and reads a record from it, see Reader.Read
func ReadRecordAt(path string, start int64, length int64, trimSentinel bool) ([]byte, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Read(start, length, trimSentinel)
}

// HeaderToken returns the part of payload before the first byte < 33
func HeaderToken(payload []byte) []byte {
	for i, b := range payload {
		if b < 33 {
			return payload[:i]
		}
	}
	return payload
}

// NameFromHeader strips leading '#' and '>' markers from a header token
func NameFromHeader(header []byte) string {
	return strings.TrimLeft(string(header), "#>")
}
