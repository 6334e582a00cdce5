// Package reindex rebuilds an index by scanning a data file for
// sentinel bytes, without using an existing index.
package reindex

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kjk/ffindex/store"
)

const (
	// DuplicateMarker is appended to a parsed name until it's unique
	DuplicateMarker = "^"

	defaultChunkSize = 1024 * 1024
)

type Options struct {
	// if true, the name of a record is the first token of its first line,
	// with leading '#' and '>' stripped. Otherwise it's the record's
	// 0-based ordinal
	ParseNames bool
	// if true, a duplicate parsed name gets DuplicateMarker appended
	// until it's unique. Otherwise duplicates are an error
	RenameDuplicates bool
	// size of reads from the data file. 1 MB if 0
	ChunkSize int
}

// scanner is the state of a single scan
type scanner struct {
	opts *Options
	w    *store.Writer

	// start of the current record
	offset int64
	// bytes of the current record seen so far, including the sentinel
	recordLength int64
	ordinal      int
	inHeader     bool
	header       []byte
	seen         map[string]struct{}
}

func (s *scanner) name() (string, error) {
	if !s.opts.ParseNames {
		return strconv.Itoa(s.ordinal), nil
	}
	name := store.NameFromHeader(s.header)
	if name == "" {
		return "", fmt.Errorf("%w: empty name for record %d at offset %d", store.ErrFormat, s.ordinal, s.offset)
	}
	for {
		if _, dup := s.seen[name]; !dup {
			break
		}
		if !s.opts.RenameDuplicates {
			return "", fmt.Errorf("%w: duplicate name '%s' for record %d at offset %d", store.ErrFormat, name, s.ordinal, s.offset)
		}
		name += DuplicateMarker
	}
	s.seen[name] = struct{}{}
	return name, nil
}

// endRecord is called on a sentinel byte
func (s *scanner) endRecord() error {
	name, err := s.name()
	if err != nil {
		return err
	}
	if err = s.w.WriteIndexLine(name, s.offset, s.recordLength); err != nil {
		return err
	}
	s.offset += s.recordLength
	s.recordLength = 1
	s.ordinal++
	s.header = s.header[:0]
	s.inHeader = true
	return nil
}

func (s *scanner) scan(chunk []byte) error {
	for _, b := range chunk {
		if b == store.Sentinel {
			if err := s.endRecord(); err != nil {
				return err
			}
			continue
		}
		if b < 33 {
			s.inHeader = false
		}
		if s.opts.ParseNames && s.inHeader {
			s.header = append(s.header, b)
		}
		s.recordLength++
	}
	return nil
}

// Scan reads data from r and writes index lines to index.
// Returns the number of records found.
// Bytes after the last sentinel are an error.
func Scan(r io.Reader, index io.Writer, opts *Options) (int, error) {
	return scanTo(r, store.NewWriter(nil, index), opts)
}

func scanTo(r io.Reader, w *store.Writer, opts *Options) (int, error) {
	if opts == nil {
		opts = &Options{}
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	s := &scanner{
		opts:         opts,
		w:            w,
		recordLength: 1,
		inHeader:     true,
		seen:         map[string]struct{}{},
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if serr := s.scan(buf[:n]); serr != nil {
				return s.ordinal, serr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.ordinal, err
		}
	}
	if trailing := s.recordLength - 1; trailing > 0 {
		return s.ordinal, fmt.Errorf("%w: %d bytes at offset %d after the last sentinel", store.ErrFormat, trailing, s.offset)
	}
	return s.ordinal, nil
}

// Run reindexes the data file at dataPath and writes the index to indexPath.
// indexPath is only created if the whole data file was scanned successfully.
func Run(dataPath string, indexPath string, opts *Options) (int, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w, err := store.CreateIndex(indexPath)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	n, err := scanTo(f, w.Writer, opts)
	if err != nil {
		return n, fmt.Errorf("%s: %w", dataPath, err)
	}
	if err = w.Commit(); err != nil {
		return n, err
	}
	return n, nil
}
