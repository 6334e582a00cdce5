// Package fasta converts FASTA files to stores.
//
// Every FASTA entry becomes one record named after the first word of its
// header. The payload is the header line followed by the sequence lines,
// as they appear in the file.
//
// An entry with a header and no sequence lines is imported as a record
// holding only the header line, so that extracting all records gives back
// the input. Other ffindex_from_fasta implementations skip such entries.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kjk/ffindex/store"
	"github.com/kjk/ffindex/u"
)

// Record is a single FASTA entry
type Record struct {
	// header line without the leading '>' and trailing whitespace
	Header string
	// sequence lines including line endings
	Seq []byte
}

// Name returns the first word of the header
func (r *Record) Name() string {
	fields := strings.Fields(r.Header)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Payload returns the record as stored in the data file
func (r *Record) Payload() []byte {
	d := make([]byte, 0, len(r.Header)+2+len(r.Seq))
	d = append(d, '>')
	d = append(d, r.Header...)
	d = append(d, '\n')
	return append(d, r.Seq...)
}

// ForEachRecord reads FASTA records from r and calls fn for each.
// Sequence data before the first header is an error.
func ForEachRecord(r io.Reader, fn func(rec *Record) error) error {
	br := bufio.NewReader(r)
	var rec *Record
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line != "" {
			lineNo++
		}
		if strings.HasPrefix(line, ">") {
			if rec != nil {
				if ferr := fn(rec); ferr != nil {
					return ferr
				}
			}
			rec = &Record{
				Header: strings.TrimRightFunc(line[1:], isSpace),
			}
		} else if rec != nil {
			rec.Seq = append(rec.Seq, line...)
		} else if strings.TrimSpace(line) != "" {
			return fmt.Errorf("%w: line %d: sequence data before the first header", store.ErrFormat, lineNo)
		}
		if err == io.EOF {
			break
		}
	}
	if rec != nil {
		return fn(rec)
	}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// ImportReader writes FASTA records read from r to w.
// Returns the number of records written.
func ImportReader(r io.Reader, w *store.Writer) (int, error) {
	n := 0
	err := ForEachRecord(r, func(rec *Record) error {
		name := rec.Name()
		if name == "" {
			return fmt.Errorf("%w: record %d has an empty header", store.ErrFormat, n)
		}
		if _, err := w.Append(name, rec.Payload()); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		n++
		return nil
	})
	return n, err
}

// Import creates a store at dataPath and indexPath from a FASTA file.
// fastaPath can be compressed (.gz, .bz2, .zst, .br, .lz4) or "-" for stdin.
func Import(fastaPath string, dataPath string, indexPath string) (int, error) {
	f, err := u.OpenFileMaybeCompressed(fastaPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w, err := store.Create(dataPath, indexPath)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	n, err := ImportReader(f, w.Writer)
	if err != nil {
		return n, fmt.Errorf("%s: %w", fastaPath, err)
	}
	if err = w.Commit(); err != nil {
		return n, err
	}
	return n, nil
}
