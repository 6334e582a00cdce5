package store

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kjk/ffindex/atomicfile"
)

// Writer appends records to a data writer and lines to an index writer.
// It tracks the running offset in the data, so all writes to data must go
// through the Writer. Not safe for concurrent use.
type Writer struct {
	data   io.Writer
	index  io.Writer
	offset int64
	names  map[string]struct{}
	// re-used for formatting index lines
	lineBuf []byte
}

// NewWriter creates a Writer. data can be nil when only the index is written.
func NewWriter(data io.Writer, index io.Writer) *Writer {
	return &Writer{
		data:  data,
		index: index,
		names: map[string]struct{}{},
	}
}

// Offset returns the offset at which the next record will be written
func (w *Writer) Offset() int64 {
	return w.offset
}

// Count returns number of index lines written
func (w *Writer) Count() int {
	return len(w.names)
}

// AppendRecord writes payload followed by the sentinel.
// Returns offset before the write and number of bytes written (len(payload) + 1).
func (w *Writer) AppendRecord(payload []byte) (int64, int64, error) {
	start := w.offset
	if _, err := w.data.Write(payload); err != nil {
		return 0, 0, err
	}
	if _, err := w.data.Write([]byte{Sentinel}); err != nil {
		return 0, 0, err
	}
	length := int64(len(payload)) + 1
	w.offset += length
	return start, length, nil
}

// WriteIndexLine writes an index line. name must be valid and unique
// within this Writer.
func (w *Writer) WriteIndexLine(name string, start int64, length int64) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("%w: duplicate name '%s'", ErrFormat, name)
	}
	w.lineBuf = appendIndexLine(w.lineBuf[:0], name, start, length)
	if _, err := w.index.Write(w.lineBuf); err != nil {
		return err
	}
	w.names[name] = struct{}{}
	return nil
}

// Append writes the record and its index line
func (w *Writer) Append(name string, payload []byte) (*Entry, error) {
	// validate before writing data so we don't write unindexed data
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, dup := w.names[name]; dup {
		return nil, fmt.Errorf("%w: duplicate name '%s'", ErrFormat, name)
	}
	start, length, err := w.AppendRecord(payload)
	if err != nil {
		return nil, err
	}
	if err = w.WriteIndexLine(name, start, length); err != nil {
		return nil, err
	}
	return &Entry{Name: name, Start: start, Length: length}, nil
}

// FileWriter writes a new store to a data and index file.
// The files only appear at their paths after Commit().
type FileWriter struct {
	*Writer

	dataFile  *atomicfile.File
	indexFile *atomicfile.File
	dataBuf   *bufio.Writer
	indexBuf  *bufio.Writer
}

// Create starts writing a new store. Existing files at dataPath and
// indexPath are replaced on Commit().
func Create(dataPath string, indexPath string) (*FileWriter, error) {
	dataFile, err := atomicfile.New(dataPath)
	if err != nil {
		return nil, err
	}
	indexFile, err := atomicfile.New(indexPath)
	if err != nil {
		dataFile.Abandon()
		return nil, err
	}
	w := &FileWriter{
		dataFile:  dataFile,
		indexFile: indexFile,
		dataBuf:   bufio.NewWriterSize(dataFile, 256*1024),
		indexBuf:  bufio.NewWriter(indexFile),
	}
	w.Writer = NewWriter(w.dataBuf, w.indexBuf)
	return w, nil
}

// Commit flushes and renames both files to their destinations.
// The index is committed last so an index file never points into a data
// file that wasn't fully written.
func (w *FileWriter) Commit() error {
	err := w.dataBuf.Flush()
	if err == nil {
		err = w.dataFile.Close()
	}
	if err != nil {
		w.indexFile.Abandon()
		return fmt.Errorf("failed to write %s: %w", w.dataFile.Path(), err)
	}
	err = w.indexBuf.Flush()
	if err == nil {
		err = w.indexFile.Close()
	}
	if err != nil {
		w.indexFile.Abandon()
		// an index left from a previous run would now point into the new data
		_ = os.Remove(w.indexFile.Path())
		return fmt.Errorf("failed to write %s: %w", w.indexFile.Path(), err)
	}
	return nil
}

// Abort removes the temporary files. It's a no-op after Commit().
func (w *FileWriter) Abort() {
	if w == nil {
		return
	}
	w.dataFile.Abandon()
	w.indexFile.Abandon()
}

// IndexFileWriter writes only an index file, for stores whose data file
// already exists (reindexing, renaming)
type IndexFileWriter struct {
	*Writer

	file *atomicfile.File
	buf  *bufio.Writer
}

// CreateIndex starts writing a new index file
func CreateIndex(indexPath string) (*IndexFileWriter, error) {
	f, err := atomicfile.New(indexPath)
	if err != nil {
		return nil, err
	}
	w := &IndexFileWriter{
		file: f,
		buf:  bufio.NewWriter(f),
	}
	w.Writer = NewWriter(nil, w.buf)
	return w, nil
}

// Commit flushes the index and renames it to its destination
func (w *IndexFileWriter) Commit() error {
	err := w.buf.Flush()
	if err == nil {
		err = w.file.Close()
	}
	if err != nil {
		w.file.Abandon()
		return fmt.Errorf("failed to write %s: %w", w.file.Path(), err)
	}
	return nil
}

// Abort removes the temporary file. It's a no-op after Commit().
func (w *IndexFileWriter) Abort() {
	if w == nil {
		return
	}
	w.file.Abandon()
}
