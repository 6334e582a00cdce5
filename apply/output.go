package apply

import (
	"bufio"
	"io"

	"github.com/kjk/ffindex/store"
)

// Output receives records from Run. Write is only called from a single
// goroutine, between Begin and Commit.
type Output interface {
	Begin() error
	Write(name string, payload []byte) error
	// Commit is called after all records were written successfully
	Commit() error
	// Abort is called instead of Commit if the run failed
	Abort()
}

// StoreOutput writes records to a new store
type StoreOutput struct {
	DataPath  string
	IndexPath string

	w *store.FileWriter
}

// NewStoreOutput returns an Output writing to a store at dataPath and indexPath.
// The files are only created if the run succeeds.
func NewStoreOutput(dataPath string, indexPath string) *StoreOutput {
	return &StoreOutput{
		DataPath:  dataPath,
		IndexPath: indexPath,
	}
}

func (o *StoreOutput) Begin() error {
	w, err := store.Create(o.DataPath, o.IndexPath)
	if err != nil {
		return err
	}
	o.w = w
	return nil
}

func (o *StoreOutput) Write(name string, payload []byte) error {
	_, err := o.w.Append(name, payload)
	return err
}

func (o *StoreOutput) Commit() error {
	return o.w.Commit()
}

func (o *StoreOutput) Abort() {
	o.w.Abort()
}

// StreamOutput concatenates payloads to a writer, without sentinels and
// without an index. Records are always written in the order their
// programs finish.
type StreamOutput struct {
	buf *bufio.Writer
}

func NewStreamOutput(w io.Writer) *StreamOutput {
	return &StreamOutput{
		buf: bufio.NewWriter(w),
	}
}

func (o *StreamOutput) Begin() error {
	return nil
}

func (o *StreamOutput) Write(name string, payload []byte) error {
	_, err := o.buf.Write(payload)
	return err
}

func (o *StreamOutput) Commit() error {
	return o.buf.Flush()
}

// Abort flushes what was buffered. What was already written can't be taken back.
func (o *StreamOutput) Abort() {
	_ = o.buf.Flush()
}
