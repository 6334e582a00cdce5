package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrAbandoned is returned by calls made after Abandon()
	ErrAbandoned = errors.New("atomicfile: abandoned")

	_ io.WriteCloser = &File{}
)

// permissions of the destination file
const filePerm = 0644

// File is written to a temporary file and renamed to its destination
// on successful Close()
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	// first error we encountered, sticky
	err error
}

// New creates a temporary file next to path.
// Fails early if the directory of path doesn't exist.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return nil, err
	}
	f := &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}
	// CreateTemp uses 0600
	if err = tmpFile.Chmod(filePerm); err != nil {
		return nil, f.fail(err)
	}
	return f, nil
}

// Path returns the destination path
func (f *File) Path() string {
	return f.dstPath
}

// fail remembers the first error and removes the temporary file
func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.fail(err)
}

func (f *File) WriteString(s string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.WriteString(s)
	return n, f.fail(err)
}

func (f *File) Sync() error {
	if f.err != nil {
		return f.err
	}
	return f.fail(f.tmpFile.Sync())
}

func (f *File) closed() bool {
	return f.tmpFile == nil
}

// Abandon removes the temporary file if Close() wasn't called yet.
// The destination is not created or modified.
// Meant to be used with defer, it's a no-op after Close().
func (f *File) Abandon() {
	if f == nil || f.closed() {
		return
	}
	f.err = ErrAbandoned
	_ = f.Close()
}

// Close commits the file by renaming it to the destination, unless there
// was an error before. Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.closed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		// over-writes dstPath if it exists
		err = os.Rename(f.tmpPath, f.dstPath)
		renamed = err == nil
	}
	if renamed {
		// survive a crash right after rename. errors are not fatal
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}
