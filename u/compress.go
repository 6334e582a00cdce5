package u

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// Close() releases the decompressor (if needed) and closes the file
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	release func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.release != nil {
		rc.release()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

type decompressor func(f io.Reader) (io.Reader, func(), error)

var decompressors = map[string]decompressor{
	".gz": func(f io.Reader) (io.Reader, func(), error) {
		r, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	},
	".bz2": func(f io.Reader) (io.Reader, func(), error) {
		return bzip2.NewReader(f), nil, nil
	},
	".zst": openZstd,
	// kept for compatibility with older files
	".zstd": openZstd,
	".br": func(f io.Reader) (io.Reader, func(), error) {
		return brotli.NewReader(f), nil, nil
	},
	".lz4": func(f io.Reader) (io.Reader, func(), error) {
		return lz4.NewReader(f), nil, nil
	},
}

func openZstd(f io.Reader) (io.Reader, func(), error) {
	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip,
// bzip2, zstd, brotli or lz4, based on file extension.
// "-" means stdin, which is never decompressed.
// TODO: could sniff file content instead of checking file extension
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := decompressors[ext]
	if !ok {
		return f, nil
	}
	r, release, err := open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readerWrappedFile{f: f, r: r, release: release}, nil
}
