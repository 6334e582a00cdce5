package fasta

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/kjk/ffindex/store"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var compressors = map[string]func(w io.Writer) (io.WriteCloser, error){
	".gz": func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	},
	".zst": func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	},
	".br": func(w io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriter(w), nil
	},
	".lz4": func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	},
}

// writeFixture writes content to path, compressed if path has
// one of the compressors' extensions
func writeFixture(t *testing.T, path string, content string) {
	d := []byte(content)
	if newWriter, ok := compressors[filepath.Ext(path)]; ok {
		var buf bytes.Buffer
		w, err := newWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(d)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		d = buf.Bytes()
	}
	require.NoError(t, os.WriteFile(path, d, 0644))
}

const testFasta = `>seq1 first sequence
ACGTACGT
ACGT
>seq2
GGGG
>empty
>seq3 last
TTTT
`

func importString(t *testing.T, name string, content string) (*store.Store, error) {
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	writeFixture(t, path, content)
	dataPath := filepath.Join(dir, "db.ffdata")
	indexPath := filepath.Join(dir, "db.ffindex")
	if _, err := Import(path, dataPath, indexPath); err != nil {
		return nil, err
	}
	return store.OpenStore(dataPath, indexPath)
}

func TestImportRoundTrip(t *testing.T) {
	for _, name := range []string{"in.fa", "in.fa.gz", "in.fa.zst", "in.fa.br", "in.fa.lz4"} {
		s, err := importString(t, name, testFasta)
		require.NoError(t, err, name)
		require.NoError(t, s.Check())

		var names []string
		var all strings.Builder
		for _, e := range s.Entries() {
			names = append(names, e.Name)
			d, err := s.ReadRecord(e, true)
			require.NoError(t, err)
			all.Write(d)
		}
		assert.Equal(t, []string{"seq1", "seq2", "empty", "seq3"}, names, name)
		assert.Equal(t, testFasta, all.String(), name)

		e, _, ok := s.Lookup("seq2")
		require.True(t, ok)
		d, err := s.ReadRecord(e, true)
		require.NoError(t, err)
		assert.Equal(t, ">seq2\nGGGG\n", string(d))
	}
}

func TestForEachRecord(t *testing.T) {
	in := "\n>a  desc \r\nAC\r\nGT"
	var recs []*Record
	err := ForEachRecord(strings.NewReader(in), func(rec *Record) error {
		recs = append(recs, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a  desc", recs[0].Header)
	assert.Equal(t, "a", recs[0].Name())
	assert.Equal(t, "AC\r\nGT", string(recs[0].Seq))
	assert.Equal(t, ">a  desc\nAC\r\nGT", string(recs[0].Payload()))

	err = ForEachRecord(strings.NewReader(""), func(rec *Record) error {
		t.Fatal("no records expected")
		return nil
	})
	require.NoError(t, err)
}

func TestImportErrors(t *testing.T) {
	tests := []string{
		"ACGT\n>a\nAC\n",
		">a\nAC\n>a second\nGT\n",
		">\nACGT\n",
		">  \nACGT\n",
	}
	for _, in := range tests {
		_, err := importString(t, "in.fa", in)
		assert.ErrorIs(t, err, store.ErrFormat, "input: %q", in)
	}

	_, err := Import(filepath.Join(t.TempDir(), "missing.fa"), "x.ffdata", "x.ffindex")
	assert.Error(t, err)
}

func TestImportFailureLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.fa")
	require.NoError(t, os.WriteFile(path, []byte(">a\nAC\n>a\nGT\n"), 0644))
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0755))
	_, err := Import(path, filepath.Join(outDir, "db.ffdata"), filepath.Join(outDir, "db.ffindex"))
	require.Error(t, err)
	files, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}
