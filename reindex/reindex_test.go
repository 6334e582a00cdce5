package reindex

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kjk/ffindex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanString(t *testing.T, data string, opts *Options) (string, int, error) {
	var index bytes.Buffer
	n, err := Scan(strings.NewReader(data), &index, opts)
	return index.String(), n, err
}

func TestScanOrdinalNames(t *testing.T) {
	index, n, err := scanString(t, "abc\x00\x00hello world\x00", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0\t0\t4\n1\t4\t1\n2\t5\t12\n", index)
}

func TestScanParseNames(t *testing.T) {
	data := ">seq1 desc\nACGT\x00#seq2\nAC\x00plain\x00"
	index, n, err := scanString(t, data, &Options{ParseNames: true})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "seq1\t0\t16\nseq2\t16\t9\nplain\t25\t6\n", index)
}

func TestScanSmallChunks(t *testing.T) {
	data := ">seq1 desc\nACGT\x00#seq2\nAC\x00plain\x00"
	want, _, err := scanString(t, data, &Options{ParseNames: true})
	require.NoError(t, err)
	for _, chunkSize := range []int{1, 2, 3, 7} {
		got, _, err := scanString(t, data, &Options{ParseNames: true, ChunkSize: chunkSize})
		require.NoError(t, err)
		assert.Equal(t, want, got, "chunk size %d", chunkSize)
	}
}

func TestScanDuplicates(t *testing.T) {
	data := ">foo a\x00>foo b\x00#foo\x00bar\x00"
	_, _, err := scanString(t, data, &Options{ParseNames: true})
	require.ErrorIs(t, err, store.ErrFormat)
	assert.Contains(t, err.Error(), "duplicate name 'foo'")

	index, n, err := scanString(t, data, &Options{ParseNames: true, RenameDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "foo\t0\t7\nfoo^\t7\t7\nfoo^^\t14\t5\nbar\t19\t4\n", index)
}

func TestScanEmptyName(t *testing.T) {
	for _, data := range []string{"\x00", ">\nACGT\x00", "#> x\x00", " lead\x00"} {
		_, _, err := scanString(t, data, &Options{ParseNames: true, RenameDuplicates: true})
		assert.ErrorIs(t, err, store.ErrFormat, "data: %q", data)
	}
	// ordinal names don't care
	_, n, err := scanString(t, "\x00", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanTrailingBytes(t *testing.T) {
	_, _, err := scanString(t, "abc\x00def", nil)
	assert.ErrorIs(t, err, store.ErrFormat)

	index, n, err := scanString(t, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, index)
}

func writeStore(t *testing.T, dir string, names []string, payloads []string) *store.Store {
	dataPath := filepath.Join(dir, "db.ffdata")
	indexPath := filepath.Join(dir, "db.ffindex")
	w, err := store.Create(dataPath, indexPath)
	require.NoError(t, err)
	defer w.Abort()
	for i, name := range names {
		_, err := w.Append(name, []byte(payloads[i]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Commit())
	s, err := store.OpenStore(dataPath, indexPath)
	require.NoError(t, err)
	return s
}

func TestRunMatchesWrittenStore(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a", "b", "c", "d"}
	payloads := []string{">a x\nAAA\n", "", ">c\n" + strings.Repeat("C", 5000), ">d\n"}
	s := writeStore(t, dir, names, payloads)

	indexPath := filepath.Join(dir, "re.ffindex")
	n, err := Run(s.DataPath, indexPath, &Options{ChunkSize: 1000})
	require.NoError(t, err)
	require.Equal(t, len(names), n)

	s2, err := store.OpenStore(s.DataPath, indexPath)
	require.NoError(t, err)
	orig := s.Entries()
	for i, e := range s2.Entries() {
		assert.Equal(t, orig[i].Start, e.Start, "record %d", i)
		assert.Equal(t, orig[i].Length, e.Length, "record %d", i)
	}
	require.NoError(t, s2.Check())
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := writeStore(t, dir, []string{"x", "y", "z"}, []string{">dup 1\n", ">dup 2\n", "#other\n"})
	opts := &Options{ParseNames: true, RenameDuplicates: true}

	p1 := filepath.Join(dir, "1.ffindex")
	p2 := filepath.Join(dir, "2.ffindex")
	_, err := Run(s.DataPath, p1, opts)
	require.NoError(t, err)
	_, err = Run(s.DataPath, p2, opts)
	require.NoError(t, err)

	d1, err := os.ReadFile(p1)
	require.NoError(t, err)
	d2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, string(d1), string(d2))
	assert.Equal(t, "dup\t0\t8\ndup^\t8\t8\nother\t16\t8\n", string(d1))
}

func TestRunFailureLeavesNoIndex(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "db.ffdata")
	indexPath := filepath.Join(dir, "db.ffindex")
	require.NoError(t, os.WriteFile(dataPath, []byte(">a\x00>a\x00"), 0644))

	_, err := Run(dataPath, indexPath, &Options{ParseNames: true})
	require.ErrorIs(t, err, store.ErrFormat)
	_, err = os.Stat(indexPath)
	assert.True(t, os.IsNotExist(err))

	_, err = Run(filepath.Join(dir, "missing.ffdata"), indexPath, nil)
	assert.Error(t, err)
}
