package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjk/ffindex/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStore(t *testing.T, names []string, payloads []string) *store.Store {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "db.ffdata")
	indexPath := filepath.Join(dir, "db.ffindex")
	w, err := store.Create(dataPath, indexPath)
	require.NoError(t, err)
	defer w.Abort()
	for i, name := range names {
		_, err = w.Append(name, []byte(payloads[i]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Commit())
	s, err := store.OpenStore(dataPath, indexPath)
	require.NoError(t, err)
	return s
}

func testStore(t *testing.T) *store.Store {
	return createStore(t,
		[]string{"a", "b", "c", "d"},
		[]string{">x1 first\nAC\n", ">x2\nGG\n", "#x3\n", ">x4\n"})
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{"a", "12"}, false)
	require.NoError(t, err)
	assert.Equal(t, []Key{NameKey("a"), NameKey("12")}, keys)

	keys, err = ParseKeys([]string{"0", "12"}, true)
	require.NoError(t, err)
	assert.Equal(t, []Key{OrdinalKey(0), OrdinalKey(12)}, keys)
	assert.Equal(t, "#12", keys[1].String())

	for _, s := range []string{"a", "-1", "1.5", ""} {
		_, err = ParseKeys([]string{s}, true)
		assert.Error(t, err, "entry: '%s'", s)
	}
}

func TestReadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.txt")
	require.NoError(t, os.WriteFile(path, []byte("c\n\na\r\n"), 0644))
	keys, err := ReadKeys(path, false)
	require.NoError(t, err)
	assert.Equal(t, []Key{NameKey("c"), NameKey("a")}, keys)

	_, err = ReadKeys(filepath.Join(t.TempDir(), "missing.txt"), false)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	s := testStore(t)
	var buf bytes.Buffer
	// written in index order
	n, err := Get(s, []Key{NameKey("c"), NameKey("a")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ">x1 first\nAC\n#x3\n", buf.String())

	buf.Reset()
	n, err = Get(s, []Key{OrdinalKey(3), OrdinalKey(1)}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ">x2\nGG\n>x4\n", buf.String())
}

func TestGetErrors(t *testing.T) {
	s := testStore(t)
	var buf bytes.Buffer
	_, err := Get(s, []Key{NameKey("a"), NameKey("zz")}, &buf)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = Get(s, []Key{OrdinalKey(4)}, &buf)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = Get(s, []Key{NameKey("b"), NameKey("b")}, &buf)
	assert.ErrorIs(t, err, ErrDuplicate)
	// nothing is written if a key is invalid
	assert.Equal(t, 0, buf.Len())
}

func TestGetToStore(t *testing.T) {
	s := testStore(t)
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "sub.ffdata")
	indexPath := filepath.Join(dir, "sub.ffindex")
	n, err := GetToStore(s, []Key{NameKey("d"), NameKey("b")}, dataPath, indexPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	index, err := os.ReadFile(indexPath)
	require.NoError(t, err)
	assert.Equal(t, "d\t8\t5\nb\t0\t8\n", string(index))

	sub, err := store.OpenStore(dataPath, indexPath)
	require.NoError(t, err)
	require.NoError(t, sub.Check())
	e, _, ok := sub.Lookup("d")
	require.True(t, ok)
	d, err := sub.ReadRecord(e, true)
	require.NoError(t, err)
	assert.Equal(t, ">x4\n", string(d))

	_, err = GetToStore(s, []Key{NameKey("nope")}, dataPath+"2", indexPath+"2")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.NoFileExists(t, dataPath+"2")
	assert.NoFileExists(t, indexPath+"2")
}

func TestRename(t *testing.T) {
	s := testStore(t)
	indexPath := filepath.Join(t.TempDir(), "renamed.ffindex")
	n, err := Rename(s, indexPath)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	renamed, err := store.OpenStore(s.DataPath, indexPath)
	require.NoError(t, err)
	var names []string
	for i, e := range renamed.Entries() {
		names = append(names, e.Name)
		orig, _ := s.Entry(i)
		assert.Equal(t, orig.Start, e.Start)
		assert.Equal(t, orig.Length, e.Length)
	}
	assert.Equal(t, []string{"x1", "x2", "x3", "x4"}, names)
}

func TestRenameErrors(t *testing.T) {
	dup := createStore(t, []string{"a", "b"}, []string{">same 1\n", "#same\n"})
	indexPath := filepath.Join(t.TempDir(), "renamed.ffindex")
	_, err := Rename(dup, indexPath)
	assert.ErrorIs(t, err, store.ErrFormat)
	assert.NoFileExists(t, indexPath)

	empty := createStore(t, []string{"a", "b"}, []string{">ok\n", "\nno header\n"})
	_, err = Rename(empty, indexPath)
	assert.ErrorIs(t, err, store.ErrFormat)
	assert.NoFileExists(t, indexPath)
}

func TestRenameTo(t *testing.T) {
	s := testStore(t)
	var index bytes.Buffer
	n, err := RenameTo(s, store.NewWriter(nil, &index))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "x1\t0\t14\nx2\t14\t8\nx3\t22\t5\nx4\t27\t5\n", index.String())

	dup := createStore(t, []string{"a", "b"}, []string{">same\n", ">same\n"})
	index.Reset()
	n, err = RenameTo(dup, store.NewWriter(nil, &index))
	assert.ErrorIs(t, err, store.ErrFormat)
	assert.Equal(t, 1, n)
}
