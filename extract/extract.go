// Package extract reads a subset of records from a store, by name or by
// position in the index, and renames records based on their content.
package extract

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/kjk/ffindex/store"
	"github.com/kjk/ffindex/u"
)

// ErrDuplicate is returned when the same record is requested more than once
var ErrDuplicate = errors.New("record requested more than once")

// Key identifies a record either by name or by 0-based position in the index
type Key struct {
	name      string
	ordinal   int
	byOrdinal bool
}

func NameKey(name string) Key {
	return Key{name: name}
}

func OrdinalKey(i int) Key {
	return Key{ordinal: i, byOrdinal: true}
}

func (k Key) String() string {
	if k.byOrdinal {
		return "#" + strconv.Itoa(k.ordinal)
	}
	return k.name
}

// ParseKeys converts command-line entries to keys. If byOrdinal is true,
// every entry must be a non-negative integer.
func ParseKeys(entries []string, byOrdinal bool) ([]Key, error) {
	keys := make([]Key, 0, len(entries))
	for _, s := range entries {
		if !byOrdinal {
			keys = append(keys, NameKey(s))
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("expected a record position, got '%s'", s)
		}
		keys = append(keys, OrdinalKey(n))
	}
	return keys, nil
}

// ReadKeys reads keys from a file with one entry per line. Empty lines are skipped.
func ReadKeys(path string, byOrdinal bool) ([]Key, error) {
	lines, err := u.ReadLines(path)
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range lines {
		if line != "" {
			entries = append(entries, line)
		}
	}
	return ParseKeys(entries, byOrdinal)
}

// resolve returns positions of keys in s, in the order of keys, and the
// set of those positions
func resolve(s *store.Store, keys []Key) ([]int, *roaring.Bitmap, error) {
	if uint64(s.Len()) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%s: too many records (%d)", s.IndexPath, s.Len())
	}
	positions := make([]int, len(keys))
	set := roaring.New()
	for i, k := range keys {
		pos := k.ordinal
		if k.byOrdinal {
			if _, ok := s.Entry(pos); !ok {
				return nil, nil, fmt.Errorf("%w: record at position %d, store has %d records", store.ErrNotFound, pos, s.Len())
			}
		} else {
			var ok bool
			if _, pos, ok = s.Lookup(k.name); !ok {
				return nil, nil, fmt.Errorf("%w: record '%s'", store.ErrNotFound, k.name)
			}
		}
		if !set.CheckedAdd(uint32(pos)) {
			return nil, nil, fmt.Errorf("%w: '%s'", ErrDuplicate, k)
		}
		positions[i] = pos
	}
	return positions, set, nil
}

// forEachInDataOrder reads selected records in the order of the index
func forEachInDataOrder(s *store.Store, set *roaring.Bitmap, fn func(pos int, e *store.Entry, payload []byte) error) error {
	r, err := s.OpenReader()
	if err != nil {
		return err
	}
	defer r.Close()
	it := set.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		e, _ := s.Entry(pos)
		d, err := r.Read(e.Start, e.Length, true)
		if err != nil {
			return err
		}
		if err = fn(pos, e, d); err != nil {
			return err
		}
	}
	return nil
}

// Get writes payloads of the requested records to w, without sentinels.
// Records are written in the order of the index, not the order of keys.
// All keys must exist and be unique.
func Get(s *store.Store, keys []Key, w io.Writer) (int, error) {
	_, set, err := resolve(s, keys)
	if err != nil {
		return 0, err
	}
	n := 0
	err = forEachInDataOrder(s, set, func(pos int, e *store.Entry, payload []byte) error {
		if _, err := w.Write(payload); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// GetToStore writes the requested records to a new store. Data is written in
// the order of the source index, index lines in the order of keys.
func GetToStore(s *store.Store, keys []Key, dataPath string, indexPath string) (int, error) {
	positions, set, err := resolve(s, keys)
	if err != nil {
		return 0, err
	}
	w, err := store.Create(dataPath, indexPath)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	written := map[int]store.Entry{}
	err = forEachInDataOrder(s, set, func(pos int, e *store.Entry, payload []byte) error {
		start, length, err := w.AppendRecord(payload)
		if err != nil {
			return err
		}
		written[pos] = store.Entry{Name: e.Name, Start: start, Length: length}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, pos := range positions {
		e := written[pos]
		if err = w.WriteIndexLine(e.Name, e.Start, e.Length); err != nil {
			return 0, err
		}
	}
	if err = w.Commit(); err != nil {
		return 0, err
	}
	return len(positions), nil
}

// Rename writes a new index for s to indexPath, see RenameTo.
// indexPath is only created if all records were renamed.
func Rename(s *store.Store, indexPath string) (int, error) {
	w, err := store.CreateIndex(indexPath)
	if err != nil {
		return 0, err
	}
	defer w.Abort()

	n, err := RenameTo(s, w.Writer)
	if err != nil {
		return n, err
	}
	if err = w.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// RenameTo writes index lines for s to w in which every record is named
// after the first token of its content, with leading '#' and '>' stripped.
// Offsets are unchanged. An empty or duplicate name is an error.
func RenameTo(s *store.Store, w *store.Writer) (int, error) {
	r, err := s.OpenReader()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for pos, e := range s.Entries() {
		header, err := r.ReadHeader(e)
		if err != nil {
			return pos, err
		}
		name := store.NameFromHeader(header)
		if name == "" {
			return pos, fmt.Errorf("%w: empty name for record '%s' at position %d", store.ErrFormat, e.Name, pos)
		}
		if err = w.WriteIndexLine(name, e.Start, e.Length); err != nil {
			return pos, fmt.Errorf("record '%s' at position %d: %w", e.Name, pos, err)
		}
	}
	return s.Len(), nil
}
