// Package store implements a two-file record store: a data file with
// concatenated records and a text index file.
//
// # Store Structure
//
// The data file holds record payloads, each followed by a single
// sentinel byte (value 0). The index file has one line per record:
//
//	<name>\t<start>\t<length>\n
//
// start is the offset of the record in the data file and length is the size
// of the record including the sentinel, so the payload is length - 1 bytes.
// Names are opaque tokens and can't contain tabs or newlines.
//
// # Basic Usage
//
//	s, err := store.OpenStore("db.ffdata", "db.ffindex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range s.Entries() {
//	    d, err := s.ReadRecord(e, true)
//	    // ...
//	}
//
// Writing a new store:
//
//	w, err := store.Create("out.ffdata", "out.ffindex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Abort()
//	_, err = w.Append("rec1", []byte("hello"))
//	// ...
//	err = w.Commit()
//
// Output files are written to temporary files and only appear at their
// destination after a successful Commit().
//
// # Concurrency
//
// A Store is read-only after OpenStore and can be shared between goroutines.
// Every read opens its own file handle so concurrent reads don't share a
// file cursor. A Writer is meant to be used from a single goroutine.
package store
