// Package apply runs an external program once per record of a store and
// writes the program's outputs as a new store.
//
// Every record's payload (without the sentinel) is written to the program's
// stdin and its stdout becomes the new payload. Programs run in parallel, up
// to Options.Jobs at a time. Records are written in an order determined by
// Options.Order, independent of the order in which the programs finish.
//
// A program that exits with a non-zero code is reported to Options.Diag and
// handled according to Options.OnError.
//
//	src, err := store.OpenStore("in.ffdata", "in.ffindex")
//	// ...
//	out := apply.NewStoreOutput("out.ffdata", "out.ffindex")
//	opts := &apply.Options{Jobs: 8, Order: apply.OrderSort}
//	stats, err := apply.Run(ctx, src, []string{"tr", "a-z", "A-Z"}, out, opts)
//
// If Run fails, the output store is not created.
//
// All records are dispatched up front and at most Jobs programs run at a
// time. With OrderKeep or OrderSort, records that finish before the next
// record in output order are kept in memory until it finishes. Dispatch
// doesn't wait for them, so one slow record can hold back many finished ones.
package apply
