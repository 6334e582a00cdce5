package apply

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/kjk/ffindex/log"
	"github.com/kjk/ffindex/store"
	"github.com/kjk/ffindex/u"
	"golang.org/x/sync/errgroup"
)

// Stats summarizes a run
type Stats struct {
	// number of records in the source store
	Records int `json:"records"`
	// number of records written to the output
	Written int `json:"written"`
	// number of records for which the program failed
	Failed int `json:"failed"`
	// number of failed records left out of the output
	Dropped  int           `json:"dropped"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// result of running the program for one record
type result struct {
	entry *store.Entry
	input []byte
	exec  *u.ExecResult
	// failed to read the record or to run the program
	err error
}

// record ready to be written once all records before it are written
type pendingRecord struct {
	payload []byte
	drop    bool
}

// state of a single Run
type runner struct {
	src     *store.Store
	command []string
	out     Output
	opts    Options

	// names in output order. nil if records are written as they finish
	order   []string
	next    int
	pending map[string]*pendingRecord
	stats   Stats
}

// Run runs command for every record of src and writes the results to out.
// command[0] is the program, the rest are its arguments.
// On error, out.Abort() is called and returned Stats describe the work done
// before the failure.
func Run(ctx context.Context, src *store.Store, command []string, out Output, opts *Options) (*Stats, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("%w: no program to run", ErrInvalidOptions)
	}
	r := &runner{
		src:     src,
		command: command,
		out:     out,
		opts:    opts.withDefaults(),
		pending: map[string]*pendingRecord{},
	}
	return r.run(ctx)
}

// inCompletionOrder returns true if records are written as soon as they finish
func (r *runner) inCompletionOrder() bool {
	if _, ok := r.out.(*StreamOutput); ok {
		return true
	}
	return r.opts.Order == OrderData
}

// tasks returns entries in the order in which they are dispatched
func (r *runner) tasks() []*store.Entry {
	entries := r.src.Entries()
	if r.opts.Order == OrderSort {
		slices.SortStableFunc(entries, func(a, b *store.Entry) int {
			return strings.Compare(a.Name, b.Name)
		})
	}
	return entries
}

func (r *runner) run(ctx context.Context) (*Stats, error) {
	timeStart := time.Now()
	entries := r.tasks()
	r.stats.Records = len(entries)
	if !r.inCompletionOrder() {
		r.order = make([]string, len(entries))
		for i, e := range entries {
			r.order[i] = e.Name
		}
	}

	if err := r.out.Begin(); err != nil {
		return nil, err
	}
	err := r.process(ctx, entries)
	if err == nil {
		err = r.checkAllWritten()
	}
	if err == nil {
		err = r.out.Commit()
	} else {
		r.out.Abort()
	}
	r.stats.Duration = time.Since(timeStart)
	if err != nil {
		log.Event("apply_failed", "records", r.stats.Records, "written", r.stats.Written, "error", err.Error())
		return &r.stats, err
	}
	log.EventWithDuration("apply_done", r.stats.Duration, "records", r.stats.Records, "written", r.stats.Written, "failed", r.stats.Failed, "jobs", r.opts.Jobs)
	return &r.stats, nil
}

// process runs the program for entries on a pool of opts.Jobs workers.
// Results are consumed on the calling goroutine, which is the only one
// writing to the output.
func (r *runner) process(ctx context.Context, entries []*store.Entry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(r.opts.Jobs)
	results := make(chan *result, r.opts.Jobs)

	go func() {
		defer close(results)
		for _, e := range entries {
			if ctx.Err() != nil {
				break
			}
			// blocks while Jobs workers are busy
			g.Go(func() error {
				res := r.transform(ctx, e)
				select {
				case results <- res:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	var firstErr error
	for res := range results {
		if firstErr != nil {
			// draining so that workers can finish
			continue
		}
		if err := r.consume(res); err != nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// transform runs on a worker goroutine
func (r *runner) transform(ctx context.Context, e *store.Entry) *result {
	res := &result{entry: e}
	res.input, res.err = r.src.ReadRecord(e, true)
	if res.err != nil {
		return res
	}
	res.exec, res.err = u.RunWithInput(ctx, res.input, r.command[0], r.command[1:]...)
	return res
}

func (r *runner) consume(res *result) error {
	name := res.entry.Name
	if res.err != nil {
		return fmt.Errorf("record %s: %w", name, res.err)
	}

	payload := res.exec.Stdout
	drop := false
	if res.exec.ExitCode != 0 {
		r.stats.Failed++
		terr := &TransformError{
			Name:     name,
			ExitCode: res.exec.ExitCode,
			Stderr:   res.exec.Stderr,
		}
		r.reportFailure(terr)
		switch r.opts.OnError {
		case OnErrorExit:
			return terr
		case OnErrorIgnore:
			drop = true
		case OnErrorBlank:
			payload = nil
		case OnErrorOriginal:
			payload = res.input
		}
	} else if r.opts.Verbose {
		log.Logf("%s\n", name)
	}

	if r.order == nil {
		if drop {
			r.stats.Dropped++
			return nil
		}
		return r.write(name, payload)
	}
	_, dup := r.pending[name]
	u.PanicIf(dup, "record %s finished twice", name)
	r.pending[name] = &pendingRecord{payload: payload, drop: drop}
	return r.drain()
}

// drain writes pending records for as long as the next record in output
// order is available
func (r *runner) drain() error {
	for r.next < len(r.order) {
		name := r.order[r.next]
		rec, ok := r.pending[name]
		if !ok {
			return nil
		}
		// every record before next was written or dropped
		done := r.stats.Written + r.stats.Dropped
		u.PanicIf(done != r.next, "%d records written or dropped, expected %d", done, r.next)
		delete(r.pending, name)
		r.next++
		if rec.drop {
			r.stats.Dropped++
			continue
		}
		if err := r.write(name, rec.payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) write(name string, payload []byte) error {
	if err := r.out.Write(name, payload); err != nil {
		return fmt.Errorf("failed to write record %s: %w", name, err)
	}
	r.stats.Written++
	r.stats.Bytes += int64(len(payload))
	return nil
}

func (r *runner) reportFailure(terr *TransformError) {
	io.WriteString(r.opts.Diag, terr.Error()+"\n")
	log.Event("transform_failure", "name", terr.Name, "exit_code", terr.ExitCode, "stderr", terr.Message())
}

func (r *runner) checkAllWritten() error {
	if len(r.pending) > 0 || r.next < len(r.order) {
		return fmt.Errorf("%w: %d of %d records written, %d still pending", ErrConsistency, r.next, len(r.order), len(r.pending))
	}
	if n := r.stats.Written + r.stats.Dropped; n != r.stats.Records {
		return fmt.Errorf("%w: %d records written or dropped, expected %d", ErrConsistency, n, r.stats.Records)
	}
	return nil
}
