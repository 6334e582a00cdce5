package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/kjk/ffindex/apply"
	"github.com/kjk/ffindex/extract"
	"github.com/kjk/ffindex/fasta"
	"github.com/kjk/ffindex/log"
	"github.com/kjk/ffindex/reindex"
	"github.com/kjk/ffindex/store"
	"github.com/kjk/ffindex/u"
	"github.com/tidwall/pretty"
)

// needArgs prints usage if fs has fewer than n positional arguments
func needArgs(fs *flag.FlagSet, n int) error {
	if fs.NArg() < n {
		fs.Usage()
		return errUsage
	}
	return nil
}

// outputPaths validates that -d and -i are given together
func outputPaths(fs *flag.FlagSet, dataPath string, indexPath string) error {
	if (dataPath == "") != (indexPath == "") {
		fmt.Fprintf(fs.Output(), "-d and -i must be used together\n")
		fs.Usage()
		return errUsage
	}
	return nil
}

func runApply(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("apply", stderr, "[flags] DATA INDEX -- PROGRAM [ARGS...]")
	var (
		jobs      int
		quiet     bool
		orderStr  string
		onErrStr  string
		dataOut   string
		indexOut  string
		showStats bool
		logDir    string
	)
	fs.IntVar(&jobs, "j", 1, "number of programs to run in parallel")
	fs.BoolVar(&quiet, "q", false, "don't log names of processed records")
	fs.StringVar(&orderStr, "order", "keep", "order of output records: keep, sort or data")
	fs.StringVar(&onErrStr, "on-error", "exit", "what to do when the program fails: exit, ignore, blank or original")
	fs.StringVar(&dataOut, "d", "", "output data file")
	fs.StringVar(&indexOut, "i", "", "output index file. Without -d and -i, outputs are written to stdout")
	fs.BoolVar(&showStats, "stats", false, "print a summary of the run to stderr")
	fs.StringVar(&logDir, "log-dir", "", "directory for log files")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 3); err != nil {
		return err
	}
	if err := outputPaths(fs, dataOut, indexOut); err != nil {
		return err
	}
	rest := fs.Args()
	dataPath, indexPath, program := rest[0], rest[1], rest[2:]
	if len(program) > 0 && program[0] == "--" {
		program = program[1:]
	}
	if len(program) == 0 {
		fs.Usage()
		return errUsage
	}

	order, err := apply.ParseOrder(orderStr)
	if err != nil {
		return err
	}
	onErr, err := apply.ParseErrorPolicy(onErrStr)
	if err != nil {
		return err
	}
	opts := &apply.Options{
		Jobs:    jobs,
		Order:   order,
		OnError: onErr,
		Verbose: !quiet,
		Diag:    stderr,
	}
	if err = opts.Validate(); err != nil {
		return err
	}

	log.Init(&log.Config{Dir: logDir})
	defer log.Close()

	src, err := store.OpenStore(dataPath, indexPath)
	if err != nil {
		return err
	}
	prevOutput := log.Output
	defer func() { log.Output = prevOutput }()
	var out apply.Output
	if dataOut == "" {
		out = apply.NewStreamOutput(stdout)
		// stdout has the records
		log.Output = stderr
	} else {
		out = apply.NewStoreOutput(dataOut, indexOut)
		log.Output = stdout
	}
	stats, err := apply.Run(ctx, src, program, out, opts)
	if showStats && stats != nil {
		d, jerr := json.Marshal(stats)
		if jerr == nil {
			stderr.Write(pretty.Pretty(d))
		}
	}
	if err != nil {
		return err
	}
	if !quiet {
		log.Logf("processed %d records in %s\n", stats.Records, u.FormatDuration(stats.Duration))
	}
	return nil
}

func runGet(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("get", stderr, "[flags] DATA INDEX [ENTRY...]")
	var (
		byOrdinal   bool
		entriesFile string
		dataOut     string
		indexOut    string
	)
	fs.BoolVar(&byOrdinal, "n", false, "entries are 0-based positions in the index instead of names")
	fs.StringVar(&entriesFile, "entries-file", "", "file with one entry per line")
	fs.StringVar(&dataOut, "d", "", "output data file")
	fs.StringVar(&indexOut, "i", "", "output index file. Without -d and -i, records are written to stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 2); err != nil {
		return err
	}
	if err := outputPaths(fs, dataOut, indexOut); err != nil {
		return err
	}
	entries := fs.Args()[2:]
	if (entriesFile == "") == (len(entries) == 0) {
		fmt.Fprintf(stderr, "either give entries as arguments or use -entries-file\n")
		fs.Usage()
		return errUsage
	}

	var keys []extract.Key
	var err error
	if entriesFile != "" {
		keys, err = extract.ReadKeys(entriesFile, byOrdinal)
	} else {
		keys, err = extract.ParseKeys(entries, byOrdinal)
	}
	if err != nil {
		return err
	}
	s, err := store.OpenStore(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if dataOut != "" {
		_, err = extract.GetToStore(s, keys, dataOut, indexOut)
		return err
	}
	_, err = extract.Get(s, keys, stdout)
	return err
}

func runReindex(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("reindex", stderr, "[flags] DATA INDEX_OUT")
	opts := &reindex.Options{}
	fs.BoolVar(&opts.ParseNames, "p", false, "name records after the first word of their content")
	fs.BoolVar(&opts.RenameDuplicates, "r", false, "append '"+reindex.DuplicateMarker+"' to duplicate names instead of failing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 2); err != nil {
		return err
	}
	_, err := reindex.Run(fs.Arg(0), fs.Arg(1), opts)
	return err
}

func runRename(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("rename", stderr, "[-i INDEX_OUT] DATA INDEX")
	var indexOut string
	fs.StringVar(&indexOut, "i", "", "output index file. Without -i, the index is written to stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 2); err != nil {
		return err
	}
	s, err := store.OpenStore(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if indexOut != "" {
		_, err = extract.Rename(s, indexOut)
		return err
	}
	buf := bufio.NewWriter(stdout)
	if _, err = extract.RenameTo(s, store.NewWriter(nil, buf)); err != nil {
		return err
	}
	return buf.Flush()
}

func runFromFasta(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("from_fasta", stderr, "DATA_OUT INDEX_OUT FASTA")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 3); err != nil {
		return err
	}
	_, err := fasta.Import(fs.Arg(2), fs.Arg(0), fs.Arg(1))
	return err
}

func runCheck(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := newFlagSet("check", stderr, "DATA INDEX")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := needArgs(fs, 2); err != nil {
		return err
	}
	s, err := store.OpenStore(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if err = s.Check(); err != nil {
		return err
	}
	var size int64
	for _, e := range s.Entries() {
		size += e.PayloadSize()
	}
	fmt.Fprintf(stdout, "%d records, %s\n", s.Len(), u.FormatSize(size))
	return nil
}
