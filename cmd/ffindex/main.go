// ffindex manages stores made of a data file and an index file.
//
//	ffindex apply [-j N] [-q] [-order keep|sort|data] [-on-error exit|ignore|blank|original] [-d DATA_OUT -i INDEX_OUT] DATA INDEX -- PROGRAM [ARGS...]
//	ffindex get [-n] [-entries-file FILE] [-d DATA_OUT -i INDEX_OUT] DATA INDEX [ENTRY...]
//	ffindex reindex [-p] [-r] DATA INDEX_OUT
//	ffindex rename [-i INDEX_OUT] DATA INDEX
//	ffindex from_fasta DATA_OUT INDEX_OUT FASTA
//	ffindex check DATA INDEX
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

type command struct {
	name  string
	short string
	run   func(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error
}

var commands []*command

func init() {
	commands = []*command{
		{"apply", "run a program for every record and write the results as a new store", runApply},
		{"get", "extract records by name or position", runGet},
		{"reindex", "rebuild the index of a data file", runReindex},
		{"rename", "rename records based on the first line of their content", runRename},
		{"from_fasta", "create a store from a FASTA file", runFromFasta},
		{"check", "verify that the index matches the data file", runCheck},
	}
}

// errUsage means the usage was already printed
var errUsage = errors.New("invalid arguments")

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: ffindex <command> [arguments]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.short)
	}
	fmt.Fprintf(w, "\nrun 'ffindex <command> -h' for help on a command\n")
}

func newFlagSet(name string, stderr io.Writer, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: ffindex %s %s\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns errUsage for invalid flags and flag.ErrHelp for -h
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return errUsage
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}
	name := args[0]
	if name == "-h" || name == "-help" || name == "--help" || name == "help" {
		usage(stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "unknown command '%s'\n\n", name)
	usage(stderr)
	return errUsage
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return
	}
	if !errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	}
	os.Exit(1)
}
