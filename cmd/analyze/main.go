package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
)

var errFail = errors.New("fail")

var (
	summary = "analyze checks that an XSLT-style transformation preserves the type and validity contracts of a source/target schema pair"
	help    = ""
)

func main() {
	var (
		set  = cli.NewFlagSet("analyze")
		root = prepare()
	)
	root.SetSummary(summary)
	root.SetHelp(help)
	if err := set.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			root.Help()
			os.Exit(2)
		}
	}
	err := root.Execute(set.Args())
	if err != nil {
		if s, ok := err.(cli.SuggestionError); ok && len(s.Others) > 0 {
			fmt.Fprintln(os.Stderr, "similar command(s)")
			for _, n := range s.Others {
				fmt.Fprintln(os.Stderr, "-", n)
			}
		}
		if !errors.Is(err, errFail) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCodeFor(err))
	}
}

func prepare() *cli.CommandTrie {
	root := cli.New()
	root.Register([]string{"lint"}, &lintCmd)
	root.Register([]string{"grammar"}, &grammarCmd)
	root.Register([]string{"transducer"}, &transducerCmd)
	root.Register([]string{"check"}, &checkCmd)
	root.Register([]string{"validate"}, &validateCmd)
	return root
}

// exitCode lets a subcommand's Run signal a specific process exit code
// (spec §6: 0 valid, non-zero invalid, a distinct non-zero for subset
// rejection) without main hardcoding per-subcommand knowledge.
type exitCode struct {
	code int
	err  error
}

func (e exitCode) Error() string { return e.err.Error() }
func (e exitCode) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ec exitCode
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

const (
	exitInvalid         = 1
	exitSubsetRejected  = 2
	exitSchemaOrIOError = 3
)
