package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/xsltproof/internal/lintsubset"
	"github.com/midbel/xsltproof/xml"
)

var lintCmd = cli.Command{
	Name:    "lint",
	Summary: "check a stylesheet against the analyzable XSLT subset",
	Handler: &LintCmd{},
}

type LintCmd struct {
	Quiet bool
}

func (c *LintCmd) Run(args []string) error {
	set := flag.NewFlagSet("lint", flag.ContinueOnError)
	set.BoolVar(&c.Quiet, "q", false, "suppress warning output, print only errors")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("lint: missing stylesheet path")
	}

	data, err := os.ReadFile(set.Arg(0))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	doc, err := xml.ParseString(string(data))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: fmt.Errorf("malformed stylesheet: %w", err)}
	}

	result := lintsubset.Lint(doc)
	for _, d := range result.Errors() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if !c.Quiet {
		for _, d := range result.Warnings() {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}

	if !result.Valid() {
		return exitCode{code: exitSubsetRejected, err: fmt.Errorf("stylesheet rejected: %d error(s)", len(result.Errors()))}
	}
	fmt.Println("ok: stylesheet conforms to the analyzable subset")
	return nil
}
