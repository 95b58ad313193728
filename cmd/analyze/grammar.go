package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/xml"
)

var grammarCmd = cli.Command{
	Name:    "grammar",
	Summary: "convert an XSD schema into its regular tree grammar",
	Handler: &GrammarCmd{},
}

type GrammarCmd struct {
	Pretty bool
}

func (c *GrammarCmd) Run(args []string) error {
	set := flag.NewFlagSet("grammar", flag.ContinueOnError)
	set.BoolVar(&c.Pretty, "pretty", true, "pretty-print the JSON grammar")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("grammar: missing schema path")
	}

	data, err := os.ReadFile(set.Arg(0))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	doc, err := xml.ParseString(string(data))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: fmt.Errorf("malformed schema: %w", err)}
	}

	grammar, trace, err := treegrammar.Build(doc)
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	for _, d := range trace.Warnings() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if trace.HasErrors() {
		for _, d := range trace.Errors() {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return exitCode{code: exitInvalid, err: fmt.Errorf("schema defect: %d error(s)", len(trace.Errors()))}
	}

	return printJSON(grammar, c.Pretty)
}

func printJSON(v any, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
