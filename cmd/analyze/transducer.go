package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/xml"
)

var transducerCmd = cli.Command{
	Name:    "transducer",
	Summary: "convert a stylesheet into its macro tree transducer representation",
	Handler: &TransducerCmd{},
}

type TransducerCmd struct {
	Pretty bool
}

func (c *TransducerCmd) Run(args []string) error {
	set := flag.NewFlagSet("transducer", flag.ContinueOnError)
	set.BoolVar(&c.Pretty, "pretty", true, "pretty-print the JSON transducer")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("transducer: missing stylesheet path")
	}

	data, err := os.ReadFile(set.Arg(0))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	doc, err := xml.ParseString(string(data))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: fmt.Errorf("malformed stylesheet: %w", err)}
	}

	mtt, trace, err := transducer.Build(doc)
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
		return exitCode{code: exitInvalid, err: fmt.Errorf("stylesheet defect: %d error(s)", len(trace.Errors()))}
	}

	return printJSON(mtt, c.Pretty)
}
