package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/xsltproof/internal/cliutil"
	"github.com/midbel/xsltproof/internal/logging"
	"github.com/midbel/xsltproof/internal/pipeline"
	"github.com/midbel/xsltproof/internal/preimage"
	"github.com/midbel/xsltproof/internal/treegrammar"
)

var validateCmd = cli.Command{
	Name:    "validate",
	Summary: "run the full subset/grammar/transducer/type/validity pipeline over a source schema, target schema, and stylesheet",
	Handler: &ValidateCmd{},
}

type ValidateCmd struct {
	Pretty          bool
	NoSpinner       bool
	Counterexamples bool
}

func (c *ValidateCmd) Run(args []string) error {
	set := flag.NewFlagSet("validate", flag.ContinueOnError)
	set.BoolVar(&c.Pretty, "pretty", true, "pretty-print the JSON result")
	set.BoolVar(&c.NoSpinner, "no-spinner", false, "disable the progress spinner even on a terminal")
	set.BoolVar(&c.Counterexamples, "x", false, "print an XML sketch for every uncovered source pattern")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 3 {
		return fmt.Errorf("validate: usage: analyze validate <source.xsd> <target.xsd> <stylesheet.xsl>")
	}

	sourceData, err := os.ReadFile(set.Arg(0))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	targetData, err := os.ReadFile(set.Arg(1))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	stylesheetData, err := os.ReadFile(set.Arg(2))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}

	req := pipeline.Request{
		SourceSchema: string(sourceData),
		TargetSchema: string(targetData),
		Stylesheet:   string(stylesheetData),
	}

	log, _ := logging.New(os.Getenv("XSLTPROOF_LOG_MODE"))

	var resp pipeline.Response
	run := func() { resp = pipeline.Run(context.Background(), req, log) }

	if !c.NoSpinner && cliutil.IsTerminal(os.Stdout) {
		spin := cliutil.NewSpinner()
		spin.SetMessage("validating")
		spin.Run(run)
		fmt.Fprintf(os.Stderr, "pipeline finished in %s\n", spin.Elapsed())
	} else {
		run()
	}

	if err := printJSON(resp, c.Pretty); err != nil {
		return err
	}

	if c.Counterexamples && resp.Validity != nil && resp.SourceGrammar != nil {
		printCounterexamples(resp.Validity.Counterexamples, resp.SourceGrammar)
	}

	if resp.Error != "" {
		return exitCode{code: exitSchemaOrIOError, err: fmt.Errorf("%s", resp.Error)}
	}
	if resp.SubsetCheck != nil && !resp.SubsetCheck.Valid {
		return exitCode{code: exitSubsetRejected, err: fmt.Errorf("stylesheet rejected by the subset linter")}
	}
	if !resp.Valid {
		return exitCode{code: exitInvalid, err: fmt.Errorf("type preservation check failed")}
	}
	return nil
}

// printCounterexamples renders one XML sketch per uncovered source
// pattern, so a user asking "-x" can see a concrete instance document
// the stylesheet fails to preserve rather than just the pattern name.
func printCounterexamples(examples []preimage.Counterexample, source *treegrammar.Grammar) {
	for _, ce := range examples {
		fmt.Fprintf(os.Stderr, "uncovered pattern %s: %s\n", ce.Pattern, ce.Reason)
		fmt.Fprintln(os.Stderr, preimage.GenerateCounterexampleXML(ce, source))
	}
}
