package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/internal/typecheck"
	"github.com/midbel/xsltproof/xml"
)

var checkCmd = cli.Command{
	Name:    "check",
	Summary: "check that a stylesheet preserves the type contract between a source and target schema",
	Handler: &CheckCmd{},
}

type CheckCmd struct {
	Pretty bool
}

func (c *CheckCmd) Run(args []string) error {
	set := flag.NewFlagSet("check", flag.ContinueOnError)
	set.BoolVar(&c.Pretty, "pretty", true, "pretty-print the JSON result")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 3 {
		return fmt.Errorf("check: usage: analyze check <source.xsd> <target.xsd> <stylesheet.xsl>")
	}

	sourceGrammar, err := buildGrammarFromFile(set.Arg(0))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	targetGrammar, err := buildGrammarFromFile(set.Arg(1))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}
	mtt, err := buildMTTFromFile(set.Arg(2))
	if err != nil {
		return exitCode{code: exitSchemaOrIOError, err: err}
	}

	result, trace := typecheck.Validate(sourceGrammar, targetGrammar, mtt)
	for _, d := range trace {
		fmt.Fprintln(os.Stderr, d.String())
	}

	if err := printJSON(result, c.Pretty); err != nil {
		return err
	}
	if !result.Valid {
		return exitCode{code: exitInvalid, err: fmt.Errorf("type preservation check failed")}
	}
	return nil
}

func buildGrammarFromFile(path string) (*treegrammar.Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := xml.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("malformed schema %s: %w", path, err)
	}
	grammar, trace, err := treegrammar.Build(doc)
	if err != nil {
		return nil, err
	}
	if trace.HasErrors() {
		return nil, fmt.Errorf("schema defect in %s: %s", path, trace.Errors()[0].String())
	}
	return grammar, nil
}

func buildMTTFromFile(path string) (*transducer.MTT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := xml.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("malformed stylesheet %s: %w", path, err)
	}
	mtt, trace, err := transducer.Build(doc)
	if err != nil {
		return nil, err
	}
	if trace.HasErrors() {
		return nil, fmt.Errorf("stylesheet defect in %s: %s", path, trace.Errors()[0].String())
	}
	return mtt, nil
}
