// Package pipeline orchestrates components A through E end to end: the
// subset linter, the two schema-to-grammar builders, the stylesheet-to-MTT
// builder, the type-preservation validator, and the preimage/validity
// checker. It owns the error-handling policy of spec kinds 1-3 (halt) vs.
// 4-5 (accumulate), and logs one line per component entry/exit at Info,
// with per-diagnostic detail at Debug, through whatever *logging.Logger
// its caller supplies (nil disables logging entirely).
package pipeline

import (
	"context"

	"github.com/midbel/xsltproof/internal/lintsubset"
	"github.com/midbel/xsltproof/internal/logging"
	"github.com/midbel/xsltproof/internal/preimage"
	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/internal/typecheck"
	"github.com/midbel/xsltproof/xml"
)

// Request is the {source_schema, target_schema, stylesheet} input
// contract of spec §6.
type Request struct {
	SourceSchema string
	TargetSchema string
	Stylesheet   string
}

// Response is the full analysis contract of spec §6: either every stage's
// result populated with Valid reflecting whether any stage reported a
// hard error; Valid=false with only SubsetCheck set when the subset
// linter rejects the stylesheet; or Valid=false with Error set when
// malformed input, a schema or stylesheet defect, or a cancelled
// context stopped the pipeline before it could run to completion.
type Response struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`

	SubsetCheck    *SubsetCheckResult      `json:"subset_check,omitempty"`
	SourceGrammar  *treegrammar.Grammar    `json:"source_grammar,omitempty"`
	TargetGrammar  *treegrammar.Grammar    `json:"target_grammar,omitempty"`
	MTT            *transducer.MTT         `json:"mtt,omitempty"`
	TypeValidation *typecheck.Result       `json:"type_validation,omitempty"`
	Preimage       *preimage.Result        `json:"preimage,omitempty"`
	Validity       *preimage.ValidityResult `json:"validity,omitempty"`
}

// SubsetCheckResult mirrors lintsubset.Result in a JSON-friendly shape.
type SubsetCheckResult struct {
	Valid    bool              `json:"valid"`
	Errors   []proof.Diagnostic `json:"errors"`
	Warnings []proof.Diagnostic `json:"warnings"`
}

// Run executes the full pipeline for req, halting early on a kind 1-3
// failure (malformed input, subset violation, schema defect) and
// otherwise accumulating kind 4-5 diagnostics (semantic mismatch,
// validity gap) into the per-stage results without aborting. log may be
// nil, in which case Run performs no logging at all.
func Run(ctx context.Context, req Request, log *logging.Logger) Response {
	enter := func(component string) { logInfo(log, component+" entered") }
	exit := func(component string, msg string, kv ...interface{}) {
		logInfo(log, component+" exited", append([]interface{}{"result", msg}, kv...)...)
	}
	fail := func(component, msg string) Response {
		logInfo(log, component+" exited", "result", "error", "error", msg)
		return Response{Valid: false, Error: msg}
	}
	logDiagnostics := func(component string, diags []proof.Diagnostic) {
		for _, d := range diags {
			logDebug(log, component+" diagnostic", "diagnostic", d.String())
		}
	}

	enter("lintsubset")
	styDoc, err := xml.ParseString(req.Stylesheet)
	if err != nil {
		return fail("lintsubset", "malformed stylesheet XML: "+err.Error())
	}

	subset := lintsubset.Lint(styDoc)
	logDiagnostics("lintsubset", subset.Errors())
	logDiagnostics("lintsubset", subset.Warnings())
	resp := Response{
		SubsetCheck: &SubsetCheckResult{
			Valid:    subset.Valid(),
			Errors:   subset.Errors(),
			Warnings: subset.Warnings(),
		},
	}
	if !subset.Valid() {
		resp.Valid = false
		exit("lintsubset", "rejected")
		return resp
	}
	exit("lintsubset", "accepted")
	if ctx.Err() != nil {
		return fail("lintsubset", ctx.Err().Error())
	}

	enter("treegrammar(source)")
	sourceDoc, err := xml.ParseString(req.SourceSchema)
	if err != nil {
		return fail("treegrammar(source)", "malformed source schema XML: "+err.Error())
	}
	sourceGrammar, sourceTrace, err := treegrammar.Build(sourceDoc)
	if err != nil {
		return fail("treegrammar(source)", "error parsing source schema: "+err.Error())
	}
	logDiagnostics("treegrammar(source)", sourceTrace)
	if sourceTrace.HasErrors() {
		return fail("treegrammar(source)", "source schema defect: "+sourceTrace.Errors()[0].String())
	}
	resp.SourceGrammar = sourceGrammar
	exit("treegrammar(source)", "built")

	if ctx.Err() != nil {
		return fail("treegrammar(source)", ctx.Err().Error())
	}

	enter("treegrammar(target)")
	targetDoc, err := xml.ParseString(req.TargetSchema)
	if err != nil {
		return fail("treegrammar(target)", "malformed target schema XML: "+err.Error())
	}
	targetGrammar, targetTrace, err := treegrammar.Build(targetDoc)
	if err != nil {
		return fail("treegrammar(target)", "error parsing target schema: "+err.Error())
	}
	logDiagnostics("treegrammar(target)", targetTrace)
	if targetTrace.HasErrors() {
		return fail("treegrammar(target)", "target schema defect: "+targetTrace.Errors()[0].String())
	}
	resp.TargetGrammar = targetGrammar
	exit("treegrammar(target)", "built")

	if ctx.Err() != nil {
		return fail("treegrammar(target)", ctx.Err().Error())
	}

	enter("transducer")
	mtt, mttTrace, err := transducer.Build(styDoc)
	if err != nil {
		return fail("transducer", "error converting stylesheet to transducer: "+err.Error())
	}
	logDiagnostics("transducer", mttTrace)
	if mttTrace.HasErrors() {
		return fail("transducer", "stylesheet defect: "+mttTrace.Errors()[0].String())
	}
	resp.MTT = mtt
	exit("transducer", "built")

	// Kinds 4-5 from here on: accumulate, never halt the pipeline.
	enter("typecheck")
	typeResult, typeTrace := typecheck.Validate(sourceGrammar, targetGrammar, mtt)
	logDiagnostics("typecheck", typeTrace)
	resp.TypeValidation = &typeResult
	exit("typecheck", "done", "valid", typeResult.Valid)

	enter("preimage")
	preimageResult, preimageTrace := preimage.Compute(targetGrammar, mtt)
	logDiagnostics("preimage", preimageTrace)
	resp.Preimage = &preimageResult
	exit("preimage", "computed")

	validity := preimage.CheckValidity(sourceGrammar, preimageResult)
	resp.Validity = &validity

	resp.Valid = typeResult.Valid
	return resp
}

func logInfo(log *logging.Logger, msg string, kv ...interface{}) {
	if log != nil {
		log.Info(msg, kv...)
	}
}

func logDebug(log *logging.Logger, msg string, kv ...interface{}) {
	if log != nil {
		log.Debug(msg, kv...)
	}
}
