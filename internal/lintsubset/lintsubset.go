// Package lintsubset implements component A: rejecting stylesheets
// that fall outside the analyzable subset before the rest of the
// pipeline runs, and flagging borderline path syntax the subset
// tolerates but cannot reason about precisely.
package lintsubset

import (
	"strings"

	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/xml"
)

const stylesheetNS = "http://www.w3.org/1999/XSL/Transform"

var allowedElements = map[string]bool{
	"stylesheet":       true,
	"transform":        true,
	"template":         true,
	"apply-templates":  true,
	"for-each":         true,
	"if":               true,
	"choose":           true,
	"when":             true,
	"otherwise":        true,
	"value-of":         true,
	"text":             true,
	"element":          true,
	"attribute":        true,
	"with-param":       true,
	"param":            true,
}

var disallowedElements = map[string]bool{
	"document":      true,
	"key":           true,
	"import":        true,
	"include":       true,
	"call-template": true,
	"variable":      true,
	"sort":          true,
	"number":        true,
	"copy":          true,
	"copy-of":       true,
}

var complexPatternTokens = []string{"//", "ancestor::", "following::"}
var complexFunctionTokens = []string{"contains(", "substring(", "concat(", "preceding::", "following::"}

// Result is the {valid, errors, warnings} contract of spec §4.A,
// carried as a single ordered Trace so callers can render it as a
// proof or filter by Level.
type Result struct {
	Trace proof.Trace
}

func (r Result) Valid() bool {
	return !r.Trace.HasErrors()
}

func (r Result) Errors() []proof.Diagnostic   { return r.Trace.Errors() }
func (r Result) Warnings() []proof.Diagnostic { return r.Trace.Warnings() }

type linter struct {
	trace proof.Trace
}

// Lint walks the stylesheet tree depth-first, checking every element
// in the stylesheet namespace against the closed subset of spec §4.A.
func Lint(doc *xml.Document) Result {
	l := &linter{}
	root := doc.Root()
	el, ok := root.(*xml.Element)
	if !ok {
		l.trace.Err(proof.CodeMalformedInput, "/", "stylesheet document has no root element")
		return Result{Trace: l.trace}
	}
	l.checkElement(el, "")
	return Result{Trace: l.trace}
}

func (l *linter) checkElement(elem *xml.Element, path string) {
	currentPath := path + "/" + elem.LocalName()

	if isStylesheetNS(elem) {
		local := elem.LocalName()

		switch {
		case disallowedElements[local]:
			l.trace.Err(proof.CodeSubsetViolation, currentPath, "disallowed XSLT element %q", local)
		case !allowedElements[local]:
			l.trace.Err(proof.CodeSubsetViolation, currentPath, "unknown XSLT element %q outside the accepted subset", local)
		}

		switch local {
		case "template":
			l.checkTemplate(elem, currentPath)
		case "if":
			l.checkIf(elem, currentPath)
		case "choose":
			l.checkChoose(elem, currentPath)
		case "apply-templates":
			l.checkApplyTemplates(elem, currentPath)
		case "for-each":
			l.checkForEach(elem, currentPath)
		case "value-of":
			l.checkValueOf(elem, currentPath)
		}
	}
	// Literal result elements, and xsl:element/xsl:attribute's own
	// name/namespace attributes, may all carry attribute-value
	// templates.
	l.checkAttributeValueTemplates(elem, currentPath)

	for _, child := range elem.Nodes {
		if ce, ok := child.(*xml.Element); ok {
			l.checkElement(ce, currentPath)
		}
	}
}

func (l *linter) checkTemplate(elem *xml.Element, path string) {
	match := attrValue(elem, "match")
	if match == "" {
		l.trace.Err(proof.CodeSubsetViolation, path, "template without 'match' attribute")
		return
	}
	if containsAny(match, complexPatternTokens) {
		l.trace.Warn(proof.CodeSubsetViolation, path, "complex XPath pattern %q, may not be fully supported", match)
	}
}

func (l *linter) checkIf(elem *xml.Element, path string) {
	test := attrValue(elem, "test")
	if test == "" {
		l.trace.Err(proof.CodeSubsetViolation, path, "'if' without 'test' attribute")
		return
	}
	if containsAny(test, complexFunctionTokens) {
		l.trace.Warn(proof.CodeSubsetViolation, path, "complex string function in test %q", test)
	}
}

func (l *linter) checkChoose(elem *xml.Element, path string) {
	hasWhen := false
	for _, child := range elem.Nodes {
		ce, ok := child.(*xml.Element)
		if ok && ce.LocalName() == "when" {
			hasWhen = true
			break
		}
	}
	if !hasWhen {
		l.trace.Err(proof.CodeSubsetViolation, path, "'choose' without 'when'")
	}
}

func (l *linter) checkApplyTemplates(elem *xml.Element, path string) {
	if select_ := attrValue(elem, "select"); select_ != "" {
		if containsAny(select_, []string{"preceding::", "following::"}) {
			l.trace.Warn(proof.CodeSubsetViolation, path, "complex axis in select %q", select_)
		}
	}
}

func (l *linter) checkForEach(elem *xml.Element, path string) {
	if attrValue(elem, "select") == "" {
		l.trace.Err(proof.CodeSubsetViolation, path, "'for-each' without 'select' attribute")
	}
}

func (l *linter) checkValueOf(elem *xml.Element, path string) {
	if attrValue(elem, "select") == "" {
		l.trace.Err(proof.CodeSubsetViolation, path, "'value-of' without 'select' attribute")
	}
}

// checkAttributeValueTemplates rejects multi-segment attribute-value
// templates (more than one `{...}` fragment inside a single attribute
// value), per Open Question 3.
func (l *linter) checkAttributeValueTemplates(elem *xml.Element, path string) {
	for _, attr := range elem.Attrs {
		v := attr.Value()
		if strings.Count(v, "{") > 1 {
			l.trace.Err(proof.CodeSubsetViolation, path, "attribute %q has a multi-segment attribute-value template %q, only one {...} fragment is supported", attr.QualifiedName(), v)
		}
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func isStylesheetNS(elem *xml.Element) bool {
	return elem.Uri == stylesheetNS || elem.Space == "xsl"
}

func attrValue(elem *xml.Element, name string) string {
	return elem.GetAttribute(name).Value()
}
