// Package preimage implements component E: computing, per MTT rule,
// the set of input patterns guaranteed to produce valid output in the
// target grammar, then deciding whether the source grammar's language
// is covered by that preimage.
package preimage

import (
	"fmt"
	"strings"

	"github.com/midbel/xsltproof/internal/guard"
	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
	"github.com/midbel/xsltproof/xml"
)

var scalarBaseTypes = map[string]bool{
	"string": true, "integer": true, "decimal": true, "boolean": true, "date": true,
}

// InputPattern is an accepted per-rule input pattern together with the
// ordered, deduplicated constraints that must hold over the matched
// node for the rule's output to land in the target grammar.
type InputPattern struct {
	Element     string
	Children    []string
	AnyChildren bool
	Constraints []string
	Rule        string
}

func (p InputPattern) String() string {
	var b strings.Builder
	if p.AnyChildren {
		fmt.Fprintf(&b, "%s(children)", p.Element)
	} else if len(p.Children) > 0 {
		fmt.Fprintf(&b, "%s(%s)", p.Element, strings.Join(p.Children, ", "))
	} else {
		b.WriteString(p.Element)
	}
	if len(p.Constraints) > 0 {
		fmt.Fprintf(&b, " where %s", strings.Join(p.Constraints, " and "))
	}
	return b.String()
}

// RejectedPattern is a rule whose output could never land in the
// target grammar, with the reason it was rejected.
type RejectedPattern struct {
	Rule   string
	Reason string
}

// Stats mirrors spec §4.E's {total_rules, accepted_patterns,
// rejected_patterns, coverage} contract.
type Stats struct {
	TotalRules       int
	AcceptedPatterns int
	RejectedPatterns int
	Coverage         float64
}

// Result is the {accepted_patterns, rejected_patterns, statistics}
// contract of spec §4.E's per-rule preimage step.
type Result struct {
	Accepted []InputPattern
	Rejected []RejectedPattern
	Stats    Stats
}

// String renders the preimage result the way preimage_computer.py's
// format_preimage does: an accepted-patterns section, a
// rejected-patterns section with reasons, and the coverage statistics,
// for CLI and log output next to the structured JSON record.
func (r Result) String() string {
	var b strings.Builder

	b.WriteString("Preimage Computation Result\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString("Accepted Input Patterns:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	if len(r.Accepted) == 0 {
		b.WriteString("  (none)\n")
	} else {
		for i, p := range r.Accepted {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}

	b.WriteString("\nRejected Patterns:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	if len(r.Rejected) == 0 {
		b.WriteString("  (none)\n")
	} else {
		for _, p := range r.Rejected {
			fmt.Fprintf(&b, "  x %s\n    Reason: %s\n", p.Rule, p.Reason)
		}
	}

	b.WriteString("\nStatistics:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "  Total MTT rules: %d\n", r.Stats.TotalRules)
	fmt.Fprintf(&b, "  Accepted patterns: %d\n", r.Stats.AcceptedPatterns)
	fmt.Fprintf(&b, "  Rejected patterns: %d\n", r.Stats.RejectedPatterns)
	fmt.Fprintf(&b, "  Coverage: %.1f%%\n", r.Stats.Coverage*100)

	return b.String()
}

// Compute analyzes every rule of an MTT against a target grammar,
// producing the accepted/rejected pattern split and its statistics.
func Compute(target *treegrammar.Grammar, mtt *transducer.MTT) (Result, proof.Trace) {
	var trace proof.Trace
	var result Result

	for _, r := range mtt.Rules {
		valid, reason := outputValid(r.Output, target)
		if !valid {
			result.Rejected = append(result.Rejected, RejectedPattern{Rule: r.State, Reason: reason})
			trace.Warn(proof.CodeValidityGap, "/"+r.State, "rejected: %s", reason)
			continue
		}

		pattern := InputPattern{
			Element:     r.Pattern.Element,
			Children:    r.Pattern.Children,
			AnyChildren: r.Pattern.AnyChildren,
			Rule:        r.State,
		}
		pattern.Constraints = extractConstraints(r, target)
		result.Accepted = append(result.Accepted, pattern)
		trace.OK("/"+r.State, "accepted: %s", pattern)
	}

	result.Stats = Stats{
		TotalRules:       len(mtt.Rules),
		AcceptedPatterns: len(result.Accepted),
		RejectedPatterns: len(result.Rejected),
	}
	if result.Stats.TotalRules > 0 {
		result.Stats.Coverage = float64(result.Stats.AcceptedPatterns) / float64(result.Stats.TotalRules)
	}

	return result, trace
}

// outputValid recursively checks spec §4.E step 1's output validity
// condition. apply_templates/for_each are always valid here — their
// validity reduces to the callee rule's own preimage step.
func outputValid(outputs []transducer.Output, target *treegrammar.Grammar) (bool, string) {
	for _, o := range outputs {
		switch v := o.(type) {
		case transducer.Text, transducer.ValueAccess, transducer.ApplyTemplates, transducer.ForEach:
			continue
		case transducer.LiteralElement:
			if !elementValidInTarget(v.Name, target) {
				return false, fmt.Sprintf("element %q has no corresponding production in the target grammar", v.Name)
			}
			for _, attr := range v.Attrs {
				if !attributeAdmissible(v.Name, attr.Name, target) {
					return false, fmt.Sprintf("attribute %q is not admissible for element %q in the target grammar", attr.Name, v.Name)
				}
			}
			if ok, reason := outputValid(v.Children, target); !ok {
				return false, reason
			}
		case transducer.If:
			if ok, reason := outputValid(v.Then, target); !ok {
				return false, reason
			}
		case transducer.Choose:
			for _, w := range v.Whens {
				if ok, reason := outputValid(w.Body, target); !ok {
					return false, reason
				}
			}
			if ok, reason := outputValid(v.Otherwise, target); !ok {
				return false, reason
			}
		}
	}
	return true, ""
}

func elementValidInTarget(name string, target *treegrammar.Grammar) bool {
	if name == target.Root {
		return true
	}
	if target.HasProductionFor(name) {
		return true
	}
	if _, ok := target.Attributes[name]; ok {
		return true
	}
	return false
}

func attributeAdmissible(element, attrName string, target *treegrammar.Grammar) bool {
	decls, ok := target.Attributes[element]
	if !ok {
		return true
	}
	for _, d := range decls {
		if d.Name == attrName {
			return true
		}
	}
	return false
}

// extractConstraints implements spec §4.E step 3: r.guard, every
// if/when test inside r.Output (top-level disjunctions kept whole,
// conjunctions split), and target-restriction predicates synthesized
// across attribute-value templates, deduplicated by normalized text.
func extractConstraints(r transducer.Rule, target *treegrammar.Grammar) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(text string) {
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, text)
	}

	if r.Guard != nil {
		if _, isUnparsed := r.Guard.(guard.Unparsed); !isUnparsed {
			add(r.Guard.String())
		}
	}

	for _, text := range collectTests(r.Output) {
		for _, p := range splitTopLevelAnd(guard.Parse(text)) {
			add(p)
		}
	}

	for _, text := range avtRestrictionPredicates(r.Output, target) {
		add(text)
	}

	return out
}

func collectTests(outputs []transducer.Output) []string {
	var out []string
	for _, o := range outputs {
		switch v := o.(type) {
		case transducer.If:
			out = append(out, v.Test)
			out = append(out, collectTests(v.Then)...)
		case transducer.Choose:
			for _, w := range v.Whens {
				out = append(out, w.Test)
				out = append(out, collectTests(w.Body)...)
			}
			out = append(out, collectTests(v.Otherwise)...)
		case transducer.LiteralElement:
			out = append(out, collectTests(v.Children)...)
		case transducer.ForEach:
			out = append(out, collectTests(v.Body)...)
		}
	}
	return out
}

func splitTopLevelAnd(e guard.Expr) []string {
	if and, ok := e.(guard.And); ok {
		return append(splitTopLevelAnd(and.Left), splitTopLevelAnd(and.Right)...)
	}
	if or, ok := e.(guard.Or); ok {
		return []string{fmt.Sprintf("(%s)", or.String())}
	}
	if unparsed, ok := e.(guard.Unparsed); ok {
		if unparsed.Text == "" {
			return nil
		}
		return []string{unparsed.Text}
	}
	return []string{e.String()}
}

func avtRestrictionPredicates(outputs []transducer.Output, target *treegrammar.Grammar) []string {
	var out []string
	var walk func([]transducer.Output)
	walk = func(nodes []transducer.Output) {
		for _, o := range nodes {
			lit, ok := o.(transducer.LiteralElement)
			if !ok {
				if fe, ok := o.(transducer.ForEach); ok {
					walk(fe.Body)
				}
				if ifn, ok := o.(transducer.If); ok {
					walk(ifn.Then)
				}
				continue
			}
			for _, attr := range lit.Attrs {
				if !attr.IsTemplate {
					continue
				}
				constraint, ok := target.TypeConstraints[attr.Name]
				if !ok {
					continue
				}
				for key, values := range constraint.Restrictions {
					if pred := restrictionPredicate(attr.ValueExpr, key, values); pred != "" {
						out = append(out, pred)
					}
				}
			}
			walk(lit.Children)
		}
	}
	walk(outputs)
	return out
}

func restrictionPredicate(field, keyword string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	switch keyword {
	case "minInclusive":
		return fmt.Sprintf("%s >= %s", field, values[0])
	case "maxInclusive":
		return fmt.Sprintf("%s <= %s", field, values[0])
	case "enumeration":
		var parts []string
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%s == '%s'", field, v))
		}
		return "(" + strings.Join(parts, " or ") + ")"
	default:
		return ""
	}
}

// SourcePattern is a top-level production of the source grammar
// considered for preimage coverage in spec §4.E's validity decision.
type SourcePattern struct {
	Element  string
	Children []string
}

// Counterexample is an uncovered SourcePattern, with a human-readable
// reason.
type Counterexample struct {
	Element string
	Pattern string
	Reason  string
}

// ValidityResult is the {valid, coverage_percent, counterexamples}
// contract of spec §4.E's validity decision.
type ValidityResult struct {
	Valid              bool
	TotalPatterns      int
	CoveredPatterns    int
	CoveragePercent    float64
	Counterexamples    []Counterexample
}

// CheckValidity decides whether every top-level source pattern is
// covered by some accepted input pattern from the preimage.
func CheckValidity(source *treegrammar.Grammar, preimageResult Result) ValidityResult {
	patterns := extractSourcePatterns(source)

	var counterexamples []Counterexample
	covered := 0
	for _, sp := range patterns {
		if ip, ok := coveredBy(sp, preimageResult.Accepted); ok {
			covered++
			_ = ip
			continue
		}
		counterexamples = append(counterexamples, Counterexample{
			Element: sp.Element,
			Pattern: fmt.Sprintf("%s(%s)", sp.Element, strings.Join(sp.Children, ", ")),
			Reason:  fmt.Sprintf("no accepted input pattern covers element %q", sp.Element),
		})
	}

	total := len(patterns)
	coverage := 100.0
	if total > 0 {
		coverage = float64(covered) / float64(total) * 100
	}

	return ValidityResult{
		Valid:           len(counterexamples) == 0,
		TotalPatterns:   total,
		CoveredPatterns: covered,
		CoveragePercent: coverage,
		Counterexamples: counterexamples,
	}
}

func extractSourcePatterns(source *treegrammar.Grammar) []SourcePattern {
	var out []SourcePattern
	for _, p := range source.Productions {
		isLeaf := len(p.RHS) == 1 && scalarBaseTypes[p.RHS[0]]
		if isLeaf && p.LHS != source.Root {
			continue
		}
		children := p.RHS
		if len(children) == 0 {
			children = []string{"*"}
		}
		out = append(out, SourcePattern{Element: p.LHS, Children: children})
	}
	return out
}

func coveredBy(sp SourcePattern, accepted []InputPattern) (InputPattern, bool) {
	for _, ip := range accepted {
		if sp.Element != ip.Element {
			continue
		}
		if ip.AnyChildren {
			return ip, true
		}
		if childrenCompatible(sp.Children, ip.Children) {
			return ip, true
		}
	}
	return InputPattern{}, false
}

func childrenCompatible(src, accepted []string) bool {
	acceptedSet := make(map[string]bool, len(accepted))
	for _, c := range accepted {
		acceptedSet[c] = true
	}
	for _, c := range src {
		if !acceptedSet[c] {
			return false
		}
	}
	return true
}

// GenerateCounterexampleXML builds a concrete XML sketch for a
// counterexample, for display alongside the textual reason.
func GenerateCounterexampleXML(ce Counterexample, source *treegrammar.Grammar) string {
	root := xml.NewElement(xml.LocalName(ce.Element))
	for _, p := range source.Productions {
		if p.LHS != ce.Element {
			continue
		}
		for _, child := range p.RHS {
			if scalarBaseTypes[child] {
				continue
			}
			childElem := xml.NewElement(xml.LocalName(child))
			childElem.Append(xml.NewText("example_value"))
			root.Append(childElem)
		}
	}
	return xml.WriteNode(root)
}
