// Package typecheck implements component D: checking that a macro
// tree transducer preserves the type-constraint and cardinality
// contracts of its source and target grammars, without ever
// materializing a concrete tree.
package typecheck

import (
	"strings"

	"github.com/midbel/xsltproof/internal/guard"
	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/internal/transducer"
	"github.com/midbel/xsltproof/internal/treegrammar"
)

var numericTypes = map[string]bool{
	"integer": true, "int": true, "long": true,
	"decimal": true, "float": true, "double": true,
}

var stringTypes = map[string]bool{
	"string": true, "normalizedString": true, "token": true,
}

// CoverageEntry is one row of the {source, target, status} matrix of
// spec §4.D step 4.
type CoverageEntry struct {
	Source  string
	Target  string
	Covered bool
}

// Result is the {valid, proof trace, coverage matrix} contract of
// spec §4.D.
type Result struct {
	Valid    bool
	Coverage []CoverageEntry
}

// Validate checks structural coverage, type-constraint compatibility,
// and cardinality compatibility between a source grammar, a target
// grammar, and the transducer claimed to map one to the other.
func Validate(source, target *treegrammar.Grammar, mtt *transducer.MTT) (Result, proof.Trace) {
	var trace proof.Trace

	trace.Info("/", "structural validation")
	validateStructure(source, mtt, &trace)

	trace.Info("/", "type constraint validation")
	validateTypeConstraints(source, target, mtt, &trace)

	trace.Info("/", "cardinality validation")
	validateCardinality(source, target, mtt, &trace)

	coverage := buildCoverageMatrix(source, target, mtt)

	return Result{
		Valid:    !trace.HasErrors(),
		Coverage: coverage,
	}, trace
}

func validateStructure(source *treegrammar.Grammar, mtt *transducer.MTT, trace *proof.Trace) {
	rootCovered := false
	for _, r := range mtt.Rules {
		if r.Pattern.Element == source.Root {
			rootCovered = true
			break
		}
	}
	if rootCovered {
		trace.OK("/"+source.Root, "root element mapping found")
	} else {
		trace.Err(proof.CodeSemanticMismatch, "/"+source.Root, "no transformation rule for root element %q", source.Root)
	}

	for _, p := range source.Productions {
		path := "/" + p.LHS
		if isProductionCovered(p, mtt) {
			trace.OK(path, "production covered: %s -> %s", p.LHS, strings.Join(p.RHS, ","))
		} else {
			trace.Warn(proof.CodeStructuralCoverage, path, "production not explicitly covered: %s", p.LHS)
		}
	}
}

func isProductionCovered(p treegrammar.Production, mtt *transducer.MTT) bool {
	for _, r := range mtt.Rules {
		if r.Pattern.Element == p.LHS {
			return true
		}
		if outputReaches(r.Output, p.LHS) {
			return true
		}
	}
	return false
}

func outputReaches(outputs []transducer.Output, name string) bool {
	for _, o := range outputs {
		switch v := o.(type) {
		case transducer.LiteralElement:
			if v.Name == name {
				return true
			}
			if outputReaches(v.Children, name) {
				return true
			}
		case transducer.ValueAccess:
			if strings.Contains(v.Path, name) {
				return true
			}
		case transducer.ApplyTemplates:
			if strings.Contains(v.Select, name) {
				return true
			}
		case transducer.ForEach:
			if strings.Contains(v.Select, name) || outputReaches(v.Body, name) {
				return true
			}
		case transducer.If:
			if outputReaches(v.Then, name) {
				return true
			}
		case transducer.Choose:
			for _, w := range v.Whens {
				if outputReaches(w.Body, name) {
					return true
				}
			}
			if outputReaches(v.Otherwise, name) {
				return true
			}
		}
	}
	return false
}

// findTargetElement resolves spec §4.D step 2's element lookup: scan
// M's rules for one matching sourceElem, extract the outermost
// literal_element.name (descending through if/choose/for-each
// wrappers), and fall back to a same-name lookup in the target
// grammar when no rule maps it.
func findTargetElement(sourceElem string, mtt *transducer.MTT, target *treegrammar.Grammar) (string, *transducer.Rule) {
	for i := range mtt.Rules {
		r := &mtt.Rules[i]
		if r.Pattern.Element != sourceElem {
			continue
		}
		if name := extractOutermostElement(r.Output); name != "" {
			return name, r
		}
	}
	for _, p := range target.Productions {
		if p.LHS == sourceElem {
			return sourceElem, nil
		}
	}
	return "", nil
}

func extractOutermostElement(outputs []transducer.Output) string {
	for _, o := range outputs {
		switch v := o.(type) {
		case transducer.LiteralElement:
			return v.Name
		case transducer.If:
			if name := extractOutermostElement(v.Then); name != "" {
				return name
			}
		case transducer.Choose:
			for _, w := range v.Whens {
				if name := extractOutermostElement(w.Body); name != "" {
					return name
				}
			}
			if name := extractOutermostElement(v.Otherwise); name != "" {
				return name
			}
		case transducer.ForEach:
			if name := extractOutermostElement(v.Body); name != "" {
				return name
			}
		}
	}
	return ""
}

func validateTypeConstraints(source, target *treegrammar.Grammar, mtt *transducer.MTT, trace *proof.Trace) {
	for elemName, srcConstraint := range source.TypeConstraints {
		path := "/" + elemName
		targetElem, rule := findTargetElement(elemName, mtt, target)
		if targetElem == "" {
			trace.Warn(proof.CodeStructuralCoverage, path, "could not find target element for source element %q", elemName)
			continue
		}

		tgtConstraint, ok := target.TypeConstraints[targetElem]
		if !ok {
			trace.Info(path, "no type constraint in target for %q", targetElem)
			continue
		}

		if !typesCompatible(srcConstraint.BaseType, tgtConstraint.BaseType) {
			trace.Err(proof.CodeSemanticMismatch, path, "type incompatible: %s (%s -> %s)", elemName, srcConstraint.BaseType, tgtConstraint.BaseType)
			continue
		}
		trace.OK(path, "type compatible: %s -> %s", srcConstraint.BaseType, tgtConstraint.BaseType)

		for key, values := range tgtConstraint.Restrictions {
			if srcValues, ok := srcConstraint.Restriction(key); ok && sameValues(srcValues, values) {
				trace.OK(path, "restriction %s=%v satisfied by source", key, values)
				continue
			}

			var reconciled bool
			if rule != nil {
				reconciled = guard.Implies(rule.Guard, elemName, guard.Restriction{Keyword: key, Values: values})
			}
			if reconciled {
				trace.OK(path, "restriction %s=%v implied by guard %q", key, values, rule.GuardText)
			} else {
				trace.Warn(proof.CodeSemanticMismatch, path, "target element %q has %s=%v, source does not guarantee it", targetElem, key, values)
			}
		}
	}
}

func typesCompatible(src, tgt string) bool {
	if src == tgt {
		return true
	}
	if numericTypes[src] && numericTypes[tgt] {
		return true
	}
	if src == "string" && stringTypes[tgt] {
		return true
	}
	return false
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateCardinality(source, target *treegrammar.Grammar, mtt *transducer.MTT, trace *proof.Trace) {
	for _, srcProd := range source.Productions {
		path := "/" + srcProd.LHS
		targetElem, _ := findTargetElement(srcProd.LHS, mtt, target)
		if targetElem == "" {
			continue
		}
		tgtProd, ok := findProduction(targetElem, target)
		if !ok {
			continue
		}

		if srcProd.Cardinality.Lo == 0 && tgtProd.Cardinality.Lo > 0 {
			trace.Warn(proof.CodeSemanticMismatch, path, "cardinality mismatch: %s %s -> %s %s (source may be empty, target requires presence)",
				srcProd.LHS, srcProd.Cardinality, tgtProd.LHS, tgtProd.Cardinality)
			continue
		}
		if (srcProd.Cardinality.Hi == treegrammar.Unbounded || srcProd.Cardinality.Hi > 1) && tgtProd.Cardinality.Hi == 1 {
			trace.Warn(proof.CodeSemanticMismatch, path, "cardinality mismatch: %s %s -> %s %s (many to one drops data)",
				srcProd.LHS, srcProd.Cardinality, tgtProd.LHS, tgtProd.Cardinality)
			continue
		}
		trace.OK(path, "cardinality compatible: %s -> %s", srcProd.Cardinality, tgtProd.Cardinality)
	}
}

func findProduction(element string, grammar *treegrammar.Grammar) (treegrammar.Production, bool) {
	for _, p := range grammar.Productions {
		if p.LHS == element {
			return p, true
		}
	}
	return treegrammar.Production{}, false
}

func buildCoverageMatrix(source, target *treegrammar.Grammar, mtt *transducer.MTT) []CoverageEntry {
	var entries []CoverageEntry
	for _, p := range source.Productions {
		targetElem, _ := findTargetElement(p.LHS, mtt, target)
		entries = append(entries, CoverageEntry{
			Source:  p.LHS,
			Target:  orUnmapped(targetElem),
			Covered: targetElem != "",
		})
	}
	return entries
}

func orUnmapped(s string) string {
	if s == "" {
		return "UNMAPPED"
	}
	return s
}
