// Package transducer implements component C: translating a
// subset-conforming stylesheet into a macro tree transducer with
// guarded rules and an output-tree skeleton per rule.
package transducer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/midbel/xsltproof/internal/guard"
	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/internal/symtab"
	"github.com/midbel/xsltproof/xml"
)

const stylesheetNS = "http://www.w3.org/1999/XSL/Transform"

// LHSPattern is the input-pattern half of spec §3: an element name
// plus a children descriptor. AnyChildren is the only descriptor this
// subset's match patterns ever produce; Children is kept as a field
// for symmetry with the richer descriptor preimage reconstructs later.
type LHSPattern struct {
	Element     string
	AnyChildren bool
	Children    []string
}

func (p LHSPattern) String() string {
	kids := "children"
	if !p.AnyChildren {
		kids = strings.Join(p.Children, ",")
	}
	return fmt.Sprintf("%s(%s)", p.Element, kids)
}

// Output is the tagged-sum rhs_output type of spec §3. Every
// constructor listed there has a concrete Go type implementing this
// interface; switch over the concrete type, never a string tag.
type Output interface {
	isOutput()
}

type OutputAttr struct {
	Name      string
	Literal   string
	ValueExpr string
	IsTemplate bool
}

type LiteralElement struct {
	Name     string
	Attrs    []OutputAttr
	Children []Output
}

func (LiteralElement) isOutput() {}

type Text struct {
	Literal string
}

func (Text) isOutput() {}

type ValueAccess struct {
	Path string
}

func (ValueAccess) isOutput() {}

type ApplyTemplates struct {
	Select string
	Callee string
}

func (ApplyTemplates) isOutput() {}

type ForEach struct {
	Select    string
	Body      []Output
	ListState string
}

func (ForEach) isOutput() {}

type If struct {
	Test string
	Then []Output
}

func (If) isOutput() {}

type When struct {
	Test string
	Body []Output
}

type Choose struct {
	Whens     []When
	Otherwise []Output
	HasOtherwise bool
}

func (Choose) isOutput() {}

// Rule is one R-member of spec §3.
type Rule struct {
	State      string
	Pattern    LHSPattern
	Guard      guard.Expr
	GuardText  string
	Output     []Output
	SourceMode string
	SourceMatch string
}

// MTT is the M = (Q, Σ_in, Σ_out, q0, R) of spec §3.
type MTT struct {
	States         []string
	InitialState   string
	Rules          []Rule
	InputAlphabet  map[string]bool
	OutputAlphabet map[string]bool
}

func (m *MTT) HasState(name string) bool {
	for _, s := range m.States {
		if s == name {
			return true
		}
	}
	return false
}

func (m *MTT) RulesForElement(element string) []Rule {
	var out []Rule
	for _, r := range m.Rules {
		if r.Pattern.Element == element {
			out = append(out, r)
		}
	}
	return out
}

// suffixCounter walks 'a'..'z' to disambiguate a colliding state name;
// once exhausted it sticks at utf8.RuneError, which is unreachable in
// practice since a single template file never produces 26 collisions
// on the same match/mode pair.
type suffixCounter struct {
	curr rune
}

func newSuffixCounter() *suffixCounter {
	return &suffixCounter{curr: 'a'}
}

func (c *suffixCounter) get() rune {
	return c.curr
}

func (c *suffixCounter) next() rune {
	if c.curr == utf8.RuneError {
		return c.curr
	}
	c.curr++
	if c.curr > 'z' {
		c.curr = utf8.RuneError
	}
	return c.curr
}

type builder struct {
	mtt       *MTT
	states    symtab.Scope[int]
	names     map[string]bool
	disambig  *suffixCounter
	trace     proof.Trace
	foreachID int
}

// Build converts a subset-conforming stylesheet document into an MTT,
// following the per-template algorithm of spec §4.C.
func Build(doc *xml.Document) (*MTT, proof.Trace, error) {
	root := doc.Root()
	el, ok := root.(*xml.Element)
	if !ok {
		return nil, nil, proof.List{proof.Err(proof.CodeMalformedInput, "/", "stylesheet document has no root element")}
	}

	b := &builder{
		mtt: &MTT{
			InitialState:   "q_root",
			InputAlphabet:  make(map[string]bool),
			OutputAlphabet: make(map[string]bool),
		},
		states:   symtab.Empty[int](),
		names:    make(map[string]bool),
		disambig: newSuffixCounter(),
	}
	b.mtt.States = append(b.mtt.States, b.mtt.InitialState)
	b.names[b.mtt.InitialState] = true

	templates := findAllLocal(el, "template")
	type pending struct {
		match string
		mode  string
		rule  Rule
	}
	var built []pending

	for i, tmpl := range templates {
		match := attrValue(tmpl, "match")
		if match == "" {
			continue
		}
		mode := attrValueDefault(tmpl, "mode", "default")
		path := fmt.Sprintf("/stylesheet/template[%d]", i+1)

		stateName := b.stateName(match, mode)
		b.mtt.States = append(b.mtt.States, stateName)

		pattern := parseMatchPattern(match)
		b.mtt.InputAlphabet[pattern.Element] = true

		output, ruleGuard, guardText := b.processTemplateBody(tmpl, stateName)

		rule := Rule{
			State:       stateName,
			Pattern:     pattern,
			Guard:       ruleGuard,
			GuardText:   guardText,
			Output:      output,
			SourceMode:  mode,
			SourceMatch: match,
		}

		for _, p := range built {
			if p.match == match && p.mode == mode {
				if !guard.Disjoint(p.rule.Guard, rule.Guard) {
					b.trace.Err(proof.CodeSemanticMismatch, path, "ambiguous templates: match=%q mode=%q share indistinguishable guards", match, mode)
				} else {
					b.trace.OK(path, "match=%q mode=%q disambiguated by disjoint guards", match, mode)
				}
			}
		}
		built = append(built, pending{match: match, mode: mode, rule: rule})

		b.mtt.Rules = append(b.mtt.Rules, rule)
		b.collectOutputAlphabet(output)
	}

	b.checkCallees()

	return b.mtt, b.trace, nil
}

func (b *builder) checkCallees() {
	for _, r := range b.mtt.Rules {
		for _, callee := range calleeStates(r.Output) {
			if !b.mtt.HasState(callee) {
				b.trace.Warn(proof.CodeStructuralCoverage, "/"+r.State, "apply-templates callee state %q has no matching template, subtree discarded", callee)
			}
		}
	}
}

func calleeStates(outputs []Output) []string {
	var out []string
	var walk func(Output)
	walk = func(o Output) {
		switch v := o.(type) {
		case ApplyTemplates:
			out = append(out, v.Callee)
		case ForEach:
			for _, c := range v.Body {
				walk(c)
			}
		case If:
			for _, c := range v.Then {
				walk(c)
			}
		case Choose:
			for _, w := range v.Whens {
				for _, c := range w.Body {
					walk(c)
				}
			}
			for _, c := range v.Otherwise {
				walk(c)
			}
		case LiteralElement:
			for _, c := range v.Children {
				walk(c)
			}
		}
	}
	for _, o := range outputs {
		walk(o)
	}
	return out
}

// stateName derives a unique MTT state identifier from a template's
// match/mode pair via the rewriting rules of spec §4.C step 2,
// disambiguating collisions with a monotone alpha suffix.
func (b *builder) stateName(match, mode string) string {
	base := stateBase(match)
	name := fmt.Sprintf("q_%s_%s", base, mode)
	for b.names[name] {
		suffix := b.disambig.get()
		b.disambig.next()
		name = fmt.Sprintf("q_%s_%s_%c", base, mode, suffix)
	}
	b.names[name] = true
	return name
}

func stateBase(match string) string {
	if match == "/" {
		return "root"
	}
	base := match
	if strings.HasPrefix(base, "@") {
		base = "attr_" + strings.TrimPrefix(base, "@")
	}
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "*", "any")
	return base
}

// parseMatchPattern derives the input pattern of spec §4.C step 2:
// `/` maps to root(children); a root-anchored path keeps only its
// final segment; a bare name passes through. Children are always the
// "any" descriptor — match patterns in this subset never enumerate an
// explicit child list.
func parseMatchPattern(match string) LHSPattern {
	if match == "/" {
		return LHSPattern{Element: "root", AnyChildren: true}
	}
	trimmed := strings.Trim(match, "/")
	parts := strings.Split(trimmed, "/")
	return LHSPattern{Element: parts[len(parts)-1], AnyChildren: true}
}

func (b *builder) processTemplateBody(tmpl *xml.Element, state string) ([]Output, guard.Expr, string) {
	var output []Output
	var ruleGuard guard.Expr
	var guardText string

	children := elementChildren(tmpl)
	if len(children) == 1 && isStylesheetNS(children[0]) && children[0].LocalName() == "if" {
		test := attrValue(children[0], "test")
		ruleGuard = guard.Parse(test)
		guardText = test
	}

	for _, child := range children {
		if o := b.processInstruction(child, state); o != nil {
			output = append(output, o)
		}
	}
	return output, ruleGuard, guardText
}

func (b *builder) processInstruction(elem *xml.Element, state string) Output {
	if isStylesheetNS(elem) {
		switch elem.LocalName() {
		case "apply-templates":
			return b.processApplyTemplates(elem)
		case "for-each":
			return b.processForEach(elem, state)
		case "value-of":
			return ValueAccess{Path: attrValue(elem, "select")}
		case "if":
			return b.processIf(elem, state)
		case "choose":
			return b.processChoose(elem, state)
		case "text":
			return Text{Literal: elem.Value()}
		case "element":
			return b.processElementCtor(elem, state)
		case "attribute":
			return nil // captured by the owning literal_element's Attrs
		default:
			return nil
		}
	}
	return b.processLiteralElement(elem, state)
}

func (b *builder) processApplyTemplates(elem *xml.Element) Output {
	sel := attrValueDefault(elem, "select", "node()")
	callee := deriveCalleeState(sel)
	return ApplyTemplates{Select: sel, Callee: callee}
}

func deriveCalleeState(sel string) string {
	base := stateBase(sel)
	return fmt.Sprintf("q_%s_default", base)
}

func (b *builder) processForEach(elem *xml.Element, state string) Output {
	sel := attrValue(elem, "select")
	b.foreachID++
	listState := fmt.Sprintf("%s_foreach_%d", state, b.foreachID)
	b.mtt.States = append(b.mtt.States, listState)
	b.names[listState] = true

	var body []Output
	for _, child := range elementChildren(elem) {
		if o := b.processInstruction(child, listState); o != nil {
			body = append(body, o)
		}
	}
	return ForEach{Select: sel, Body: body, ListState: listState}
}

func (b *builder) processIf(elem *xml.Element, state string) Output {
	test := attrValue(elem, "test")
	var body []Output
	for _, child := range elementChildren(elem) {
		if o := b.processInstruction(child, state); o != nil {
			body = append(body, o)
		}
	}
	return If{Test: test, Then: body}
}

func (b *builder) processChoose(elem *xml.Element, state string) Output {
	var c Choose
	for _, child := range elementChildren(elem) {
		switch child.LocalName() {
		case "when":
			test := attrValue(child, "test")
			var body []Output
			for _, wc := range elementChildren(child) {
				if o := b.processInstruction(wc, state); o != nil {
					body = append(body, o)
				}
			}
			c.Whens = append(c.Whens, When{Test: test, Body: body})
		case "otherwise":
			var body []Output
			for _, oc := range elementChildren(child) {
				if o := b.processInstruction(oc, state); o != nil {
					body = append(body, o)
				}
			}
			c.Otherwise = body
			c.HasOtherwise = true
		}
	}
	return c
}

func (b *builder) processElementCtor(elem *xml.Element, state string) Output {
	name := attrValue(elem, "name")
	var children []Output
	for _, child := range elementChildren(elem) {
		if o := b.processInstruction(child, state); o != nil {
			children = append(children, o)
		}
	}
	return LiteralElement{Name: name, Children: children}
}

func (b *builder) processLiteralElement(elem *xml.Element, state string) Output {
	var children []Output
	if text := strings.TrimSpace(leadingText(elem)); text != "" {
		children = append(children, Text{Literal: text})
	}
	for _, child := range elementChildren(elem) {
		if o := b.processInstruction(child, state); o != nil {
			children = append(children, o)
		}
	}

	var attrs []OutputAttr
	for _, attr := range elem.Attrs {
		v := attr.Value()
		if strings.Contains(v, "{") && strings.Contains(v, "}") {
			start := strings.Index(v, "{")
			end := strings.Index(v, "}")
			attrs = append(attrs, OutputAttr{Name: attr.QualifiedName(), ValueExpr: v[start+1 : end], IsTemplate: true})
		} else {
			attrs = append(attrs, OutputAttr{Name: attr.QualifiedName(), Literal: v})
		}
	}

	return LiteralElement{Name: elem.LocalName(), Attrs: attrs, Children: children}
}

func (b *builder) collectOutputAlphabet(outputs []Output) {
	var walk func(Output)
	walk = func(o Output) {
		switch v := o.(type) {
		case LiteralElement:
			b.mtt.OutputAlphabet[v.Name] = true
			for _, c := range v.Children {
				walk(c)
			}
		case ForEach:
			for _, c := range v.Body {
				walk(c)
			}
		case If:
			for _, c := range v.Then {
				walk(c)
			}
		case Choose:
			for _, w := range v.Whens {
				for _, c := range w.Body {
					walk(c)
				}
			}
			for _, c := range v.Otherwise {
				walk(c)
			}
		}
	}
	for _, o := range outputs {
		walk(o)
	}
}

func elementChildren(elem *xml.Element) []*xml.Element {
	var out []*xml.Element
	for _, n := range elem.Nodes {
		if ce, ok := n.(*xml.Element); ok {
			out = append(out, ce)
		}
	}
	return out
}

func leadingText(elem *xml.Element) string {
	for _, n := range elem.Nodes {
		switch v := n.(type) {
		case *xml.Text:
			return v.Content
		case *xml.Element:
			return ""
		}
	}
	return ""
}

func findAllLocal(el *xml.Element, localName string) []*xml.Element {
	var out []*xml.Element
	var walk func(*xml.Element)
	walk = func(n *xml.Element) {
		for _, child := range n.Nodes {
			ce, ok := child.(*xml.Element)
			if !ok {
				continue
			}
			if ce.LocalName() == localName {
				out = append(out, ce)
			}
			walk(ce)
		}
	}
	walk(el)
	return out
}

func isStylesheetNS(elem *xml.Element) bool {
	return elem.Uri == stylesheetNS || elem.Space == "xsl"
}

func attrValue(elem *xml.Element, name string) string {
	return elem.GetAttribute(name).Value()
}

func attrValueDefault(elem *xml.Element, name, def string) string {
	if v := attrValue(elem, name); v != "" {
		return v
	}
	return def
}
