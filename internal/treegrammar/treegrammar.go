// Package treegrammar implements component B: translating an
// XSD-shaped schema document into a regular tree grammar with
// cardinality and value constraints.
package treegrammar

import (
	"strconv"
	"strings"

	"github.com/midbel/xsltproof/internal/proof"
	"github.com/midbel/xsltproof/internal/symtab"
	"github.com/midbel/xsltproof/xml"
)

// Unbounded is the serialized/in-memory representation of cardinality
// ∞, per spec §6 ("Cardinality ∞ serializes as -1").
const Unbounded = -1

type Kind string

const (
	Sequence Kind = "sequence"
	Choice   Kind = "choice"
	All      Kind = "all"
)

type Cardinality struct {
	Lo int
	Hi int
}

func (c Cardinality) String() string {
	hi := strconv.Itoa(c.Hi)
	if c.Hi == Unbounded {
		hi = "unbounded"
	}
	return "(" + strconv.Itoa(c.Lo) + ".." + hi + ")"
}

func DefaultCardinality() Cardinality {
	return Cardinality{Lo: 1, Hi: 1}
}

// Production is one rule of the grammar: lhs -> rhs, per spec §3.
type Production struct {
	LHS         string
	RHS         []string
	Kind        Kind
	Cardinality Cardinality
}

// TypeConstraint carries a base atomic type and its restriction
// facets. Restrictions is keyed by facet local name; every facet is
// single-valued except enumeration, which accumulates every occurrence.
type TypeConstraint struct {
	BaseType     string
	Restrictions map[string][]string
}

func (t TypeConstraint) Restriction(key string) ([]string, bool) {
	v, ok := t.Restrictions[key]
	return v, ok
}

type AttributeDecl struct {
	Name     string
	TypeRef  string
	Required bool
}

// Grammar is the regular tree grammar G = (N, Σ, P, S) of spec §3.
// Nonterminals N are implicit: every distinct Production.LHS plus
// every name that never produces (a leaf resolving into Alphabet).
type Grammar struct {
	Root            string
	Alphabet        map[string]bool
	Productions     []Production
	TypeConstraints map[string]TypeConstraint
	Attributes      map[string][]AttributeDecl
}

func newGrammar() *Grammar {
	return &Grammar{
		Alphabet:        make(map[string]bool),
		TypeConstraints: make(map[string]TypeConstraint),
		Attributes:      make(map[string][]AttributeDecl),
	}
}

// ProductionsFor returns every production whose lhs equals name, in
// the order they were inserted (insertion order mirrors schema order,
// per the ordering guarantees of spec §5).
func (g *Grammar) ProductionsFor(name string) []Production {
	var out []Production
	for _, p := range g.Productions {
		if p.LHS == name {
			out = append(out, p)
		}
	}
	return out
}

func (g *Grammar) HasProductionFor(name string) bool {
	for _, p := range g.Productions {
		if p.LHS == name {
			return true
		}
	}
	return false
}

type builder struct {
	grammar      *Grammar
	complexTypes symtab.Scope[*xml.Element]
	simpleTypes  symtab.Scope[*xml.Element]
	visiting     map[string]bool
	trace        proof.Trace
}

// Build parses a schema document into a Grammar, following the
// two-pass algorithm of spec §4.B: collect named type definitions,
// then process every top-level element, the first of which becomes
// the grammar root.
func Build(doc *xml.Document) (*Grammar, proof.Trace, error) {
	root := doc.Root()
	el, ok := root.(*xml.Element)
	if !ok {
		return nil, nil, proof.List{proof.Err(proof.CodeSchemaDefect, "/", "schema document has no root element")}
	}

	b := &builder{
		grammar:      newGrammar(),
		complexTypes: symtab.Empty[*xml.Element](),
		simpleTypes:  symtab.Empty[*xml.Element](),
		visiting:     make(map[string]bool),
	}
	b.collectTypes(el)

	for _, elem := range directChildrenLocal(el, "element") {
		name := attrValue(elem, "name")
		if name == "" {
			continue
		}
		if b.grammar.Root == "" {
			b.grammar.Root = name
		}
		b.processElement(elem, name)
	}

	if b.grammar.Root == "" {
		b.trace.Err(proof.CodeSchemaDefect, "/", "schema declares no top-level element")
	} else {
		b.trace.OK("/"+b.grammar.Root, "root element %q established", b.grammar.Root)
	}
	return b.grammar, b.trace, nil
}

func (b *builder) collectTypes(root *xml.Element) {
	for _, ct := range findAllLocal(root, "complexType") {
		if name := attrValue(ct, "name"); name != "" {
			b.complexTypes.Define(name, ct)
		}
	}
	for _, st := range findAllLocal(root, "simpleType") {
		if name := attrValue(st, "name"); name != "" {
			b.simpleTypes.Define(name, st)
		}
	}
}

func (b *builder) processElement(elem *xml.Element, elementName string) {
	if b.visiting[elementName] {
		return
	}
	b.visiting[elementName] = true
	defer delete(b.visiting, elementName)

	card := cardinalityOf(elem)

	typeRef := attrValue(elem, "type")
	refName := attrValue(elem, "ref")
	switch {
	case typeRef != "":
		b.processTypeRef(elem, elementName, typeRef, card)
	case refName != "" && attrValue(elem, "name") == "":
		// ref= without name= reuses the referenced nonterminal; no new
		// production is emitted under elementName itself.
		b.trace.Info("/"+elementName, "element references %q via ref=, reusing its nonterminal", refName)
	default:
		if ct := firstChildLocal(elem, "complexType"); ct != nil {
			b.processComplexType(ct, elementName, card)
		} else if st := firstChildLocal(elem, "simpleType"); st != nil {
			b.processSimpleType(st, elementName, card)
		}
	}
}

func (b *builder) processTypeRef(elem *xml.Element, elementName, typeRef string, card Cardinality) {
	if base, ok := stripBuiltin(typeRef); ok {
		b.grammar.Alphabet[base] = true
		b.grammar.TypeConstraints[elementName] = TypeConstraint{BaseType: base, Restrictions: map[string][]string{}}
		b.grammar.Productions = append(b.grammar.Productions, Production{
			LHS: elementName, RHS: []string{base}, Kind: Sequence, Cardinality: card,
		})
		return
	}
	if ct, err := b.complexTypes.Resolve(typeRef); err == nil {
		b.processComplexType(ct, elementName, card)
		return
	}
	if st, err := b.simpleTypes.Resolve(typeRef); err == nil {
		b.processSimpleType(st, elementName, card)
		return
	}
	// Unknown type reference: downgrade to string with a warning,
	// per spec §4.B contract ("silently downgrades unknown type
	// references to string with a warning").
	b.trace.Warn(proof.CodeSchemaDefect, "/"+elementName, "unknown type reference %q, defaulting to string", typeRef)
	b.grammar.Alphabet["string"] = true
	b.grammar.TypeConstraints[elementName] = TypeConstraint{BaseType: "string", Restrictions: map[string][]string{}}
	b.grammar.Productions = append(b.grammar.Productions, Production{
		LHS: elementName, RHS: []string{"string"}, Kind: Sequence, Cardinality: card,
	})
}

func (b *builder) processComplexType(ct *xml.Element, elementName string, card Cardinality) {
	var attrs []AttributeDecl
	for _, attr := range findAllLocal(ct, "attribute") {
		attrs = append(attrs, b.processAttribute(attr))
	}
	if len(attrs) > 0 {
		b.grammar.Attributes[elementName] = attrs
	}

	switch {
	case firstChildLocal(ct, "sequence") != nil:
		b.processChildren(firstChildLocal(ct, "sequence"), elementName, Sequence, card)
	case firstChildLocal(ct, "choice") != nil:
		b.processChildren(firstChildLocal(ct, "choice"), elementName, Choice, card)
	case firstChildLocal(ct, "all") != nil:
		b.processChildren(firstChildLocal(ct, "all"), elementName, All, card)
	default:
		if sc := firstChildLocal(ct, "simpleContent"); sc != nil {
			if ext := firstChildLocal(sc, "extension"); ext != nil {
				base, _ := stripBuiltin(attrValueDefault(ext, "base", "xs:string"))
				b.grammar.Alphabet[base] = true
				b.grammar.TypeConstraints[elementName] = TypeConstraint{BaseType: base, Restrictions: map[string][]string{}}
			}
		}
	}
}

func (b *builder) processAttribute(attr *xml.Element) AttributeDecl {
	name := attrValue(attr, "name")
	required := attrValue(attr, "use") == "required"

	if inline := firstChildLocal(attr, "simpleType"); inline != nil {
		if restriction := firstChildLocal(inline, "restriction"); restriction != nil {
			base, _ := stripBuiltin(attrValueDefault(restriction, "base", "xs:string"))
			restrictions := collectRestrictions(restriction)
			b.grammar.TypeConstraints[name] = TypeConstraint{BaseType: base, Restrictions: restrictions}
			return AttributeDecl{Name: name, TypeRef: base, Required: required}
		}
		b.grammar.TypeConstraints[name] = TypeConstraint{BaseType: "string", Restrictions: map[string][]string{}}
		return AttributeDecl{Name: name, TypeRef: "string", Required: required}
	}

	if typeRef := attrValue(attr, "type"); typeRef != "" {
		base, _ := stripBuiltin(typeRef)
		b.grammar.TypeConstraints[name] = TypeConstraint{BaseType: base, Restrictions: map[string][]string{}}
		return AttributeDecl{Name: name, TypeRef: base, Required: required}
	}

	b.grammar.TypeConstraints[name] = TypeConstraint{BaseType: "string", Restrictions: map[string][]string{}}
	return AttributeDecl{Name: name, TypeRef: "string", Required: required}
}

func (b *builder) processChildren(group *xml.Element, parentName string, kind Kind, card Cardinality) {
	var children []string
	for _, child := range findAllLocal(group, "element") {
		name := attrValue(child, "name")
		if name == "" {
			name = attrValue(child, "ref")
		}
		if name == "" {
			continue
		}
		children = append(children, name)
		if attrValue(child, "name") != "" {
			b.processElement(child, name)
		}
	}
	if len(children) == 0 {
		return
	}
	b.grammar.Productions = append(b.grammar.Productions, Production{
		LHS: parentName, RHS: children, Kind: kind, Cardinality: card,
	})
}

func (b *builder) processSimpleType(st *xml.Element, elementName string, card Cardinality) {
	restriction := firstChildLocal(st, "restriction")
	if restriction == nil {
		return
	}
	base, _ := stripBuiltin(attrValueDefault(restriction, "base", "xs:string"))
	restrictions := collectRestrictions(restriction)

	b.grammar.Alphabet[base] = true
	b.grammar.TypeConstraints[elementName] = TypeConstraint{BaseType: base, Restrictions: restrictions}
	b.grammar.Productions = append(b.grammar.Productions, Production{
		LHS: elementName, RHS: []string{base}, Kind: Sequence, Cardinality: card,
	})
}

func collectRestrictions(restriction *xml.Element) map[string][]string {
	restrictions := make(map[string][]string)
	for _, child := range restriction.Nodes {
		el, ok := child.(*xml.Element)
		if !ok {
			continue
		}
		value := attrValue(el, "value")
		if value == "" {
			continue
		}
		key := el.LocalName()
		restrictions[key] = append(restrictions[key], value)
	}
	return restrictions
}

func cardinalityOf(elem *xml.Element) Cardinality {
	lo := 1
	if v := attrValue(elem, "minOccurs"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lo = n
		}
	}
	hi := 1
	if v := attrValue(elem, "maxOccurs"); v != "" {
		if v == "unbounded" {
			hi = Unbounded
		} else if n, err := strconv.Atoi(v); err == nil {
			hi = n
		}
	}
	return Cardinality{Lo: lo, Hi: hi}
}

func stripBuiltin(typeRef string) (string, bool) {
	if strings.HasPrefix(typeRef, "xs:") {
		return strings.TrimPrefix(typeRef, "xs:"), true
	}
	if strings.HasPrefix(typeRef, "xsd:") {
		return strings.TrimPrefix(typeRef, "xsd:"), true
	}
	return typeRef, false
}

func attrValue(el *xml.Element, name string) string {
	return el.GetAttribute(name).Value()
}

func attrValueDefault(el *xml.Element, name, def string) string {
	if v := attrValue(el, name); v != "" {
		return v
	}
	return def
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

// directChildrenLocal returns el's immediate <localName> children only,
// unlike findAllLocal's recursive descent. The schema's top-level
// elements must be collected this way: every nested <xs:element> is
// already reached once through processChildren's own recursion, so a
// recursive scan here would visit and re-emit a production for each of
// them a second time.
func directChildrenLocal(el *xml.Element, localName string) []*xml.Element {
	var out []*xml.Element
	for _, child := range el.Nodes {
		ce, ok := child.(*xml.Element)
		if ok && ce.LocalName() == localName {
			out = append(out, ce)
		}
	}
	return out
}

func firstChildLocal(el *xml.Element, localName string) *xml.Element {
	for _, child := range el.Nodes {
		ce, ok := child.(*xml.Element)
		if ok && ce.LocalName() == localName {
			return ce
		}
	}
	return nil
}
