package xml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// NodeType tags the handful of XML constructs the analyzer's parser and
// writer need to round-trip schemas, stylesheets, and generated
// counterexample documents: elements, attributes, text, comments, and
// processing instructions (the XML prolog only).
type NodeType int8

const (
	TypeDocument NodeType = 1 << iota
	TypeElement
	TypeComment
	TypeAttribute
	TypeInstruction
	TypeText
)

func (n NodeType) String() string {
	switch n {
	default:
		return "<>"
	case TypeDocument:
		return "document"
	case TypeElement:
		return "element"
	case TypeComment:
		return "comment"
	case TypeAttribute:
		return "attribute"
	case TypeInstruction:
		return "pi"
	case TypeText:
		return "text"
	}
}

// Node is the minimal surface every tree construct implements. The
// analyzer never needs to navigate siblings or clone subtrees, so this
// stays narrower than a general-purpose XML DOM.
type Node interface {
	Type() NodeType
	LocalName() string
	QualifiedName() string
	Leaf() bool
	Position() int
	Parent() Node
	Value() string

	setParent(Node)
	setPosition(int)
}

type BaseNode struct {
	Nodes    []Node
	parent   Node
	position int
}

func (n *BaseNode) setParent(node Node) {
	n.parent = node
}

func (n *BaseNode) setPosition(pos int) {
	n.position = pos
}

var ErrElement = errors.New("element expected")

// Document wraps the root element of a parsed schema or stylesheet
// together with the XML declaration the writer needs to reproduce it.
type Document struct {
	Version    string
	Encoding   string
	Standalone string

	Nodes []Node
}

func NewDocument(root Node) *Document {
	doc := EmptyDocument()
	doc.Nodes = append(doc.Nodes, root)
	return doc
}

func EmptyDocument() *Document {
	doc := Document{
		Version:  SupportedVersion,
		Encoding: SupportedEncoding,
	}
	return &doc
}

func (d *Document) Write(w io.Writer) error {
	return NewWriter(w).Write(d)
}

func (d *Document) WriteString() (string, error) {
	var (
		buf bytes.Buffer
		err = d.Write(&buf)
	)
	return buf.String(), err
}

// Root returns the document's single top-level element, or nil for a
// document that never parsed one (the caller is expected to reject
// this before any schema/stylesheet analysis starts).
func (d *Document) Root() Node {
	for i := range d.Nodes {
		if d.Nodes[i].Type() == TypeElement {
			return d.Nodes[i]
		}
	}
	return nil
}

func (d *Document) Type() NodeType {
	return TypeDocument
}

func (d *Document) LocalName() string {
	return ""
}

func (d *Document) QualifiedName() string {
	return ""
}

func (d *Document) Leaf() bool {
	return false
}

func (d *Document) Position() int {
	return 0
}

func (d *Document) Parent() Node {
	return nil
}

func (d *Document) Value() string {
	return ""
}

func (d *Document) attach(node Node) {
	node.setParent(d)
	node.setPosition(len(d.Nodes))
	d.Nodes = append(d.Nodes, node)
}

func (d *Document) setParent(_ Node) {}

func (d *Document) setPosition(_ int) {}

// QName is an expanded or qualified element/attribute name: the
// namespace-prefixed `Space:Name` pairs xsd/xslt tags and attributes
// carry, plus the resolved Uri once the parser has tracked it down
// through the in-scope namespace declarations.
type QName struct {
	Uri   string
	Space string
	Name  string
}

func ParseName(name string) (QName, error) {
	var (
		qn QName
		ok bool
	)
	qn.Space, qn.Name, ok = strings.Cut(name, ":")
	if !ok {
		qn.Name, qn.Space = qn.Space, ""
	}
	if ok && qn.Space == "" {
		return qn, fmt.Errorf("invalid namespace")
	}
	return qn, nil
}

func ExpandedName(name, space, uri string) QName {
	return QName{
		Name:  name,
		Space: space,
		Uri:   uri,
	}
}

func LocalName(name string) QName {
	return ExpandedName(name, "", "")
}

func QualifiedName(name, space string) QName {
	return ExpandedName(name, space, "")
}

func (q QName) Equal(other QName) bool {
	return q.Uri == other.Uri && q.Name == other.Name
}

func (q QName) LocalName() string {
	return q.Name
}

func (q QName) ExpandedName() string {
	if q.Uri == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("{%s}%s", q.Uri, q.Name)
}

func (q QName) QualifiedName() string {
	if q.Space == "" {
		return q.LocalName()
	}
	return fmt.Sprintf("%s:%s", q.Space, q.Name)
}

type Attribute struct {
	QName
	Datum string

	parent   Node
	position int
}

func NewAttribute(name QName, value string) Attribute {
	return Attribute{
		QName: name,
		Datum: value,
	}
}

func (_ *Attribute) Type() NodeType {
	return TypeAttribute
}

func (_ *Attribute) Leaf() bool {
	return true
}

func (a *Attribute) Position() int {
	return a.position
}

func (a *Attribute) Parent() Node {
	return a.parent
}

func (a Attribute) Value() string {
	return a.Datum
}

func (a *Attribute) setParent(node Node) {
	a.parent = node
}

func (a *Attribute) setPosition(pos int) {
	a.position = pos
}

// Element is the workhorse node: an xsd:element/xsd:complexType tag, an
// xsl:template/xsl:value-of tag, or a node of a generated counterexample
// document. Everything components A-E inspect hangs off Attrs and
// Nodes.
type Element struct {
	QName
	Attrs []Attribute
	Nodes []Node

	parent   Node
	position int
}

func NewElement(name QName) *Element {
	return &Element{
		QName: name,
	}
}

func (_ *Element) Type() NodeType {
	return TypeElement
}

func (e *Element) Leaf() bool {
	if e.Empty() {
		return true
	}
	switch e.Nodes[0].(type) {
	case *Text:
	case *CharData:
	default:
		return false
	}
	return true
}

func (e *Element) Empty() bool {
	return len(e.Nodes) == 0
}

func (e *Element) Value() string {
	var list []string
	for _, n := range e.Nodes {
		str := n.Value()
		list = append(list, str)
	}
	return strings.Join(list, " ")
}

// Append attaches node as the element's last child or, when node is an
// *Attribute, sets it in Attrs instead (replacing any attribute with the
// same qualified name).
func (e *Element) Append(node Node) {
	node.setParent(e)
	node.setPosition(len(e.Nodes))
	if a, ok := node.(*Attribute); ok {
		e.setAttribute(*a)
	} else {
		e.Nodes = append(e.Nodes, node)
	}
}

func (e *Element) Position() int {
	return e.position
}

func (e *Element) Parent() Node {
	return e.parent
}

func (e *Element) setAttribute(attr Attribute) {
	ix := slices.IndexFunc(e.Attrs, func(a Attribute) bool {
		return a.QualifiedName() == attr.QualifiedName()
	})
	if ix < 0 {
		e.Attrs = append(e.Attrs, attr)
	} else {
		e.Attrs[ix] = attr
	}
}

// GetAttribute looks up an attribute by its local name, ignoring
// namespace prefix: good enough for the xsd/xslt attributes the
// analyzer reads (name, type, match, test, minOccurs, ...), none of
// which collide across namespaces in the accepted subset.
func (e *Element) GetAttribute(name string) Attribute {
	ix := slices.IndexFunc(e.Attrs, func(a Attribute) bool {
		return a.Name == name
	})
	var attr Attribute
	if ix < 0 {
		return attr
	}
	return e.Attrs[ix]
}

func (e *Element) setPosition(pos int) {
	e.position = pos
}

func (e *Element) setParent(parent Node) {
	e.parent = parent
}

// Instruction models a processing instruction. The parser builds one
// for a document's `<?xml ... ?>` prolog, and Writer.Write emits a
// synthetic prolog instruction ahead of a document unless
// OptionNoProlog is set.
type Instruction struct {
	QName
	Attrs []Attribute

	parent   Node
	position int
}

func NewInstruction(name QName) *Instruction {
	return &Instruction{
		QName: name,
	}
}

func (_ *Instruction) Type() NodeType {
	return TypeInstruction
}

func (i *Instruction) Leaf() bool {
	return true
}

func (i *Instruction) Value() string {
	return ""
}

func (i *Instruction) Position() int {
	return i.position
}

func (i *Instruction) Parent() Node {
	return i.parent
}

func (i *Instruction) setPosition(pos int) {
	i.position = pos
}

func (i *Instruction) setParent(parent Node) {
	i.parent = parent
}

// CharData is raw character content kept distinct from Text so the
// writer can tell apart a CDATA section from ordinary text when it
// re-serializes a parsed document.
type CharData struct {
	Content string

	parent   Node
	position int
}

func NewCharacterData(chardata string) *CharData {
	return &CharData{
		Content: chardata,
	}
}

func (_ *CharData) Type() NodeType {
	return TypeText
}

func (c *CharData) LocalName() string {
	return ""
}

func (c *CharData) QualifiedName() string {
	return ""
}

func (c *CharData) Leaf() bool {
	return true
}

func (c *CharData) Value() string {
	return c.Content
}

func (c *CharData) Position() int {
	return c.position
}

func (c *CharData) Parent() Node {
	return c.parent
}

func (c *CharData) setPosition(pos int) {
	c.position = pos
}

func (c *CharData) setParent(parent Node) {
	c.parent = parent
}

type Text struct {
	Content string

	parent   Node
	position int
}

func NewText(text string) *Text {
	return &Text{
		Content: text,
	}
}

func (_ *Text) Type() NodeType {
	return TypeText
}

func (t *Text) LocalName() string {
	return ""
}

func (t *Text) QualifiedName() string {
	return ""
}

func (t *Text) Leaf() bool {
	return true
}

func (t *Text) Value() string {
	return t.Content
}

func (t *Text) Position() int {
	return t.position
}

func (t *Text) Parent() Node {
	return t.parent
}

func (t *Text) setPosition(pos int) {
	t.position = pos
}

func (t *Text) setParent(parent Node) {
	t.parent = parent
}

// Comment preserves `<!-- ... -->` nodes on parse so a round-tripped
// stylesheet or schema does not silently drop them on write.
type Comment struct {
	Content string

	parent   Node
	position int
}

func NewComment(comment string) *Comment {
	return &Comment{
		Content: comment,
	}
}

func (_ *Comment) Type() NodeType {
	return TypeComment
}

func (c *Comment) LocalName() string {
	return ""
}

func (c *Comment) QualifiedName() string {
	return ""
}

func (c *Comment) Leaf() bool {
	return true
}

func (c *Comment) Value() string {
	return c.Content
}

func (c *Comment) Position() int {
	return c.position
}

func (c *Comment) Parent() Node {
	return c.parent
}

func (c *Comment) setPosition(pos int) {
	c.position = pos
}

func (c *Comment) setParent(parent Node) {
	c.parent = parent
}
