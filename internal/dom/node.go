// Package dom models the slice of a host page the adapters care about: an
// element tree with attributes and text, selector queries, an event system
// with capture listeners and preventDefault, and structural-mutation
// notification with batched bursts. It deliberately mirrors how a
// framework-controlled page behaves: nodes appear and disappear at any
// time, and writes to an input are invisible to the host app unless the
// matching input/change events are synthesized.
//
// A Document and its nodes are not safe for concurrent use; a page is a
// single cooperative execution context.
package dom

import (
	"strings"
)

// Node is one element in the tree.
type Node struct {
	Tag string

	doc      *Document
	parent   *Node
	children []*Node
	attrs    map[string]string
	text     string // own text content, excluding children
	value    string // native editable value (input/textarea)

	listeners []*listener
}

// NewNode creates a detached element. It joins a document's tree via
// AppendChild.
func NewNode(tag string) *Node {
	return &Node{Tag: tag, attrs: make(map[string]string)}
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string { return n.attrs[name] }

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.attrs[name]
	return ok
}

// SetAttr sets an attribute. Structural observers are notified: frameworks
// flip attributes (class swaps, disabled toggles) as part of re-renders.
func (n *Node) SetAttr(name, value string) *Node {
	n.attrs[name] = value
	if n.doc != nil {
		n.doc.notify()
	}
	return n
}

// Classes returns the class attribute split on whitespace.
func (n *Node) Classes() []string { return strings.Fields(n.attrs["class"]) }

// Parent returns the parent element, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child list in document order.
func (n *Node) Children() []*Node { return n.children }

// SetText replaces the node's own text content.
func (n *Node) SetText(text string) {
	n.text = text
	if n.doc != nil {
		n.doc.notify()
	}
}

// Text returns the concatenated text of the node and its subtree, the
// moral equivalent of innerText.
func (n *Node) Text() string {
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	if n.text != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(n.text)
	}
	for _, c := range n.children {
		c.collectText(b)
	}
}

// Value returns the native editable value (textarea/input). Empty for
// other elements; contenteditable containers carry text, not value.
func (n *Node) Value() string { return n.value }

// SetValue writes the native editable value. Like a real page, this alone
// does not tell the host framework anything; callers must also dispatch
// the input/change events.
func (n *Node) SetValue(v string) { n.value = v }

// ContentEditable reports whether the node is a contenteditable container.
func (n *Node) ContentEditable() bool { return n.attrs["contenteditable"] == "true" }

// ValueBacked reports whether text lives in the value property rather than
// text content.
func (n *Node) ValueBacked() bool { return n.Tag == "textarea" || n.Tag == "input" }

// Disabled reports whether the element carries the disabled attribute.
func (n *Node) Disabled() bool { return n.HasAttr("disabled") }

// AppendChild attaches child as the last child and notifies structural
// observers.
func (n *Node) AppendChild(child *Node) *Node {
	child.detach()
	child.parent = n
	child.setDoc(n.doc)
	n.children = append(n.children, child)
	if n.doc != nil {
		n.doc.notify()
	}
	return child
}

// RemoveChild detaches child and notifies structural observers. Frameworks
// replace subtrees wholesale; a removed node keeps its own state but no
// longer appears in queries.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	doc := n.doc
	child.parent = nil
	child.setDoc(nil)
	if doc != nil {
		doc.notify()
	}
}

func (n *Node) detach() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

func (n *Node) setDoc(d *Document) {
	n.doc = d
	for _, c := range n.children {
		c.setDoc(d)
	}
}

// walk visits the subtree in document order (depth-first, pre-order).
func (n *Node) walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.children {
		c.walk(visit)
	}
}
