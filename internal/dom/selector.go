package dom

import (
	"fmt"
	"strings"
)

// The selector dialect covers what the per-site configuration tables
// actually use: a tag name, #id, .class, and attribute tests with exact
// ([a="b"]) or substring ([a*="b"]) matching, compounded in any order.
// Combinators are not supported.
type selectorPart struct {
	attr  string
	op    string // "", "=", "*="
	value string
}

type compiledSelector struct {
	tag   string
	id    string
	class []string
	attrs []selectorPart
}

func parseSelector(s string) (*compiledSelector, error) {
	sel := &compiledSelector{}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty selector")
	}

	i := 0
	// Leading tag name.
	for i < len(s) && isNameChar(s[i]) {
		i++
	}
	sel.tag = s[:i]

	for i < len(s) {
		switch s[i] {
		case '#':
			start := i + 1
			i = start
			for i < len(s) && isNameChar(s[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("empty id in %q", s)
			}
			sel.id = s[start:i]
		case '.':
			start := i + 1
			i = start
			for i < len(s) && isNameChar(s[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("empty class in %q", s)
			}
			sel.class = append(sel.class, s[start:i])
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated attribute in %q", s)
			}
			part, err := parseAttrTest(s[i+1 : i+end])
			if err != nil {
				return nil, err
			}
			sel.attrs = append(sel.attrs, part)
			i += end + 1
		default:
			return nil, fmt.Errorf("unexpected %q in selector %q", s[i], s)
		}
	}
	return sel, nil
}

func parseAttrTest(body string) (selectorPart, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return selectorPart{}, fmt.Errorf("empty attribute test")
	}

	op := ""
	idx := -1
	if j := strings.Index(body, "*="); j >= 0 {
		op, idx = "*=", j
	} else if j := strings.IndexByte(body, '='); j >= 0 {
		op, idx = "=", j
	}

	if op == "" {
		return selectorPart{attr: body}, nil
	}

	name := strings.TrimSpace(body[:idx])
	value := strings.TrimSpace(body[idx+len(op):])
	value = strings.Trim(value, `"'`)
	if name == "" {
		return selectorPart{}, fmt.Errorf("attribute test %q missing name", body)
	}
	return selectorPart{attr: name, op: op, value: value}, nil
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '-' || c == '_'
}

func (sel *compiledSelector) matches(n *Node) bool {
	if sel.tag != "" && !strings.EqualFold(sel.tag, n.Tag) {
		return false
	}
	if sel.id != "" && n.Attr("id") != sel.id {
		return false
	}
	for _, class := range sel.class {
		if !hasClass(n, class) {
			return false
		}
	}
	for _, part := range sel.attrs {
		if !part.matchesNode(n) {
			return false
		}
	}
	return true
}

func (p selectorPart) matchesNode(n *Node) bool {
	if !n.HasAttr(p.attr) {
		return false
	}
	switch p.op {
	case "":
		return true
	case "=":
		return n.Attr(p.attr) == p.value
	case "*=":
		return strings.Contains(n.Attr(p.attr), p.value)
	}
	return false
}

func hasClass(n *Node, class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}
