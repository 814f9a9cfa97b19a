// Package xmlmap converts XML documents into nested string-keyed maps.
//
// Keys are fully qualified tag names in curly-brace notation
// ({namespaceURI}Tag). An element with child elements becomes a Map of its
// children; an element without children becomes its trimmed text content,
// which may be the empty string. Siblings sharing a tag name collapse to a
// single entry, last occurrence wins. That is a deliberate lossy
// simplification: the payloads processed here carry single-recipient
// envelopes, so repeated siblings do not occur in practice.
package xmlmap

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"signtrack/internal/domain"
)

// Map is a decoded XML tree: values are either nested Map or string leaves.
type Map map[string]any

// Decode parses well-formed XML bytes into a single-entry Map keyed by the
// root element's qualified name. Returns domain.ErrMalformedPayload wrapped
// with the parser's diagnostic when the input is not well-formed XML.
func Decode(data []byte) (Map, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", domain.ErrMalformedPayload)
	}
	return Map{QualifiedName(root): convert(root)}, nil
}

// QualifiedName returns {namespaceURI}Tag, or the bare tag when the element
// is not in a namespace.
func QualifiedName(el *etree.Element) string {
	if ns := el.NamespaceURI(); ns != "" {
		return "{" + ns + "}" + el.Tag
	}
	return el.Tag
}

func convert(el *etree.Element) any {
	children := el.ChildElements()
	if len(children) == 0 {
		return strings.TrimSpace(el.Text())
	}
	m := make(Map, len(children))
	for _, child := range children {
		m[QualifiedName(child)] = convert(child)
	}
	return m
}

// Child returns the nested Map stored under key, or nil when the key is
// absent or holds a leaf.
func (m Map) Child(key string) Map {
	if m == nil {
		return nil
	}
	child, _ := m[key].(Map)
	return child
}

// Leaf returns the string leaf stored under key and whether it was present
// as a leaf.
func (m Map) Leaf(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}
