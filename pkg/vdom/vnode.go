// Package vdom provides the small virtual-node model that page layouts
// are expressed in.
//
// The router core treats layouts as opaque data; this package only
// defines the node values and an HTML serializer used by the server
// shell. There is no diffing here: wayfare swaps whole layouts on
// navigation.
package vdom

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota // <div>, <a>, etc.
	KindText                // Plain text node
	KindRaw                 // Raw HTML (dangerous)
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Attr is a single element attribute.
type Attr struct {
	Key   string
	Value string
}

// A constructs an attribute.
func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// VNode is a virtual node.
type VNode struct {
	Kind     Kind
	Tag      string   // Element tag name (e.g. "div")
	Attrs    []Attr   // Element attributes
	Children []*VNode // Child nodes
	Text     string   // For KindText and KindRaw
}

// El constructs an element node.
func El(tag string, attrs []Attr, children ...*VNode) *VNode {
	return &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Attrs:    attrs,
		Children: children,
	}
}

// Text constructs a text node. The content is escaped when serialized.
func Text(s string) *VNode {
	return &VNode{Kind: KindText, Text: s}
}

// Raw constructs a raw HTML node. The content is emitted verbatim;
// never pass user input.
func Raw(html string) *VNode {
	return &VNode{Kind: KindRaw, Text: html}
}
