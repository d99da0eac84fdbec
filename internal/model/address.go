package model

import "strings"

// WildcardValue marks a path element that stands for any resource of its
// type, e.g. host=* in the topology tree.
const WildcardValue = "*"

// PathElement is one (key, value) segment of a resource address.
type PathElement struct {
	key   string
	value string
}

// NewElement creates a path element with an explicit key and value.
func NewElement(key, value string) PathElement {
	return PathElement{key: key, value: value}
}

// NewWildcardElement creates a path element matching any value for key.
func NewWildcardElement(key string) PathElement {
	return PathElement{key: key, value: WildcardValue}
}

// Key returns the element key, e.g. "subsystem".
func (e PathElement) Key() string { return e.key }

// Value returns the element value, e.g. "web" or "*".
func (e PathElement) Value() string { return e.value }

// String renders the element as "key=value".
func (e PathElement) String() string {
	return e.key + "=" + e.value
}

// PathAddress is an ordered sequence of path elements from the root of the
// resource model. Addresses are immutable values: Append returns a new
// address and never aliases the receiver's backing array. Equality and
// lookup are structural over (key, value) pairs.
type PathAddress struct {
	elements []PathElement
}

// EmptyAddress is the address of the model root.
var EmptyAddress = PathAddress{}

// NewAddress creates an address from the given elements.
func NewAddress(elements ...PathElement) PathAddress {
	out := make([]PathElement, len(elements))
	copy(out, elements)
	return PathAddress{elements: out}
}

// Append returns a new address with the given elements appended.
func (a PathAddress) Append(elements ...PathElement) PathAddress {
	out := make([]PathElement, 0, len(a.elements)+len(elements))
	out = append(out, a.elements...)
	out = append(out, elements...)
	return PathAddress{elements: out}
}

// Concat returns a new address with other's elements appended after a's.
func (a PathAddress) Concat(other PathAddress) PathAddress {
	return a.Append(other.elements...)
}

// Size returns the number of elements in the address.
func (a PathAddress) Size() int { return len(a.elements) }

// IsEmpty reports whether the address is the model root.
func (a PathAddress) IsEmpty() bool { return len(a.elements) == 0 }

// Element returns the i-th element from the root.
func (a PathAddress) Element(i int) PathElement { return a.elements[i] }

// Last returns the terminal element. Calling Last on the empty address
// returns the zero element.
func (a PathAddress) Last() PathElement {
	if len(a.elements) == 0 {
		return PathElement{}
	}
	return a.elements[len(a.elements)-1]
}

// Elements returns a copy of the address elements in order.
func (a PathAddress) Elements() []PathElement {
	out := make([]PathElement, len(a.elements))
	copy(out, a.elements)
	return out
}

// Equals reports structural equality over (key, value) pairs.
func (a PathAddress) Equals(other PathAddress) bool {
	if len(a.elements) != len(other.elements) {
		return false
	}
	for i, e := range a.elements {
		if e != other.elements[i] {
			return false
		}
	}
	return true
}

// String renders the address as "/key=value/key=value". The empty address
// renders as "/".
func (a PathAddress) String() string {
	if len(a.elements) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, e := range a.elements {
		b.WriteByte('/')
		b.WriteString(e.String())
	}
	return b.String()
}
