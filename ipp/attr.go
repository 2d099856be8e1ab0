/* Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Message attributes
 */

package ipp

// Attribute is a single named, typed attribute: a name plus one or more
// tagged values. Multiple values share one name on the wire (see Values).
type Attribute struct {
	Name   string
	Values Values
}

// MakeAttribute builds a single-valued Attribute.
func MakeAttribute(name string, tag Tag, value Value) Attribute {
	attr := Attribute{Name: name}
	attr.AddValue(tag, value)
	return attr
}

// AddValue appends a value to the attribute.
func (a *Attribute) AddValue(tag Tag, value Value) {
	a.Values.Add(tag, value)
}

// Attributes is an ordered list of Attribute, as carried by one
// AttributeGroup.
type Attributes []Attribute

// Add appends attr to the list.
func (attrs *Attributes) Add(attr Attribute) {
	*attrs = append(*attrs, attr)
}

// Get returns the named attribute and true, or a zero Attribute and false
// if no attribute by that name is present.
func (attrs Attributes) Get(name string) (Attribute, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Equal reports whether attrs and attrs2 carry the same attributes, in the
// same order — used by collection-value comparison and by tests.
func (attrs Attributes) Equal(attrs2 Attributes) bool {
	if len(attrs) != len(attrs2) {
		return false
	}
	for i, a := range attrs {
		a2 := attrs2[i]
		if a.Name != a2.Name || !a.Values.Equal(a2.Values) {
			return false
		}
	}
	return true
}
