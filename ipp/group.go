/* Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Groups of attributes
 */

package ipp

// AttributeGroup is an ordered sequence of attributes prefixed on the wire
// by a delimiter Tag: operation, job, printer or unsupported.
type AttributeGroup struct {
	Tag   Tag
	Attrs Attributes
}

// AttributeGroups is a sequence of AttributeGroup values, in the order
// they appear in (or will appear in) the message. A message may carry more
// than one group with the same Tag (e.g. several job groups in a
// Get-Jobs response), which is why this is a slice and not a map.
type AttributeGroups []AttributeGroup

// Add appends an attribute to the group.
func (g *AttributeGroup) Add(attr Attribute) {
	g.Attrs.Add(attr)
}

// Equal reports whether g and g2 carry the same tag and attributes, in
// the same order.
func (g AttributeGroup) Equal(g2 AttributeGroup) bool {
	return g.Tag == g2.Tag && g.Attrs.Equal(g2.Attrs)
}

// Add appends a group.
func (groups *AttributeGroups) Add(g AttributeGroup) {
	*groups = append(*groups, g)
}

// Equal reports whether groups and groups2 are the same sequence of
// groups.
func (groups AttributeGroups) Equal(groups2 AttributeGroups) bool {
	if len(groups) != len(groups2) {
		return false
	}
	for i, g := range groups {
		if !g.Equal(groups2[i]) {
			return false
		}
	}
	return true
}

// First returns the first group carrying tag, and true, or a zero group
// and false.
func (groups AttributeGroups) First(tag Tag) (AttributeGroup, bool) {
	for _, g := range groups {
		if g.Tag == tag {
			return g, true
		}
	}
	return AttributeGroup{}, false
}
