package ipp

import "fmt"

// ShortBufferError is returned when the decoder runs out of bytes before
// finishing a field it has already committed to reading.
type ShortBufferError struct{}

func (e *ShortBufferError) Error() string { return "ipp: short buffer" }

// UnknownSyntaxTagError is returned when a value tag outside the set this
// package knows how to decode is encountered.
type UnknownSyntaxTagError struct {
	Tag Tag
}

func (e *UnknownSyntaxTagError) Error() string {
	return fmt.Sprintf("ipp: unknown syntax tag 0x%2.2x", int(e.Tag))
}

// LengthMismatchError is returned when a fixed-width value (integer,
// boolean, resolution, range, dateTime) has a payload of the wrong size.
type LengthMismatchError struct {
	Tag      Tag
	Want, Got int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("ipp: %s value must be %d bytes, got %d", e.Tag, e.Want, e.Got)
}

// InvalidUTF8Error is returned when a character-string value (text, name,
// keyword, uri and the other String syntaxes) is not valid UTF-8.
type InvalidUTF8Error struct{}

func (e *InvalidUTF8Error) Error() string { return "ipp: invalid UTF-8 in string value" }

// UnbalancedCollectionError is returned when BegCollection/EndCollection
// tags do not nest properly within a group.
type UnbalancedCollectionError struct {
	Reason string
}

func (e *UnbalancedCollectionError) Error() string {
	return fmt.Sprintf("ipp: unbalanced collection: %s", e.Reason)
}

// DepthExceededError is returned when nested collections exceed the
// decoder's configured maximum nesting depth.
type DepthExceededError struct {
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("ipp: collection nesting exceeds limit of %d", e.Limit)
}

// MalformedAttributeError is returned when an attribute's on-wire shape
// violates the codec's structural rules (e.g. a zero-length name with no
// preceding attribute to extend).
type MalformedAttributeError struct {
	Reason string
}

func (e *MalformedAttributeError) Error() string {
	return fmt.Sprintf("ipp: malformed attribute: %s", e.Reason)
}
