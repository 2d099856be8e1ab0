/* Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * IPP message decoder
 */

package ipp

import (
	"encoding/binary"
	"io"
)

// maxCollectionDepth bounds collection nesting to prevent stack blowup on
// malformed or hostile input. It is a fixed package constant: Decode and
// DecodeBytes always apply it.
const maxCollectionDepth = 32

// messageDecoder reads the wire form of a Message's header and attribute
// groups from an io.Reader.
type messageDecoder struct {
	in  io.Reader
	off int
	cnt int
}

func (md *messageDecoder) decode(m *Message) error {
	// Wire format:
	//   1 byte:   version major
	//   1 byte:   version minor
	//   2 bytes:  operation-id or status-code
	//   4 bytes:  request-id
	//   variable: attribute groups
	//   1 byte:   end-of-attributes-tag
	version, err := md.decodeU16()
	if err != nil {
		return err
	}
	m.Version = Version(version)

	code, err := md.decodeU16()
	if err != nil {
		return err
	}
	m.Code = Code(code)

	requestID, err := md.decodeU32()
	if err != nil {
		return err
	}
	m.RequestID = int32(requestID)

	var group *AttributeGroup
	var prev *Attribute

	for {
		tag, err := md.decodeTag()
		if err != nil {
			return err
		}

		if tag.IsDelimiter() {
			prev = nil
		}

		switch tag {
		case TagEnd:
			return nil

		case TagOperationGroup, TagJobGroup, TagPrinterGroup, TagUnsupportedGroup:
			m.Groups.Add(AttributeGroup{Tag: tag})
			group = &m.Groups[len(m.Groups)-1]

		case TagZero:
			return &MalformedAttributeError{Reason: "unexpected tag 0x00"}

		case TagMemberAttrName, TagEndCollection:
			return &MalformedAttributeError{Reason: "unexpected " + tag.String() + " outside a collection"}

		default:
			attr, err := md.decodeAttribute(tag, 0)
			if err != nil {
				return err
			}

			switch {
			case attr.Name == "":
				if prev == nil {
					return &MalformedAttributeError{
						Reason: "zero-length name without a preceding attribute",
					}
				}
				prev.Values.Add(attr.Values[0].T, attr.Values[0].V)
			case group == nil:
				return &MalformedAttributeError{Reason: "attribute outside any group"}
			default:
				group.Add(attr)
				prev = &group.Attrs[len(group.Attrs)-1]
			}
		}
	}
}

// decodeAttribute reads one name/tag/value triple. If tag is
// TagBegCollection, it recurses to decode the nested member attributes up
// to maxCollectionDepth.
func (md *messageDecoder) decodeAttribute(tag Tag, depth int) (Attribute, error) {
	name, err := md.decodeString()
	if err != nil {
		return Attribute{}, err
	}

	raw, err := md.decodeBytes()
	if err != nil {
		return Attribute{}, err
	}

	if tag == TagBegCollection {
		if depth >= maxCollectionDepth {
			return Attribute{}, &DepthExceededError{Limit: maxCollectionDepth}
		}
		collection, err := md.decodeCollection(depth + 1)
		if err != nil {
			return Attribute{}, err
		}
		attr := Attribute{Name: name}
		attr.AddValue(tag, collection)
		return attr, nil
	}

	value, err := decodeValue(tag, raw)
	if err != nil {
		return Attribute{}, err
	}

	attr := Attribute{Name: name}
	attr.AddValue(tag, value)
	return attr, nil
}

// decodeCollection reads a collection's members, which are encoded as
// TagMemberAttrName/value pairs, until a matching TagEndCollection.
func (md *messageDecoder) decodeCollection(depth int) (Collection, error) {
	collection := make(Collection, 0)

	for {
		tag, err := md.decodeTag()
		if err != nil {
			return nil, err
		}

		switch tag {
		case TagEndCollection:
			if _, err := md.decodeAttribute(tag, depth); err != nil {
				return nil, err
			}
			return collection, nil

		case TagMemberAttrName:
			nameAttr, err := md.decodeAttribute(tag, depth)
			if err != nil {
				return nil, err
			}
			memberName := string(nameAttr.Values[0].V.(String))

			memberTag, err := md.decodeTag()
			if err != nil {
				return nil, err
			}
			if memberTag.IsDelimiter() || memberTag == TagEndCollection || memberTag == TagMemberAttrName {
				return nil, &UnbalancedCollectionError{
					Reason: "expected a member value after memberAttrName, got " + memberTag.String(),
				}
			}

			member, err := md.decodeAttribute(memberTag, depth)
			if err != nil {
				return nil, err
			}
			member.Name = memberName
			collection = append(collection, member)

		default:
			return nil, &UnbalancedCollectionError{
				Reason: "expected memberAttrName or endCollection, got " + tag.String(),
			}
		}
	}
}

func (md *messageDecoder) decodeTag() (Tag, error) {
	b, err := md.decodeU8()
	return Tag(b), err
}

func (md *messageDecoder) decodeU8() (uint8, error) {
	buf := make([]byte, 1)
	err := md.read(buf)
	return buf[0], err
}

func (md *messageDecoder) decodeU16() (uint16, error) {
	buf := make([]byte, 2)
	err := md.read(buf)
	return binary.BigEndian.Uint16(buf), err
}

func (md *messageDecoder) decodeU32() (uint32, error) {
	buf := make([]byte, 4)
	err := md.read(buf)
	return binary.BigEndian.Uint32(buf), err
}

func (md *messageDecoder) decodeBytes() ([]byte, error) {
	length, err := md.decodeU16()
	if err != nil {
		return nil, err
	}

	data := make([]byte, length)
	if err := md.read(data); err != nil {
		return nil, err
	}

	return data, nil
}

func (md *messageDecoder) decodeString() (string, error) {
	data, err := md.decodeBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (md *messageDecoder) read(data []byte) error {
	md.off = md.cnt

	for len(data) > 0 {
		n, err := md.in.Read(data)
		if err != nil {
			md.off = md.cnt
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return &ShortBufferError{}
			}
			return err
		}

		md.cnt += n
		data = data[n:]
	}

	return nil
}
