package ipp

import (
	"testing"
	"time"
)

// TestValueRoundTrip exercises every Value variant tabulated in the data
// model: encode(decode(bytes)) == bytes and decode(encode(value)) == value.
func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tag  Tag
		val  Value
	}{
		{"integer", TagInteger, Integer(12345)},
		{"integer-negative", TagInteger, Integer(-7)},
		{"enum", TagEnum, Integer(3)},
		{"boolean-true", TagBoolean, Boolean(true)},
		{"boolean-false", TagBoolean, Boolean(false)},
		{"octetString", TagOctetString, Binary{0x01, 0x02, 0xff}},
		{"resolution", TagResolution, Resolution{Xres: 300, Yres: 300, Units: UnitsDpi}},
		{"rangeOfInteger", TagRangeOfInteger, Range{Lower: 1, Upper: 10}},
		{"textWithLang", TagTextWithLang, TextWithLang{Lang: "en", Text: "hello"}},
		{"nameWithLang", TagNameWithLang, TextWithLang{Lang: "fr", Text: "bonjour"}},
		{"textWithoutLang", TagTextWithoutLang, String("hello")},
		{"nameWithoutLang", TagNameWithoutLang, String("a name")},
		{"keyword", TagKeyword, String("one-sided")},
		{"uri", TagURI, String("ipp://localhost/printers/x")},
		{"uriScheme", TagURIScheme, String("ipp")},
		{"charset", TagCharset, String("utf-8")},
		{"naturalLanguage", TagNaturalLanguage, String("en")},
		{"mimeMediaType", TagMimeMediaType, String("application/pdf")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := test.val.encode()
			if err != nil {
				t.Fatalf("encode: %s", err)
			}

			decoded, err := decodeValue(test.tag, data)
			if err != nil {
				t.Fatalf("decodeValue: %s", err)
			}
			if !ValueEqual(decoded, test.val) {
				t.Errorf("decode(encode(%v)) = %v", test.val, decoded)
			}

			reencoded, err := decoded.encode()
			if err != nil {
				t.Fatalf("re-encode: %s", err)
			}
			if string(reencoded) != string(data) {
				t.Errorf("encode(decode(bytes)) mismatch: %v != %v", reencoded, data)
			}
		})
	}
}

func TestVoidOutOfBand(t *testing.T) {
	for _, tag := range []Tag{TagUnsupported, TagUnknown, TagNoValue} {
		v, err := decodeValue(tag, nil)
		if err != nil {
			t.Fatalf("decodeValue(%s): %s", tag, err)
		}
		if _, ok := v.(Void); !ok {
			t.Errorf("decodeValue(%s) = %T, want Void", tag, v)
		}
	}
}

func TestIntegerLengthMismatch(t *testing.T) {
	_, err := decodeValue(TagInteger, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error decoding a 3-byte integer")
	}
	if _, ok := err.(*LengthMismatchError); !ok {
		t.Errorf("got %T, want *LengthMismatchError", err)
	}
}

func TestRangeLowerExceedsUpper(t *testing.T) {
	data, _ := Range{Lower: 10, Upper: 1}.encode()
	// encode doesn't validate; decode must reject lower > upper.
	_, err := decodeValue(TagRangeOfInteger, data)
	if err == nil {
		t.Fatal("expected an error decoding a range with lower > upper")
	}
}

func TestUnknownSyntaxTag(t *testing.T) {
	_, err := decodeValue(0x7f, []byte{1})
	if err == nil {
		t.Fatal("expected an error for an unknown syntax tag")
	}
	if _, ok := err.(*UnknownSyntaxTagError); !ok {
		t.Errorf("got %T, want *UnknownSyntaxTagError", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, loc)
	v := Time{now}

	data, err := v.encode()
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	if len(data) != 11 {
		t.Fatalf("dateTime encoding must be 11 bytes, got %d", len(data))
	}

	decoded, err := Time{}.decode(data)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}

	dt := decoded.(Time)
	if !dt.Equal(now) {
		t.Errorf("decoded time %v != original %v", dt.Time, now)
	}
}

func TestStringRejectsInvalidUTF8(t *testing.T) {
	_, err := String("").decode([]byte{0xff, 0xfe})
	if err == nil {
		t.Fatal("expected an error decoding invalid UTF-8")
	}
	if _, ok := err.(*InvalidUTF8Error); !ok {
		t.Errorf("got %T, want *InvalidUTF8Error", err)
	}
}
