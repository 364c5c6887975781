package wire

import (
	"bytes"
	"testing"
)

func sampleObject() Object {
	return Object{
		{Name: "order_id", Value: Str("a1b2c3")},
		{Name: "price", Value: Int(-150)},
		{Name: "quantity", Value: Int(1000)},
		{Name: "tags", Value: List{Elem: KindString, Items: []Value{Str("buy"), Str("urgent")}}},
		{Name: "meta", Value: Object{
			{Name: "contract_key", Value: Int(3600000)},
		}},
	}
}

func TestRoundTripBothVersions(t *testing.T) {
	for _, version := range []uint8{Version1, Version2} {
		encoded, err := Encode(sampleObject(), version)
		if err != nil {
			t.Fatalf("v%d encode: %v", version, err)
		}
		decoded, gotVersion, err := Decode(encoded)
		if err != nil {
			t.Fatalf("v%d decode: %v", version, err)
		}
		if gotVersion != version {
			t.Fatalf("v%d: decoded version = %d", version, gotVersion)
		}
		if !objectsEqual(decoded, sampleObject()) {
			t.Fatalf("v%d: round trip mismatch: got %#v", version, decoded)
		}
	}
}

func TestV2OnlyBytesType(t *testing.T) {
	obj := Object{{Name: "payload", Value: Raw([]byte{1, 2, 3, 4})}}

	if _, err := Encode(obj, Version1); err == nil {
		t.Fatal("expected error encoding bytes field under v1")
	}

	encoded, err := Encode(obj, Version2)
	if err != nil {
		t.Fatalf("v2 encode: %v", err)
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		t.Fatalf("v2 decode: %v", err)
	}
	got, ok := decoded.Get("payload")
	if !ok {
		t.Fatal("missing payload field")
	}
	if !bytes.Equal([]byte(got.(Raw)), []byte{1, 2, 3, 4}) {
		t.Fatalf("payload mismatch: %v", got)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	buf := []byte{0x09, 0x00, 0x00, 0x02}
	if _, _, err := Decode(buf); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	encoded, err := Encode(Object{{Name: "x", Value: Int(1)}}, Version1)
	if err != nil {
		t.Fatal(err)
	}
	truncated := encoded[:len(encoded)-1]
	if _, _, err := Decode(truncated); err == nil {
		t.Fatal("expected error for total-length mismatch")
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	encoded, err := Encode(Object{{Name: "x", Value: Int(1)}}, Version1)
	if err != nil {
		t.Fatal(err)
	}
	padded := append(append([]byte{}, encoded...), 0xFF)
	// Bump the declared length so it matches the padded buffer, but the
	// field count still claims only one field, so a byte is left over.
	padded[2] = 0
	padded[3] = byte(len(padded))
	if _, _, err := Decode(padded); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestEncodeRejectsBadFieldName(t *testing.T) {
	if _, err := Encode(Object{{Name: "", Value: Int(1)}}, Version1); err == nil {
		t.Fatal("expected error for empty field name")
	}
	longName := make([]byte, 256)
	for i := range longName {
		longName[i] = 'a'
	}
	if _, err := Encode(Object{{Name: string(longName), Value: Int(1)}}, Version1); err == nil {
		t.Fatal("expected error for oversized field name")
	}
}

func TestEncodeRejectsListTypeMismatch(t *testing.T) {
	obj := Object{{Name: "mixed", Value: List{Elem: KindInt, Items: []Value{Int(1), Str("oops")}}}}
	if _, err := Encode(obj, Version1); err == nil {
		t.Fatal("expected error for list element type mismatch")
	}
}

func TestV1EncodedDecodesWithSharedDecoder(t *testing.T) {
	// The decoder reads the version byte from the message itself, so a
	// v1-encoded message "decodes with the v2 decoder" in the sense
	// that the same Decode entry point handles both transparently.
	encoded, err := Encode(sampleObject(), Version1)
	if err != nil {
		t.Fatal(err)
	}
	decoded, version, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode v1 message: %v", err)
	}
	if version != Version1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if !objectsEqual(decoded, sampleObject()) {
		t.Fatalf("mismatch: %#v", decoded)
	}
}

func objectsEqual(a, b Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
		if !valuesEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Int:
		return av == b.(Int)
	case Str:
		return av == b.(Str)
	case Raw:
		return bytes.Equal(av, b.(Raw))
	case List:
		bv := b.(List)
		if av.Elem != bv.Elem || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !valuesEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Object:
		return objectsEqual(av, b.(Object))
	default:
		return false
	}
}
