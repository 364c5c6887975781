package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	Version1 uint8 = 1
	Version2 uint8 = 2

	maxV1Length = 0xFFFF       // 65535, covers both the message cap and string/list length fields
	maxV2Length = 0xFFFFFFFF   // 2^32 - 1
)

// ContentType is the HTTP content type carrying framed bodies.
const ContentType = "application/x-galacticbuf"

// Encode serializes obj as a complete framed message under the given
// wire version. obj is always the top-level object; nested objects
// and lists are encoded recursively.
func Encode(obj Object, version uint8) ([]byte, error) {
	if version != Version1 && version != Version2 {
		return nil, fmt.Errorf("wire: unknown version %d", version)
	}
	if len(obj) > 255 {
		return nil, fmt.Errorf("wire: too many top-level fields (%d > 255)", len(obj))
	}

	lenSize := lengthFieldSize(version)
	cap := capFor(version)

	body := make([]byte, 0, 64)
	for _, f := range obj {
		var err error
		body, err = encodeField(body, f, version, cap)
		if err != nil {
			return nil, err
		}
	}

	headerSize := 1 + 1 + lenSize
	total := headerSize + len(body)
	if uint64(total) > cap {
		return nil, fmt.Errorf("wire: encoded message length %d exceeds v%d cap %d", total, version, cap)
	}

	out := make([]byte, 0, total)
	out = append(out, version, byte(len(obj)))
	out = appendLength(out, uint64(total), lenSize)
	out = append(out, body...)
	return out, nil
}

func encodeField(buf []byte, f Field, version uint8, cap uint64) ([]byte, error) {
	nameBytes := []byte(f.Name)
	if len(nameBytes) == 0 || len(nameBytes) > 255 {
		return nil, fmt.Errorf("wire: field name length %d out of range [1,255]", len(nameBytes))
	}
	buf = append(buf, byte(len(nameBytes)))
	buf = append(buf, nameBytes...)
	buf = append(buf, byte(f.Value.Kind()))
	return encodeValue(buf, f.Value, version, cap)
}

func encodeValue(buf []byte, v Value, version uint8, cap uint64) ([]byte, error) {
	switch val := v.(type) {
	case Int:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(int64(val)))
		return append(buf, tmp[:]...), nil

	case Str:
		b := []byte(val)
		lenSize := lengthFieldSize(version)
		if uint64(len(b)) > cap {
			return nil, fmt.Errorf("wire: string value length %d exceeds v%d cap", len(b), version)
		}
		buf = appendLength(buf, uint64(len(b)), lenSize)
		return append(buf, b...), nil

	case Raw:
		if version == Version1 {
			return nil, fmt.Errorf("wire: bytes type (0x05) is v2-only")
		}
		buf = appendLength(buf, uint64(len(val)), 4)
		return append(buf, val...), nil

	case List:
		buf = append(buf, byte(val.Elem))
		lenSize := lengthFieldSize(version)
		if uint64(len(val.Items)) > cap {
			return nil, fmt.Errorf("wire: list element count %d exceeds v%d cap", len(val.Items), version)
		}
		buf = appendLength(buf, uint64(len(val.Items)), lenSize)
		for _, item := range val.Items {
			if item.Kind() != val.Elem {
				return nil, fmt.Errorf("wire: list element type mismatch: declared %s, got %s", val.Elem, item.Kind())
			}
			var err error
			buf, err = encodeValue(buf, item, version, cap)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	case Object:
		if len(val) > 255 {
			return nil, fmt.Errorf("wire: too many object fields (%d > 255)", len(val))
		}
		buf = append(buf, byte(len(val)))
		for _, f := range val {
			var err error
			buf, err = encodeField(buf, f, version, cap)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("wire: unsupported value type %T", v)
	}
}

// Decode parses a complete framed message, returning the top-level
// object and the wire version it was encoded with.
func Decode(buf []byte) (Object, uint8, error) {
	if len(buf) < 2 {
		return nil, 0, fmt.Errorf("wire: buffer too short for header")
	}
	version := buf[0]
	if version != Version1 && version != Version2 {
		return nil, 0, fmt.Errorf("wire: unknown version %d", version)
	}
	fieldCount := int(buf[1])
	lenSize := lengthFieldSize(version)

	if len(buf) < 2+lenSize {
		return nil, 0, fmt.Errorf("wire: buffer too short for length field")
	}
	total := readLength(buf[2:2+lenSize], lenSize)
	if total != uint64(len(buf)) {
		return nil, 0, fmt.Errorf("wire: declared total length %d does not match buffer length %d", total, len(buf))
	}

	pos := 2 + lenSize
	fields := make(Object, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		f, newPos, err := decodeField(buf, pos, version)
		if err != nil {
			return nil, 0, err
		}
		pos = newPos
		fields = append(fields, f)
	}

	if pos != len(buf) {
		return nil, 0, fmt.Errorf("wire: %d trailing bytes after declared message end", len(buf)-pos)
	}

	return fields, version, nil
}

func decodeField(buf []byte, pos int, version uint8) (Field, int, error) {
	if pos+1 > len(buf) {
		return Field{}, 0, fmt.Errorf("wire: truncated field name length")
	}
	nameLen := int(buf[pos])
	pos++
	if pos+nameLen > len(buf) {
		return Field{}, 0, fmt.Errorf("wire: field name would read past buffer")
	}
	name := string(buf[pos : pos+nameLen])
	pos += nameLen

	if pos+1 > len(buf) {
		return Field{}, 0, fmt.Errorf("wire: truncated type code for field %q", name)
	}
	kind := Kind(buf[pos])
	pos++

	v, newPos, err := decodeValue(buf, pos, kind, version)
	if err != nil {
		return Field{}, 0, fmt.Errorf("wire: field %q: %w", name, err)
	}
	return Field{Name: name, Value: v}, newPos, nil
}

func decodeValue(buf []byte, pos int, kind Kind, version uint8) (Value, int, error) {
	switch kind {
	case KindInt:
		if pos+8 > len(buf) {
			return nil, 0, fmt.Errorf("wire: int value would read past buffer")
		}
		return Int(int64(binary.BigEndian.Uint64(buf[pos : pos+8]))), pos + 8, nil

	case KindString:
		lenSize := lengthFieldSize(version)
		if pos+lenSize > len(buf) {
			return nil, 0, fmt.Errorf("wire: string length would read past buffer")
		}
		slen := int(readLength(buf[pos:pos+lenSize], lenSize))
		pos += lenSize
		if pos+slen > len(buf) {
			return nil, 0, fmt.Errorf("wire: string value would read past buffer")
		}
		return Str(buf[pos : pos+slen]), pos + slen, nil

	case KindBytes:
		if version == Version1 {
			return nil, 0, fmt.Errorf("wire: bytes type (0x05) is not valid in v1")
		}
		if pos+4 > len(buf) {
			return nil, 0, fmt.Errorf("wire: bytes length would read past buffer")
		}
		blen := int(readLength(buf[pos:pos+4], 4))
		pos += 4
		if pos+blen > len(buf) {
			return nil, 0, fmt.Errorf("wire: bytes value would read past buffer")
		}
		out := make([]byte, blen)
		copy(out, buf[pos:pos+blen])
		return Raw(out), pos + blen, nil

	case KindList:
		if pos+1 > len(buf) {
			return nil, 0, fmt.Errorf("wire: truncated list element type")
		}
		elemKind := Kind(buf[pos])
		pos++
		lenSize := lengthFieldSize(version)
		if pos+lenSize > len(buf) {
			return nil, 0, fmt.Errorf("wire: list count would read past buffer")
		}
		count := int(readLength(buf[pos:pos+lenSize], lenSize))
		pos += lenSize
		items := make([]Value, 0, count)
		for i := 0; i < count; i++ {
			v, newPos, err := decodeValue(buf, pos, elemKind, version)
			if err != nil {
				return nil, 0, err
			}
			pos = newPos
			items = append(items, v)
		}
		return List{Elem: elemKind, Items: items}, pos, nil

	case KindObject:
		if pos+1 > len(buf) {
			return nil, 0, fmt.Errorf("wire: truncated object field count")
		}
		fcount := int(buf[pos])
		pos++
		fields := make(Object, 0, fcount)
		for i := 0; i < fcount; i++ {
			f, newPos, err := decodeField(buf, pos, version)
			if err != nil {
				return nil, 0, err
			}
			pos = newPos
			fields = append(fields, f)
		}
		return fields, pos, nil

	default:
		return nil, 0, fmt.Errorf("wire: unknown type code 0x%02x", byte(kind))
	}
}

func lengthFieldSize(version uint8) int {
	if version == Version1 {
		return 2
	}
	return 4
}

func capFor(version uint8) uint64 {
	if version == Version1 {
		return maxV1Length
	}
	return maxV2Length
}

func appendLength(buf []byte, v uint64, size int) []byte {
	switch size {
	case 2:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(v))
		return append(buf, tmp[:]...)
	case 4:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v))
		return append(buf, tmp[:]...)
	default:
		panic("wire: unsupported length field size")
	}
}

func readLength(buf []byte, size int) uint64 {
	switch size {
	case 2:
		return uint64(binary.BigEndian.Uint16(buf))
	case 4:
		return uint64(binary.BigEndian.Uint32(buf))
	default:
		panic("wire: unsupported length field size")
	}
}
