// Package wire implements the self-describing binary framing format
// used on every request and response body (spec §4.1, content type
// application/x-galacticbuf). Two interoperable wire versions exist:
// v1 (2-byte lengths, 65535-byte message cap) and v2 (4-byte lengths,
// 2^32-1 cap, plus a raw-bytes type unavailable in v1).
package wire

import "fmt"

// Kind is the one-byte type code that precedes every field value.
type Kind byte

const (
	KindInt    Kind = 0x01
	KindString Kind = 0x02
	KindList   Kind = 0x03
	KindObject Kind = 0x04
	KindBytes  Kind = 0x05
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(k))
	}
}

// Value is any value expressible in the wire schema. The concrete
// types below are the only implementations; a type switch on Value
// is exhaustive.
type Value interface {
	Kind() Kind
}

// Int is a signed 64-bit integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }

// Str is a UTF-8 string value.
type Str string

func (Str) Kind() Kind { return KindString }

// Raw is a raw byte-string value. v2 only.
type Raw []byte

func (Raw) Kind() Kind { return KindBytes }

// List is a uniformly-typed sequence of values. Elem records the
// required Kind of every item (including when Items is empty, since
// the element-type byte must still be written).
type List struct {
	Elem  Kind
	Items []Value
}

func (List) Kind() Kind { return KindList }

// Field is one name/value pair inside an Object, in encounter order.
type Field struct {
	Name  string
	Value Value
}

// Object is an ordered set of named fields — the recursive container
// type, and also the shape of every top-level request/response body.
type Object []Field

func (Object) Kind() Kind { return KindObject }

// Get returns the first field with the given name.
func (o Object) Get(name string) (Value, bool) {
	for _, f := range o {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (o Object) Int(name string) (int64, bool) {
	v, ok := o.Get(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(Int)
	return int64(i), ok
}

func (o Object) Str(name string) (string, bool) {
	v, ok := o.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(Str)
	return string(s), ok
}

func (o Object) List(name string) (List, bool) {
	v, ok := o.Get(name)
	if !ok {
		return List{}, false
	}
	l, ok := v.(List)
	return l, ok
}

func (o Object) Object(name string) (Object, bool) {
	v, ok := o.Get(name)
	if !ok {
		return nil, false
	}
	obj, ok := v.(Object)
	return obj, ok
}

// Set appends or replaces a field, preserving first-occurrence order.
func (o *Object) Set(name string, v Value) {
	for i := range *o {
		if (*o)[i].Name == name {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, Field{Name: name, Value: v})
}
