package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is an absent or null value.
	KindNull Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt32 is a 32-bit integer, safe as a JSON number.
	KindInt32
	// KindInt64 is a 64-bit integer, not safe as a JSON number.
	KindInt64
	// KindFloat is a 32 or 64-bit floating point number.
	KindFloat
	// KindText is a UTF-8 string.
	KindText
	// KindList is an ordered sequence of values.
	KindList
	// KindObject is an ordered set of named values.
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt32:  "int32",
	KindInt64:  "int64",
	KindFloat:  "float",
	KindText:   "text",
	KindList:   "list",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged union over the value shapes a columnar row can hold.
// The zero Value is null.
type Value struct {
	kind   Kind
	num    int64
	float  float64
	text   string
	list   []Value
	fields []Field
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Int32 returns a 32-bit integer value.
func Int32(n int32) Value { return Value{kind: KindInt32, num: int64(n)} }

// Int64 returns a 64-bit integer value.
func Int64(n int64) Value { return Value{kind: KindInt64, num: n} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, float: f} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// List returns a list value. The slice is not copied.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Object returns an object value with fields in the given order. The slice is not copied.
func Object(fields ...Field) Value {
	if fields == nil {
		fields = []Field{}
	}
	return Value{kind: KindObject, fields: fields}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.num != 0 }

// AsInt returns the integer payload of an Int32 or Int64 value.
func (v Value) AsInt() int64 { return v.num }

// AsFloat returns the floating point payload.
func (v Value) AsFloat() float64 { return v.float }

// AsText returns the string payload and whether v is text.
func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Items returns the elements of a list value.
func (v Value) Items() []Value { return v.list }

// Fields returns the fields of an object value.
func (v Value) Fields() []Field { return v.fields }

// Get returns the named field of an object value.
func (v Value) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes v as plain JSON. Int64 values are written as JSON numbers;
// run Sanitize first when the consumer cannot hold 64-bit integers.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil)
}

func (v Value) appendJSON(buf []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.AsBool()), nil
	case KindInt32, KindInt64:
		return strconv.AppendInt(buf, v.num, 10), nil
	case KindFloat:
		// JSON has no NaN or Inf; they become null like JSON.stringify does.
		if math.IsNaN(v.float) || math.IsInf(v.float, 0) {
			return append(buf, "null"...), nil
		}
		return strconv.AppendFloat(buf, v.float, 'g', -1, 64), nil
	case KindText:
		b, err := json.Marshal(v.text)
		if err != nil {
			return nil, fmt.Errorf("marshal text: %w", err)
		}
		return append(buf, b...), nil
	case KindList:
		buf = append(buf, '[')
		for i, item := range v.list {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = item.appendJSON(buf); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		return appendFields(buf, v.fields)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %s", v.kind)
	}
}

func appendFields(buf []byte, fields []Field) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal field name: %w", err)
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		if buf, err = f.Value.appendJSON(buf); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return append(buf, '}'), nil
}
