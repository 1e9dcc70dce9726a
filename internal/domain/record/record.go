// Package record models schema-less rows read from a columnar source.
package record

// Field is a named value. Field order is significant.
type Field struct {
	Name  string
	Value Value
}

// Record is one row reconstructed from the source (immutable value object).
type Record struct {
	fields []Field
}

// New creates a Record with fields in the given order. The slice is not copied.
func New(fields ...Field) Record {
	return Record{fields: fields}
}

// Fields returns the record fields in source order.
func (r Record) Fields() []Field { return r.fields }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Get returns the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Text returns the named field when it holds text.
// Absent, null and non-text fields report false.
func (r Record) Text(name string) (string, bool) {
	v, ok := r.Get(name)
	if !ok {
		return "", false
	}
	return v.AsText()
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	return appendFields(nil, r.fields)
}
