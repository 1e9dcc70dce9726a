package record

import "strconv"

// Sanitize returns v with every Int64 rendered as decimal text, recursing into
// lists and objects. Other values pass through unchanged. v is not modified.
func Sanitize(v Value) Value {
	switch v.kind {
	case KindInt64:
		return Text(strconv.FormatInt(v.num, 10))
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = Sanitize(item)
		}
		return List(items...)
	case KindObject:
		return Object(sanitizeFields(v.fields)...)
	default:
		return v
	}
}

// SanitizeRecord applies Sanitize to every field of r.
func SanitizeRecord(r Record) Record {
	return New(sanitizeFields(r.fields)...)
}

// SanitizeAll applies SanitizeRecord to every record, preserving order.
func SanitizeAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = SanitizeRecord(r)
	}
	return out
}

func sanitizeFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Value: Sanitize(f.Value)}
	}
	return out
}
