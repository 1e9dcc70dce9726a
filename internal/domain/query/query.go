// Package query holds the substring predicate applied to source records.
package query

import (
	"strings"

	"github.com/kailas-cloud/shopassist/internal/domain/record"
)

// Fields matched by a Query, in evaluation order.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
)

// Query is a case-insensitive substring match over a record's title and description.
// The zero Query matches every record.
type Query struct {
	needle string
}

// New creates a Query from the raw user message.
func New(userMessage string) Query {
	return Query{needle: strings.ToLower(userMessage)}
}

// IsEmpty reports whether the query matches everything.
func (q Query) IsEmpty() bool { return q.needle == "" }

// Matches reports whether r's title or description contains the query text.
// A field that is absent, null or not text never matches.
func (q Query) Matches(r record.Record) bool {
	if q.IsEmpty() {
		return true
	}
	return q.fieldContains(r, FieldTitle) || q.fieldContains(r, FieldDescription)
}

func (q Query) fieldContains(r record.Record, name string) bool {
	s, ok := r.Text(name)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), q.needle)
}

// Filter returns the records matching q, preserving order.
// An empty query returns records unchanged.
func (q Query) Filter(records []record.Record) []record.Record {
	if q.IsEmpty() {
		return records
	}
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
