// Package row implements the Row and SchemalessRow types (spec.md §3, §4.1):
// schema-bound tuples built from foreign schemaless rows, with one-shot
// column extraction for non-copyable values and bidirectional conversion
// failures surfaced as InvalidFormat/Unavailable/Sql per the error taxonomy.
package row

import "github.com/zzl221000/springql/value"

// ColumnDef is one column of a StreamShape.
type ColumnDef struct {
	Name     string
	Tag      value.Tag
	Nullable bool
}

// StreamShape is the named, ordered column layout of a source, sink, or
// intermediate stream (spec.md §3 "Stream Model"), plus an optional
// ROWTIME column designation.
type StreamShape struct {
	StreamName    string
	Columns       []ColumnDef
	RowtimeColumn string // "" when the stream has no declared event time
}

// IndexOf returns the position of name in Columns, or -1.
func (s *StreamShape) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasRowtime reports whether this shape declares an event-time column.
func (s *StreamShape) HasRowtime() bool { return s.RowtimeColumn != "" }
