// Package codec implements the engine-internal half of the JSON source-row
// adapter (spec.md §6 "Source row input" / "Sink row output"); the wire
// transport itself (network/disk readers and writers) is out of scope per
// spec.md §1 and is left to the host's foreign reader/writer.
package codec

import (
	"encoding/json"

	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/springqlerr"
)

// DecodeSourceRow parses a JSON object into a SchemalessRow. A nested object
// or array value fails with InvalidFormat — this engine only understands
// flat key/value source rows.
func DecodeSourceRow(data []byte) (row.SchemalessRow, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, springqlerr.Wrap(springqlerr.InvalidFormat, err, "source row is not a JSON object")
	}
	out := make(row.SchemalessRow, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return nil, springqlerr.New(springqlerr.InvalidFormat, "nested value at key %q is not supported", k)
		}
		out[k] = v
	}
	return out, nil
}

// EncodeSinkRow serializes a Row back to its JSON key/value form for a
// foreign sink writer, omitting Null columns exactly as Row.ToSchemaless
// does for the in-process round trip.
func EncodeSinkRow(r *row.Row) ([]byte, error) {
	schemaless := r.ToSchemaless()
	data, err := json.Marshal(schemaless)
	if err != nil {
		return nil, springqlerr.Wrap(springqlerr.ForeignIo, err, "failed to encode sink row")
	}
	return data, nil
}
