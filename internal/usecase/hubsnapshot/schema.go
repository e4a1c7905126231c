package hubsnapshot

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"nullclaw/internal/domain"
)

// entrySchemaSource is the structural contract each kind's DataJSON payload
// must satisfy to be counted as imported rather than skipped.
var entrySchemaSource = map[domain.DeltaKind][]byte{
	domain.DeltaKindMemory: []byte(`{
		"type": "object",
		"required": ["key"],
		"properties": {"key": {"type": "string"}}
	}`),
	domain.DeltaKindTask: []byte(`{
		"type": "object",
		"required": ["task_id"],
		"properties": {"task_id": {"type": "string"}}
	}`),
	domain.DeltaKindEvent: []byte(`{
		"type": "object",
		"required": ["event_id"],
		"properties": {"event_id": {"type": "string"}}
	}`),
}

var entrySchemas map[domain.DeltaKind]*jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	entrySchemas = make(map[domain.DeltaKind]*jsonschema.Schema, len(entrySchemaSource))
	for kind, src := range entrySchemaSource {
		schema, err := compiler.Compile(src)
		if err != nil {
			panic(fmt.Sprintf("hubsnapshot: invalid built-in schema for %s: %v", kind, err))
		}
		entrySchemas[kind] = schema
	}
}

// validEntryPayload reports whether e.DataJSON is syntactically valid JSON
// that also matches the structural schema for e.Kind.
func validEntryPayload(e domain.HubSnapshotEntry) bool {
	schema, ok := entrySchemas[e.Kind]
	if !ok {
		return false
	}

	var parsed any
	if err := json.Unmarshal([]byte(e.DataJSON), &parsed); err != nil {
		return false
	}
	return schema.Validate(parsed).IsValid()
}
