package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"remix/internal/delta"
	"remix/internal/segment"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const baseURL = "https://remix.local/schema/"

//go:embed tree.schema.json
var treeSchemaSrc string

//go:embed deltas.schema.json
var deltasSchemaSrc string

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

// ValidateTree checks a raw segment tree document against the wire schema.
func ValidateTree(raw []byte) error {
	return validate("tree.schema.json", treeSchemaSrc, raw)
}

// ValidateDeltas checks a raw delta list document against the wire schema.
func ValidateDeltas(raw []byte) error {
	return validate("deltas.schema.json", deltasSchemaSrc, raw)
}

// DecodeTree validates raw and decodes it into a segment forest that also
// satisfies the tree invariants (unique, non-empty ids).
func DecodeTree(raw []byte) ([]segment.Segment, error) {
	if err := ValidateTree(raw); err != nil {
		return nil, err
	}
	tree, err := segment.UnmarshalTree(raw)
	if err != nil {
		return nil, err
	}
	if err := segment.Validate(tree); err != nil {
		return nil, fmt.Errorf("invalid segment tree: %w", err)
	}
	return tree, nil
}

// DecodeDeltas validates raw and decodes it into a delta list.
func DecodeDeltas(raw []byte) ([]delta.Delta, error) {
	if err := ValidateDeltas(raw); err != nil {
		return nil, err
	}
	return delta.Unmarshal(raw)
}

func validate(name, src string, raw []byte) error {
	schema, err := loadCompiledSchema(name, src)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", name, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to parse document for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func loadCompiledSchema(name, src string) (*jsonschema.Schema, error) {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if cached, ok := schemaCache[name]; ok {
		return cached, nil
	}

	url := baseURL + name
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, bytes.NewReader([]byte(src))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache[name] = compiled
	return compiled, nil
}
