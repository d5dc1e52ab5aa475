package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/huap-project/huap-core/eval"
)

// LoadBudget decodes a budget config document (spec.md §6: name,
// version, cost, quality, scenarios) from path, JSON or YAML by
// extension. If schemaPath is non-empty, the decoded document is also
// validated against the JSON Schema at that path before being returned,
// so a malformed budget file fails fast with a schema-anchored error
// instead of silently zero-valuing unrecognised fields.
func LoadBudget(path string, schemaPath string) (*eval.BudgetConfig, error) {
	var budget eval.BudgetConfig
	if err := decodeDocument(path, &budget); err != nil {
		return nil, err
	}

	if schemaPath != "" {
		if err := validateAgainstSchema(path, schemaPath); err != nil {
			return nil, fmt.Errorf("config: budget %s: %w", path, err)
		}
	}

	return &budget, nil
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// validateAgainstSchema re-decodes documentPath into a generic `any`
// value (JSON Schema validation, unlike struct decoding, needs the raw
// document shape rather than BudgetConfig's Go field names) and checks
// it against the compiled schema at schemaPath, caching the compiled
// schema by path.
func validateAgainstSchema(documentPath, schemaPath string) error {
	var doc any
	if err := decodeDocument(documentPath, &doc); err != nil {
		return err
	}
	doc = jsonify(doc)

	schema, err := compileSchema(schemaPath)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", schemaPath, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compileSchema(schemaPath string) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if cached, ok := schemaCache[schemaPath]; ok {
		return cached, nil
	}

	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, err
	}
	var schemaDoc any
	if err := json.Unmarshal(raw, &schemaDoc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaPath, schemaDoc); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(schemaPath)
	if err != nil {
		return nil, err
	}
	schemaCache[schemaPath] = compiled
	return compiled, nil
}

// jsonify round-trips v through encoding/json so that yaml.v3's
// map[string]interface{}/[]interface{} decoding (its native shape for
// untyped YAML) matches the map[string]any/[]any shape
// jsonschema/v6 expects, and so that YAML-only types (e.g. integer
// keys) don't reach the validator.
func jsonify(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
