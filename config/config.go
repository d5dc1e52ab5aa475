// Package config centralises the document loaders and environment
// variables spec.md §6 names as external interfaces: the graph
// definition format, the budget config format, the plugin registry
// file, and four behaviour-affecting env vars. Grounded on
// internal/config/schema.go and pkg/pluginsdk/validation.go
// (haasonsaas-nexus) for the decode-then-validate shape, narrowed from
// their struct-reflection schema generation to loading hand-authored
// JSON Schema documents shipped alongside each config kind.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeDocument reads path and unmarshals it into v, choosing JSON or
// YAML by file extension (".json" decodes as JSON; anything else,
// including ".yaml"/".yml" and no extension, decodes as YAML — a
// superset that also accepts plain JSON).
func decodeDocument(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("config: decode %s as json: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("config: decode %s as yaml: %w", path, err)
	}
	return nil
}

const (
	envTraceRedactLLM = "HUAP_TRACE_REDACT_LLM"
	envTraceRoot      = "HUAP_TRACE_ROOT"
	envBudgetsDir     = "HUAP_BUDGETS_DIR"
	envPluginRegistry = "HUAP_PLUGIN_REGISTRY"
)

// TraceRedactLLM reports whether LLM request/response payloads should
// be redacted before they are written to trace files (spec.md §6,
// default off).
func TraceRedactLLM() bool {
	v, ok := os.LookupEnv(envTraceRedactLLM)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// TraceRoot returns the configured trace root override, or "" if unset
// (callers fall back to their own default, e.g. the current directory).
func TraceRoot() string {
	return os.Getenv(envTraceRoot)
}

// BudgetsDir returns the configured budgets directory override, or ""
// if unset.
func BudgetsDir() string {
	return os.Getenv(envBudgetsDir)
}

// PluginRegistryPath returns the configured plugin registry file path,
// or "" if unset.
func PluginRegistryPath() string {
	return os.Getenv(envPluginRegistry)
}
