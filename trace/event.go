// Package trace defines the canonical HUAP trace event schema: the JSONL
// wire format, content hashing, redaction, and the span-nesting rules
// every run's events must satisfy. It has no dependency on the graph
// executor, the replayer, or any other subsystem — those packages build
// on trace, never the reverse.
package trace

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current trace schema version written into every
// event's "v" field.
const SchemaVersion = "0.1"

// Kind classifies an event into one of the nine coarse categories named
// in spec.md §3.
type Kind string

// The fixed set of event kinds.
const (
	KindLifecycle Kind = "lifecycle"
	KindNode      Kind = "node"
	KindTool      Kind = "tool"
	KindLLM       Kind = "llm"
	KindPolicy    Kind = "policy"
	KindMemory    Kind = "memory"
	KindCost      Kind = "cost"
	KindQuality   Kind = "quality"
	KindSystem    Kind = "system"
)

// Name enumerates the fixed event-name vocabulary from spec.md §6. Every
// event's Data payload shape is determined by its Name.
type Name string

// The fixed event name vocabulary.
const (
	NameRunStart       Name = "run_start"
	NameRunEnd         Name = "run_end"
	NameError          Name = "error"
	NameNodeEnter      Name = "node_enter"
	NameNodeExit       Name = "node_exit"
	NameToolCall       Name = "tool_call"
	NameToolResult     Name = "tool_result"
	NameLLMRequest     Name = "llm_request"
	NameLLMResponse    Name = "llm_response"
	NamePolicyCheck    Name = "policy_check"
	NameMemoryPut      Name = "memory_put"
	NameMemoryGet      Name = "memory_get"
	NameMemorySearch   Name = "memory_search"
	NameArtifactCreate Name = "artifact_created"
	NameCostRecord     Name = "cost_record"
	NameQualityRecord  Name = "quality_record"
	NameStdout         Name = "stdout"
	NameStderr         Name = "stderr"
)

type (
	// Event is the atomic unit of a trace: one JSONL line. Data carries
	// the name-specific payload as a raw JSON value so unknown fields
	// survive round-trips (spec.md §6: "implementations MUST preserve
	// unknown fields on read").
	Event struct {
		V             string          `json:"v"`
		Timestamp     time.Time       `json:"ts"`
		RunID         string          `json:"run_id"`
		SpanID        string          `json:"span_id"`
		ParentSpanID  string          `json:"parent_span_id,omitempty"`
		Kind          Kind            `json:"kind"`
		Name          Name            `json:"name"`
		Pod           string          `json:"pod,omitempty"`
		Engine        string          `json:"engine,omitempty"`
		UserID        string          `json:"user_id,omitempty"`
		SessionID     string          `json:"session_id,omitempty"`
		Data          json.RawMessage `json:"data"`
		unknownFields map[string]json.RawMessage
	}
)

// NewRunID generates a fresh run identifier: "run_" followed by 12 hex
// characters sourced from a google/uuid random value.
func NewRunID() string { return "run_" + randomHex(12) }

// NewSpanID generates a fresh span identifier: "sp_" followed by 12 hex
// characters.
func NewSpanID() string { return "sp_" + randomHex(12) }

// NewGateID generates a fresh gate identifier: "gate_" followed by 12
// hex characters.
func NewGateID() string { return "gate_" + randomHex(12) }

func randomHex(n int) string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:n]
}

// MarshalData encodes v into an Event's Data field, panicking only on
// truly unmarshalable Go values (callers pass plain structs/maps).
func MarshalData(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Data payloads are always caller-constructed plain structs/maps;
		// a marshal failure here indicates a programming error, not a
		// runtime condition callers can recover from.
		panic("trace: marshal data: " + err.Error())
	}
	return b
}

// UnmarshalData decodes an event's Data field into v.
func (e *Event) UnmarshalData(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
