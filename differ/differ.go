// Package differ provides semantic comparison of a baseline trace
// against a candidate (spec.md §4.5): per-event alignment, field-level
// diffs, aggregate cost/quality deltas, and a policy-driven verdict.
//
// Grounded on agents/runtime/policy/policy.go's Input/Decision shape,
// generalised from "tool allowlist decision" to "diff verdict."
package differ

import (
	"encoding/json"
	"sort"

	"github.com/huap-project/huap-core/trace"
)

type (
	// FieldChange is one changed field within an aligned event pair.
	FieldChange struct {
		Field     string `json:"field"`
		Baseline  any    `json:"baseline"`
		Candidate any    `json:"candidate"`
	}

	// EventDiff is the comparison result for one aligned (name, ordinal)
	// slot, or an added/removed entry when counts for that name mismatch.
	EventDiff struct {
		Name    trace.Name    `json:"name"`
		Ordinal int           `json:"ordinal"`
		Status  string        `json:"status"` // "unchanged", "changed", "added", "removed"
		Changes []FieldChange `json:"changes,omitempty"`
	}

	// CostDelta is the aggregate cost comparison (spec.md §4.5).
	CostDelta struct {
		PromptTokensDelta     int     `json:"prompt_tokens_delta"`
		CompletionTokensDelta int     `json:"completion_tokens_delta"`
		TotalTokensDelta      int     `json:"total_tokens_delta"`
		USDDelta              float64 `json:"usd_delta"`
		LatencyMsDelta        int64   `json:"latency_ms_delta"`
	}

	// QualityDelta is the aggregate quality comparison (spec.md §4.5).
	QualityDelta struct {
		MetricDeltas          map[string]float64 `json:"metric_deltas"`
		PolicyViolationsDelta int                `json:"policy_violations_delta"`
		ToolErrorsDelta       int                `json:"tool_errors_delta"`

		// NewlyErroredTools names each tool whose (name, ordinal)-aligned
		// tool_result drifted from a non-error baseline status to an
		// error candidate status (spec.md §8 scenario 3).
		NewlyErroredTools []string `json:"newly_errored_tools,omitempty"`
	}

	// Verdict classifies a Diff's overall severity.
	Verdict string

	// Diff is the full structured comparison of two traces.
	Diff struct {
		BaselineRunID  string       `json:"baseline_run_id"`
		CandidateRunID string       `json:"candidate_run_id"`
		Events         []EventDiff  `json:"events"`
		Cost           CostDelta    `json:"cost_delta"`
		Quality        QualityDelta `json:"quality_delta"`
		Verdict        Verdict      `json:"verdict"`
		Reasons        []string     `json:"reasons,omitempty"`
	}
)

const (
	VerdictInfo Verdict = "info"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)

// Compare aligns and diffs baseline against candidate and classifies the
// result using policy (the zero Policy applies spec.md's documented
// defaults).
func Compare(baseline, candidate *trace.Run, policy Policy) *Diff {
	policy = policy.withDefaults()

	events := alignAndDiff(baseline.Events, candidate.Events, policy.EphemeralKeys)
	cost := computeCostDelta(baseline.Cost, candidate.Cost)
	quality := computeQualityDelta(baseline, candidate)

	d := &Diff{
		BaselineRunID:  baseline.RunID,
		CandidateRunID: candidate.RunID,
		Events:         events,
		Cost:           cost,
		Quality:        quality,
	}
	d.Verdict, d.Reasons = policy.classify(d, baseline.Cost.EstimatedUSD)
	return d
}

// alignAndDiff pairs events by (name, ordinal-within-name) — the Nth
// event of a given Name in baseline aligns with the Nth of the same Name
// in candidate, ignoring span/timestamp for alignment (spec.md §4.5).
func alignAndDiff(baseline, candidate []*trace.Event, ephemeral map[string]struct{}) []EventDiff {
	baseByName := groupByName(baseline)
	candByName := groupByName(candidate)

	names := make(map[trace.Name]bool)
	for n := range baseByName {
		names[n] = true
	}
	for n := range candByName {
		names[n] = true
	}

	var out []EventDiff
	for name := range names {
		bEvents := baseByName[name]
		cEvents := candByName[name]
		maxLen := len(bEvents)
		if len(cEvents) > maxLen {
			maxLen = len(cEvents)
		}
		for i := 0; i < maxLen; i++ {
			switch {
			case i < len(bEvents) && i < len(cEvents):
				changes := diffFields(bEvents[i], cEvents[i], ephemeral)
				status := "unchanged"
				if len(changes) > 0 {
					status = "changed"
				}
				out = append(out, EventDiff{Name: name, Ordinal: i, Status: status, Changes: changes})
			case i < len(bEvents):
				out = append(out, EventDiff{Name: name, Ordinal: i, Status: "removed"})
			default:
				out = append(out, EventDiff{Name: name, Ordinal: i, Status: "added"})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

func groupByName(events []*trace.Event) map[trace.Name][]*trace.Event {
	out := make(map[trace.Name][]*trace.Event)
	for _, e := range events {
		out[e.Name] = append(out[e.Name], e)
	}
	return out
}

// diffFields compares the decoded Data maps of two events field by
// field, skipping keys in ephemeral (spec.md §4.5: timestamps,
// durations, random ids, non-deterministic state hashes).
func diffFields(base, cand *trace.Event, ephemeral map[string]struct{}) []FieldChange {
	bm := decodeMap(base.Data)
	cm := decodeMap(cand.Data)

	keys := make(map[string]bool)
	for k := range bm {
		keys[k] = true
	}
	for k := range cm {
		keys[k] = true
	}

	var changes []FieldChange
	fields := make([]string, 0, len(keys))
	for k := range keys {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		if _, skip := ephemeral[k]; skip {
			continue
		}
		bv, cv := bm[k], cm[k]
		if !jsonEqual(bv, cv) {
			changes = append(changes, FieldChange{Field: k, Baseline: bv, Candidate: cv})
		}
	}
	return changes
}

func decodeMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func jsonEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

func computeCostDelta(base, cand trace.CostSummary) CostDelta {
	return CostDelta{
		PromptTokensDelta:     cand.PromptTokens - base.PromptTokens,
		CompletionTokensDelta: cand.CompletionTokens - base.CompletionTokens,
		TotalTokensDelta:      cand.TotalTokens - base.TotalTokens,
		USDDelta:              cand.EstimatedUSD - base.EstimatedUSD,
		LatencyMsDelta:        cand.TotalLatencyMs - base.TotalLatencyMs,
	}
}

func computeQualityDelta(baseline, candidate *trace.Run) QualityDelta {
	baseMetrics := collectQualityMetrics(baseline.Events)
	candMetrics := collectQualityMetrics(candidate.Events)

	deltas := make(map[string]float64)
	for metric, bv := range baseMetrics {
		deltas[metric] = candMetrics[metric] - bv
	}
	for metric, cv := range candMetrics {
		if _, ok := baseMetrics[metric]; !ok {
			deltas[metric] = cv
		}
	}

	baseViolations := countPolicyViolations(baseline.Events)
	candViolations := countPolicyViolations(candidate.Events)

	baseToolErrors := countToolErrors(baseline.Events)
	candToolErrors := countToolErrors(candidate.Events)

	return QualityDelta{
		MetricDeltas:          deltas,
		PolicyViolationsDelta: candViolations - baseViolations,
		ToolErrorsDelta:       candToolErrors - baseToolErrors,
		NewlyErroredTools:     newlyErroredTools(baseline.Events, candidate.Events),
	}
}

// newlyErroredTools names every tool whose Nth tool_result (aligned the
// same way alignAndDiff aligns events: by ordinal within the tool name)
// had a non-error status in baseline and an error status in candidate.
func newlyErroredTools(baseline, candidate []*trace.Event) []string {
	baseByTool := groupToolResultsByTool(baseline)
	candByTool := groupToolResultsByTool(candidate)

	var names []string
	for tool, bResults := range baseByTool {
		cResults := candByTool[tool]
		maxLen := len(bResults)
		if len(cResults) > maxLen {
			maxLen = len(cResults)
		}
		for i := 0; i < maxLen; i++ {
			if i >= len(bResults) || i >= len(cResults) {
				continue
			}
			if bResults[i].Status == "success" && cResults[i].Status != "success" {
				names = append(names, tool)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

func groupToolResultsByTool(events []*trace.Event) map[string][]trace.ToolResultData {
	out := make(map[string][]trace.ToolResultData)
	for _, e := range events {
		if e.Name != trace.NameToolResult {
			continue
		}
		var d trace.ToolResultData
		if err := e.UnmarshalData(&d); err != nil {
			continue
		}
		out[d.Tool] = append(out[d.Tool], d)
	}
	return out
}

func collectQualityMetrics(events []*trace.Event) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range events {
		if e.Name != trace.NameQualityRecord {
			continue
		}
		var d trace.QualityRecordData
		if err := e.UnmarshalData(&d); err == nil {
			out[d.Metric] = d.Value
		}
	}
	return out
}

func countPolicyViolations(events []*trace.Event) int {
	n := 0
	for _, e := range events {
		if e.Name != trace.NamePolicyCheck {
			continue
		}
		var d trace.PolicyCheckData
		if err := e.UnmarshalData(&d); err == nil && d.Decision != "allow" {
			n++
		}
	}
	return n
}

func countToolErrors(events []*trace.Event) int {
	n := 0
	for _, e := range events {
		if e.Name != trace.NameToolResult {
			continue
		}
		var d trace.ToolResultData
		if err := e.UnmarshalData(&d); err == nil && d.Status != "success" {
			n++
		}
	}
	return n
}
