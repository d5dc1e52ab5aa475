package differ

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToJSON renders d in its canonical structured form (spec.md §4.5
// "canonical structured form for JSON emission").
func (d *Diff) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ToMarkdown renders a human-readable report: summary metrics,
// regressions in bullet form, and a table of the worst diffs (spec.md
// §4.5).
func (d *Diff) ToMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Trace Diff: %s\n\n", strings.ToUpper(string(d.Verdict)))
	fmt.Fprintf(&b, "Baseline run: `%s`  \nCandidate run: `%s`\n\n", d.BaselineRunID, d.CandidateRunID)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Token delta: %+d (prompt %+d / completion %+d)\n", d.Cost.TotalTokensDelta, d.Cost.PromptTokensDelta, d.Cost.CompletionTokensDelta)
	fmt.Fprintf(&b, "- USD delta: %+.4f\n", d.Cost.USDDelta)
	fmt.Fprintf(&b, "- Latency delta: %+dms\n", d.Cost.LatencyMsDelta)
	fmt.Fprintf(&b, "- Policy violations delta: %+d\n", d.Quality.PolicyViolationsDelta)
	fmt.Fprintf(&b, "- Tool errors delta: %+d\n", d.Quality.ToolErrorsDelta)

	if len(d.Reasons) > 0 {
		b.WriteString("\n## Regressions\n\n")
		for _, r := range d.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	changed := make([]EventDiff, 0)
	for _, ev := range d.Events {
		if ev.Status != "unchanged" {
			changed = append(changed, ev)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return len(changed[i].Changes) > len(changed[j].Changes) })

	if len(changed) > 0 {
		b.WriteString("\n## Worst diffs\n\n")
		b.WriteString("| Name | Ordinal | Status | Changed fields |\n")
		b.WriteString("|---|---|---|---|\n")
		limit := len(changed)
		if limit > 20 {
			limit = 20
		}
		for _, ev := range changed[:limit] {
			fields := make([]string, len(ev.Changes))
			for i, c := range ev.Changes {
				fields[i] = c.Field
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", ev.Name, ev.Ordinal, ev.Status, strings.Join(fields, ", "))
		}
	}

	return b.String()
}
