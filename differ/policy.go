package differ

import (
	"fmt"

	"github.com/huap-project/huap-core/trace"
)

// Policy configures verdict classification and which Data fields are
// excluded from field-level comparison as ephemeral (spec.md §4.5: "a
// loadable policy can soften or tighten each dimension").
type Policy struct {
	// EphemeralKeys names Data fields to ignore during diffing, in
	// addition to trace.EphemeralKeys. Pass nil to use trace.EphemeralKeys
	// alone.
	EphemeralKeys map[string]struct{}

	// MaxCostIncreasePct fails the diff when candidate USD cost exceeds
	// baseline by more than this percentage. Zero disables the check.
	MaxCostIncreasePct float64

	// MinQualityScore fails the diff when any candidate quality_record
	// metric falls below this threshold. Zero disables the check.
	MinQualityScore float64

	// FailOnNewErrors fails the diff when the candidate has error
	// events the baseline lacks. Defaults to true.
	FailOnNewErrors *bool

	// FailOnNewPolicyViolations fails the diff when PolicyViolationsDelta
	// is positive. Defaults to true.
	FailOnNewPolicyViolations *bool

	// FailOnStateHashMismatch fails the diff when StateHashMismatch is
	// set true by the caller (spec.md: "replay state hash mismatch when
	// diffing a replay against its source"). Defaults to true.
	FailOnStateHashMismatch *bool

	// StateHashMismatch is set by callers comparing a replay against its
	// source trace; Compare does not compute this itself since it has no
	// replay-specific context.
	StateHashMismatch bool
}

func boolPtr(b bool) *bool { return &b }

func (p Policy) withDefaults() Policy {
	out := p
	if out.EphemeralKeys == nil {
		out.EphemeralKeys = trace.EphemeralKeys
	}
	if out.FailOnNewErrors == nil {
		out.FailOnNewErrors = boolPtr(true)
	}
	if out.FailOnNewPolicyViolations == nil {
		out.FailOnNewPolicyViolations = boolPtr(true)
	}
	if out.FailOnStateHashMismatch == nil {
		out.FailOnStateHashMismatch = boolPtr(true)
	}
	return out
}

// rank orders verdicts by severity so classify can only ever escalate.
func (v Verdict) rank() int {
	switch v {
	case VerdictFail:
		return 2
	case VerdictWarn:
		return 1
	default:
		return 0
	}
}

func (p Policy) classify(d *Diff, baselineUSD float64) (Verdict, []string) {
	var reasons []string
	verdict := VerdictInfo

	escalate := func(v Verdict, reason string) {
		reasons = append(reasons, reason)
		if v.rank() > verdict.rank() {
			verdict = v
		}
	}

	if *p.FailOnNewErrors {
		for _, ev := range d.Events {
			if ev.Name == trace.NameError && ev.Status == "added" {
				escalate(VerdictFail, "new error event in candidate")
				break
			}
		}
	}

	if *p.FailOnNewPolicyViolations && d.Quality.PolicyViolationsDelta > 0 {
		escalate(VerdictFail, fmt.Sprintf("policy violations increased by %d", d.Quality.PolicyViolationsDelta))
	}

	if p.MaxCostIncreasePct > 0 && baselineUSD > 0 {
		pct := d.Cost.USDDelta / baselineUSD * 100
		if pct > p.MaxCostIncreasePct {
			escalate(VerdictFail, fmt.Sprintf("cost increased %.1f%%, exceeding %.1f%% threshold", pct, p.MaxCostIncreasePct))
		}
	}

	if p.MinQualityScore > 0 {
		for metric, delta := range d.Quality.MetricDeltas {
			if delta < 0 {
				escalate(VerdictWarn, fmt.Sprintf("quality metric %q regressed by %.4f", metric, -delta))
			}
		}
	}

	if *p.FailOnStateHashMismatch && p.StateHashMismatch {
		escalate(VerdictFail, "replay state hash mismatch against source trace")
	}

	if len(d.Quality.NewlyErroredTools) > 0 {
		for _, tool := range d.Quality.NewlyErroredTools {
			escalate(VerdictFail, fmt.Sprintf("new error in tool %s", tool))
		}
	} else if d.Quality.ToolErrorsDelta > 0 {
		escalate(VerdictWarn, fmt.Sprintf("tool errors increased by %d", d.Quality.ToolErrorsDelta))
	}

	return verdict, reasons
}
