// Package eval grades a single trace, or a suite of traces, against a
// budget policy document (spec.md §4.7). Grounded on
// agents/runtime/policy's caps/budget bookkeeping (CapsState,
// circuit-breaking on exhausted budgets), generalised from per-turn
// tool caps to whole-run cost/quality grading.
package eval

// Grade is a letter grade.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

var gradeOrder = map[Grade]int{GradeA: 0, GradeB: 1, GradeC: 2, GradeD: 3, GradeF: 4}

type (
	// GradeThresholds maps a usage percentage ceiling to the grade a
	// trace earns when its usage falls at or below it, evaluated in
	// ascending order. Example: {50: A, 75: B, 90: C, 100: D} grades
	// anything above 100% as F.
	GradeThresholds []ThresholdStep

	// ThresholdStep is one (max usage percent, grade) pair.
	ThresholdStep struct {
		MaxPercent float64 `json:"max_percent" yaml:"max_percent"`
		Grade      Grade   `json:"grade" yaml:"grade"`
	}

	// CostBudget bounds token/USD/latency usage.
	CostBudget struct {
		TokensMax       int             `json:"tokens_max" yaml:"tokens_max"`
		USDMax          float64         `json:"usd_max" yaml:"usd_max"`
		LatencyP95Ms    int64           `json:"latency_p95_ms" yaml:"latency_p95_ms"`
		GradeThresholds GradeThresholds `json:"grade_thresholds" yaml:"grade_thresholds"`
	}

	// QualityBudget bounds policy/tool-error counts and quality metrics.
	QualityBudget struct {
		PolicyViolationsMax int             `json:"policy_violations_max" yaml:"policy_violations_max"`
		ToolErrorsMax       int             `json:"tool_errors_max" yaml:"tool_errors_max"`
		MinQualityScore     float64         `json:"min_quality_score" yaml:"min_quality_score"`
		RequiredMetrics     []string        `json:"required_metrics,omitempty" yaml:"required_metrics,omitempty"`
		PreferredMetrics    []string        `json:"preferred_metrics,omitempty" yaml:"preferred_metrics,omitempty"`
		GradeThresholds     GradeThresholds `json:"grade_thresholds" yaml:"grade_thresholds"`
	}

	// BudgetConfig is the structured budget document (spec.md §6):
	// name, version, cost/quality sub-budgets, and per-scenario
	// overrides. Readable as JSON or YAML via config.LoadBudget.
	BudgetConfig struct {
		Name      string                       `json:"name" yaml:"name"`
		Version   string                       `json:"version" yaml:"version"`
		Cost      CostBudget                   `json:"cost" yaml:"cost"`
		Quality   QualityBudget                `json:"quality" yaml:"quality"`
		Scenarios map[string]ScenarioOverride `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
	}

	// ScenarioOverride partially overrides the default budget for a
	// named scenario; zero-valued fields fall back to the default.
	ScenarioOverride struct {
		Cost    *CostBudget    `json:"cost,omitempty" yaml:"cost,omitempty"`
		Quality *QualityBudget `json:"quality,omitempty" yaml:"quality,omitempty"`
	}
)

// Effective merges scenario's override (if present) over the default
// budget, field group at a time (spec.md §4.7 "scenario override merged
// over default").
func (b BudgetConfig) Effective(scenario string) (CostBudget, QualityBudget) {
	cost, quality := b.Cost, b.Quality
	if ov, ok := b.Scenarios[scenario]; ok {
		if ov.Cost != nil {
			cost = *ov.Cost
		}
		if ov.Quality != nil {
			quality = *ov.Quality
		}
	}
	return cost, quality
}

// grade maps a usage percentage through t in ascending MaxPercent order,
// defaulting to GradeF when usage exceeds every step. An empty t means
// this dimension has no grading schedule at all (e.g. a budget document
// with no quality section, spec.md §8 scenario 4) rather than a
// schedule every usage value exceeds, so it grades A unconditionally.
func (t GradeThresholds) grade(usagePercent float64) Grade {
	if len(t) == 0 {
		return GradeA
	}
	for _, step := range t {
		if usagePercent <= step.MaxPercent {
			return step.Grade
		}
	}
	return GradeF
}

func percent(used, max float64) float64 {
	if max <= 0 {
		if used > 0 {
			return 1000 // any usage against a zero budget is an automatic F
		}
		return 0
	}
	return used / max * 100
}
