package eval

import (
	"fmt"

	"github.com/huap-project/huap-core/trace"
)

type (
	// Metrics is the set of values extracted from a trace before
	// grading (spec.md §4.7 single-trace flow).
	Metrics struct {
		PromptTokens     int
		CompletionTokens int
		TotalTokens      int
		USD              float64
		LatencyMs        int64
		PolicyViolations int
		ToolErrors       int
		QualityMetrics   map[string]float64
	}

	// Result is the grade for a single trace.
	Result struct {
		RunID        string   `json:"run_id"`
		Scenario     string   `json:"scenario"`
		Metrics      Metrics  `json:"-"`
		CostGrade    Grade    `json:"cost_grade"`
		QualityGrade Grade    `json:"quality_grade"`
		Overall      Grade    `json:"overall_grade"`
		Passed       bool     `json:"passed"`
		Reasons      []string `json:"reasons,omitempty"`
	}
)

// ErrBudgetExceeded / ErrQualityFail are the evaluator's hard-fail
// sentinels (spec.md §7).
var (
	ErrBudgetExceeded = fmt.Errorf("eval: budget exceeded")
	ErrQualityFail    = fmt.Errorf("eval: quality requirements not met")
)

func extractMetrics(run *trace.Run) Metrics {
	m := Metrics{
		PromptTokens:     run.Cost.PromptTokens,
		CompletionTokens: run.Cost.CompletionTokens,
		TotalTokens:      run.Cost.TotalTokens,
		USD:              run.Cost.EstimatedUSD,
		LatencyMs:        run.Cost.TotalLatencyMs,
		QualityMetrics:   make(map[string]float64),
	}
	for _, e := range run.Events {
		switch e.Name {
		case trace.NamePolicyCheck:
			var d trace.PolicyCheckData
			if err := e.UnmarshalData(&d); err == nil && d.Decision != "allow" {
				m.PolicyViolations++
			}
		case trace.NameToolResult:
			var d trace.ToolResultData
			if err := e.UnmarshalData(&d); err == nil && d.Status != "success" {
				m.ToolErrors++
			}
		case trace.NameQualityRecord:
			var d trace.QualityRecordData
			if err := e.UnmarshalData(&d); err == nil {
				m.QualityMetrics[d.Metric] = d.Value
			}
		}
	}
	return m
}

func gradeToInt(g Grade) int {
	return 4 - gradeOrder[g]
}

func intToGrade(n int) Grade {
	switch {
	case n >= 4:
		return GradeA
	case n == 3:
		return GradeB
	case n == 2:
		return GradeC
	case n == 1:
		return GradeD
	default:
		return GradeF
	}
}

func costGrade(m Metrics, b CostBudget) Grade {
	tokenPct := percent(float64(m.TotalTokens), float64(b.TokensMax))
	usdPct := percent(m.USD, b.USDMax)
	latencyPct := percent(float64(m.LatencyMs), float64(b.LatencyP95Ms))
	worst := tokenPct
	if usdPct > worst {
		worst = usdPct
	}
	if latencyPct > worst {
		worst = latencyPct
	}
	return b.GradeThresholds.grade(worst)
}

func qualityGrade(m Metrics, b QualityBudget) (Grade, []string) {
	var reasons []string

	if m.PolicyViolations > b.PolicyViolationsMax {
		reasons = append(reasons, fmt.Sprintf("policy violations %d exceed cap %d", m.PolicyViolations, b.PolicyViolationsMax))
		return GradeF, reasons
	}

	weighted := 0.0
	total := 0.0
	for _, metric := range b.RequiredMetrics {
		total += 2
		if v, ok := m.QualityMetrics[metric]; ok && v >= b.MinQualityScore {
			weighted += 2
		} else {
			reasons = append(reasons, fmt.Sprintf("required metric %q missing or below threshold", metric))
		}
	}
	for _, metric := range b.PreferredMetrics {
		total++
		if v, ok := m.QualityMetrics[metric]; ok && v >= b.MinQualityScore {
			weighted++
		}
	}

	// No required or preferred metrics configured means this dimension
	// imposes no requirement; treat it as perfectly satisfied rather
	// than maximally failed (spec.md §8 scenario 4: a quality-less
	// budget must not drag a clean run's quality grade down).
	score := 0.0
	if total > 0 {
		score = 100 * (1 - weighted/total)
	}

	toolErrPct := percent(float64(m.ToolErrors), float64(maxInt(b.ToolErrorsMax, 1)))
	if m.ToolErrors > b.ToolErrorsMax {
		reasons = append(reasons, fmt.Sprintf("tool errors %d exceed cap %d", m.ToolErrors, b.ToolErrorsMax))
	}
	if toolErrPct > score {
		score = toolErrPct
	}

	return b.GradeThresholds.grade(score), reasons
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Evaluate grades run against budget's effective configuration for
// scenario (spec.md §4.7). Combine weighting is fixed at 60% quality,
// 40% cost per spec.md.
func Evaluate(run *trace.Run, budget BudgetConfig, scenario string) *Result {
	cost, quality := budget.Effective(scenario)
	m := extractMetrics(run)

	cGrade := costGrade(m, cost)
	qGrade, reasons := qualityGrade(m, quality)

	overall := intToGrade(int(0.6*float64(gradeToInt(qGrade))+0.4*float64(gradeToInt(cGrade)) + 0.5))
	if qGrade == GradeF {
		overall = GradeF // quality hard-fail always drags the overall to F
	}

	passed := overall != GradeF && m.PolicyViolations <= quality.PolicyViolationsMax

	return &Result{
		RunID:        run.RunID,
		Scenario:     scenario,
		Metrics:      m,
		CostGrade:    cGrade,
		QualityGrade: qGrade,
		Overall:      overall,
		Passed:       passed,
		Reasons:      reasons,
	}
}
