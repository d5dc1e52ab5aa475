package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huap-project/huap-core/trace"
)

type (
	// Report aggregates per-trace Results from a directory walk (spec.md
	// §4.7 suite flow).
	Report struct {
		Results       []*Result      `json:"results"`
		PassRate      float64        `json:"pass_rate"`
		GradeHistogram map[Grade]int `json:"grade_histogram"`
	}
)

// scenarioFromFilename infers a scenario name from a trace file's base
// name when the caller has no explicit mapping (spec.md §4.7: "infer a
// scenario name from filename if unmapped").
func scenarioFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, ".trace")
	if idx := strings.Index(base, "_"); idx > 0 {
		return base[:idx]
	}
	return base
}

// EvaluateSuite evaluates every *.trace.jsonl file in dir against
// budget, inferring each trace's scenario via scenarioFor (or
// scenarioFromFilename when scenarioFor is nil), and aggregates into a
// Report.
func EvaluateSuite(dir string, budget BudgetConfig, scenarioFor func(path string) string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("eval: evaluate suite: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".trace.jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	report := &Report{GradeHistogram: make(map[Grade]int)}
	passed := 0
	for _, path := range paths {
		events, err := trace.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("eval: evaluate suite: %s: %w", path, err)
		}
		run := trace.BuildRun(events)

		scenario := ""
		if scenarioFor != nil {
			scenario = scenarioFor(path)
		} else {
			scenario = scenarioFromFilename(path)
		}

		result := Evaluate(run, budget, scenario)
		report.Results = append(report.Results, result)
		report.GradeHistogram[result.Overall]++
		if result.Passed {
			passed++
		}
	}

	if len(report.Results) > 0 {
		report.PassRate = float64(passed) / float64(len(report.Results))
	}
	return report, nil
}

// ToJSON renders the report in canonical structured form.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToMarkdown renders a human-readable suite summary.
func (r *Report) ToMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation Suite\n\n")
	fmt.Fprintf(&b, "Pass rate: %.1f%% (%d traces)\n\n", r.PassRate*100, len(r.Results))

	b.WriteString("## Grade histogram\n\n")
	for _, g := range []Grade{GradeA, GradeB, GradeC, GradeD, GradeF} {
		fmt.Fprintf(&b, "- %s: %d\n", g, r.GradeHistogram[g])
	}

	b.WriteString("\n## Results\n\n")
	b.WriteString("| Run | Scenario | Cost | Quality | Overall | Passed |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %v |\n", res.RunID, res.Scenario, res.CostGrade, res.QualityGrade, res.Overall, res.Passed)
	}
	return b.String()
}
