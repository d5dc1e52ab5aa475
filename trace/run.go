package trace

import "fmt"

type (
	// Run is a reconstructed bundle over a sequence of events belonging
	// to a single run (spec.md §3 "TraceRun").
	Run struct {
		RunID    string
		Events   []*Event
		RunStart *Event
		RunEnd   *Event

		Cost   CostSummary
		Errors []*Event
	}

	// CostSummary aggregates token/USD/latency figures across a Run's
	// llm_response and cost_record events.
	CostSummary struct {
		PromptTokens     int
		CompletionTokens int
		TotalTokens      int
		EstimatedUSD     float64
		TotalLatencyMs   int64
		LLMCallCount     int
	}
)

// BuildRun reconstructs a Run from an ordered event slice (e.g. as
// returned by ReadAll/ReadFile). It does not itself validate invariants;
// call Validate for that.
func BuildRun(events []*Event) *Run {
	r := &Run{Events: events}
	if len(events) > 0 {
		r.RunID = events[0].RunID
	}
	for _, e := range events {
		switch e.Name {
		case NameRunStart:
			if r.RunStart == nil {
				r.RunStart = e
			}
		case NameRunEnd:
			r.RunEnd = e
		case NameError:
			r.Errors = append(r.Errors, e)
		case NameLLMResponse:
			var d LLMResponseData
			_ = e.UnmarshalData(&d)
			r.Cost.PromptTokens += d.Usage.PromptTokens
			r.Cost.CompletionTokens += d.Usage.CompletionTokens
			r.Cost.TotalTokens += d.Usage.TotalTokens
			r.Cost.TotalLatencyMs += d.DurationMs
			r.Cost.LLMCallCount++
		case NameCostRecord:
			var d CostRecordData
			_ = e.UnmarshalData(&d)
			r.Cost.EstimatedUSD += d.USD
		}
	}
	return r
}

// Validate checks the trace-level invariants from spec.md §8: exactly
// one run_start first, exactly one run_end last, a single run_id shared
// by every event, and every tool_call/llm_request paired with a result/
// response sharing its span_id.
func (r *Run) Validate() error {
	if len(r.Events) == 0 {
		return fmt.Errorf("trace: empty run")
	}
	if r.Events[0].Name != NameRunStart {
		return fmt.Errorf("trace: first event is %q, want run_start", r.Events[0].Name)
	}
	runStarts := 0
	for _, e := range r.Events {
		if e.Name == NameRunStart {
			runStarts++
		}
		if e.RunID != r.RunID {
			return fmt.Errorf("trace: event %s has run_id %q, want %q", e.SpanID, e.RunID, r.RunID)
		}
	}
	if runStarts != 1 {
		return fmt.Errorf("trace: found %d run_start events, want exactly 1", runStarts)
	}

	last := r.Events[len(r.Events)-1]
	if last.Name != NameRunEnd {
		return fmt.Errorf("trace: last event is %q, want run_end (interrupted run)", last.Name)
	}

	if err := r.validatePairing(NameToolCall, NameToolResult); err != nil {
		return err
	}
	if err := r.validatePairing(NameLLMRequest, NameLLMResponse); err != nil {
		return err
	}
	return r.validateSpanNesting()
}

func (r *Run) validatePairing(open, close Name) error {
	pending := map[string]int{}
	for _, e := range r.Events {
		switch e.Name {
		case open:
			pending[e.SpanID]++
		case close:
			if pending[e.SpanID] == 0 {
				return fmt.Errorf("trace: %s for span %s has no matching %s", close, e.SpanID, open)
			}
			pending[e.SpanID]--
		}
	}
	for span, n := range pending {
		if n > 0 {
			return fmt.Errorf("trace: %s for span %s has no matching %s", open, span, close)
		}
	}
	return nil
}

// validateSpanNesting checks that every non-empty parent_span_id refers
// to a span that is still open (its span has been entered but not yet
// exited) at the point the child event appears.
func (r *Run) validateSpanNesting() error {
	open := map[string]bool{}
	for _, e := range r.Events {
		if e.ParentSpanID != "" && !open[e.ParentSpanID] {
			return fmt.Errorf("trace: event %s references unopened parent span %s", e.SpanID, e.ParentSpanID)
		}
		switch e.Name {
		case NameNodeEnter, NameToolCall, NameLLMRequest:
			open[e.SpanID] = true
		case NameNodeExit, NameToolResult, NameLLMResponse:
			delete(open, e.SpanID)
		}
	}
	return nil
}

// Interrupted reports whether the run has no run_end event, i.e. the
// writer was closed mid-run (spec.md §4.1).
func (r *Run) Interrupted() bool {
	return r.RunEnd == nil
}
