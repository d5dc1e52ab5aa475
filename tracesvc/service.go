// Package tracesvc provides the stateful façade that owns a run's
// identity, span stack, and event writer (spec.md §4.2). It is the only
// package other components call to record trace events; none of them
// touch a trace.Writer directly.
package tracesvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huap-project/huap-core/telemetry"
	"github.com/huap-project/huap-core/trace"
)

// ErrAlreadyActive is returned by StartRun when a run is already in
// progress on this Service (spec.md §4.2).
var ErrAlreadyActive = errors.New("tracesvc: run already active")

// State is the run lifecycle state of a Service.
type State string

const (
	// StateIdle means no run is in progress; all emit methods are no-ops.
	StateIdle State = "idle"
	// StateActive means a run is in progress.
	StateActive State = "active"
)

type (
	// LLMClient is the capability the trace service instruments around:
	// any implementation (a live vendor SDK adapter, or a replay stub)
	// can be wrapped so every call emits llm_request/llm_response.
	LLMClient interface {
		Complete(ctx context.Context, req LLMRequest) (LLMResult, error)
	}

	// LLMRequest is the input to an LLMClient call.
	LLMRequest struct {
		Model       string
		Messages    []map[string]any
		Temperature float64
		MaxTokens   int
		Provider    string
	}

	// LLMResult is the output of an LLMClient call.
	LLMResult struct {
		Text  string
		Usage trace.Usage
	}

	// StartRunOptions configures a new run.
	StartRunOptions struct {
		Pod       string
		Graph     string
		GraphPath string
		Input     any
		Config    map[string]any
		UserID    string
		SessionID string
		// TracePath overrides the default "<OutputDir>/<run_id>_<ts>.trace.jsonl".
		TracePath string
	}

	// Config configures a Service for its lifetime.
	Config struct {
		// OutputDir is where trace files are created when StartRunOptions
		// does not set TracePath.
		OutputDir string
		// USDPerPromptToken / USDPerCompletionToken drive the automatic
		// cost_record emitted after every llm_response.
		USDPerPromptToken     float64
		USDPerCompletionToken float64
		// RedactLLMContent enables LLM message/response redaction
		// (spec.md §4.1 control 2; spec.md §6 env var).
		RedactLLMContent bool
		// Sanitizer controls input sanitisation for run_start.input and
		// similar structures (spec.md §4.1 control 1).
		Sanitizer trace.Sanitizer
		// Logger/Tracer wire the service into the ambient telemetry stack.
		Logger telemetry.Logger
		Tracer telemetry.Tracer
	}

	// Service is the stateful façade described in spec.md §4.2. A single
	// Service instance must not be shared across concurrent runs; start
	// one Service per run, or call StartRun/EndRun sequentially.
	Service struct {
		cfg Config

		mu     sync.Mutex
		state  State
		runID  string
		pod    string
		userID string
		sessID string
		start  time.Time
		writer *trace.Writer
		spans  []spanFrame
	}

	spanFrame struct {
		id       string
		otelSpan telemetry.Span
	}
)

// New constructs an idle Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NewNoopLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = telemetry.NewNoopTracer()
	}
	return &Service{cfg: cfg, state: StateIdle}
}

// State returns the service's current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the identifier of the currently active run, or "" when
// idle.
func (s *Service) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// StartRun allocates a fresh run_id, opens a writer, and emits
// run_start. Returns ErrAlreadyActive if a run is already in progress.
func (s *Service) StartRun(ctx context.Context, opts StartRunOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		return "", ErrAlreadyActive
	}

	runID := trace.NewRunID()
	path := opts.TracePath
	if path == "" {
		path = fmt.Sprintf("%s/%s_%d.trace.jsonl", s.cfg.OutputDir, runID, time.Now().UnixNano())
	}
	w, err := trace.NewWriter(path, trace.WithWriterLogger(s.cfg.Logger))
	if err != nil {
		return "", fmt.Errorf("tracesvc: start run: %w", err)
	}

	s.state = StateActive
	s.runID = runID
	s.pod = opts.Pod
	s.userID = opts.UserID
	s.sessID = opts.SessionID
	s.start = time.Now()
	s.writer = w
	s.spans = nil

	data := trace.RunStartData{
		Pod:       opts.Pod,
		Graph:     opts.Graph,
		GraphPath: opts.GraphPath,
		Input:     s.cfg.Sanitizer.SanitizeInput(opts.Input),
		UserID:    opts.UserID,
		SessionID: opts.SessionID,
		Config:    opts.Config,
	}
	s.emitLocked(ctx, trace.KindLifecycle, trace.NameRunStart, data, "")
	return runID, nil
}

// EndRun emits run_end with a terminal state hash and wall-clock
// duration, closes the writer, and returns the service to idle.
func (s *Service) EndRun(ctx context.Context, status string, output any, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	data := trace.RunEndData{
		Status:     status,
		StateHash:  trace.ContentHash(output),
		DurationMs: time.Since(s.start).Milliseconds(),
		Output:     output,
		Error:      errMsg,
	}
	s.emitLocked(ctx, trace.KindLifecycle, trace.NameRunEnd, data, "")

	for _, f := range s.spans {
		if f.otelSpan != nil {
			f.otelSpan.End()
		}
	}
	if s.writer != nil {
		_ = s.writer.Close()
	}
	s.state = StateIdle
	s.runID = ""
	s.writer = nil
	s.spans = nil
}

// pushSpan allocates a fresh span id, pushes it, and opens a parallel
// OTEL span. Must be called with mu held.
func (s *Service) pushSpanLocked(ctx context.Context, label string) (context.Context, string, string) {
	parent := s.currentSpanIDLocked()
	id := trace.NewSpanID()
	octx, span := s.cfg.Tracer.StartSpan(ctx, label)
	s.spans = append(s.spans, spanFrame{id: id, otelSpan: span})
	return octx, id, parent
}

// popSpanLocked pops the top span, ending its OTEL counterpart. Must be
// called with mu held.
func (s *Service) popSpanLocked() {
	if len(s.spans) == 0 {
		return
	}
	top := s.spans[len(s.spans)-1]
	s.spans = s.spans[:len(s.spans)-1]
	if top.otelSpan != nil {
		top.otelSpan.End()
	}
}

func (s *Service) currentSpanIDLocked() string {
	if len(s.spans) == 0 {
		return ""
	}
	return s.spans[len(s.spans)-1].id
}

// emitLocked writes one event. Must be called with mu held and state ==
// StateActive.
func (s *Service) emitLocked(ctx context.Context, kind trace.Kind, name trace.Name, data any, spanID string) {
	if spanID == "" {
		spanID = s.currentSpanIDLocked()
		if spanID == "" {
			spanID = trace.NewSpanID()
		}
	}
	parent := ""
	if len(s.spans) > 1 {
		parent = s.spans[len(s.spans)-2].id
	}
	e := &trace.Event{
		V:            trace.SchemaVersion,
		Timestamp:    time.Now().UTC(),
		RunID:        s.runID,
		SpanID:       spanID,
		ParentSpanID: parent,
		Kind:         kind,
		Name:         name,
		Pod:          s.pod,
		UserID:       s.userID,
		SessionID:    s.sessID,
		Data:         trace.MarshalData(data),
	}
	s.writer.Write(ctx, e)
}
