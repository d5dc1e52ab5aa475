package trace

// This file defines the per-Name typed Data payload shapes named in
// spec.md §3/§6. Event.Data stays a json.RawMessage on the wire (so
// unknown fields survive); these structs are the typed view callers
// decode into and encode from via Event.UnmarshalData/MarshalData.

type (
	// RunStartData is the payload for run_start.
	RunStartData struct {
		Pod       string         `json:"pod"`
		Graph     string         `json:"graph,omitempty"`
		GraphPath string         `json:"graph_path,omitempty"`
		Input     any            `json:"input"`
		UserID    string         `json:"user_id,omitempty"`
		SessionID string         `json:"session_id,omitempty"`
		Config    map[string]any `json:"config,omitempty"`
	}

	// RunEndData is the payload for run_end.
	RunEndData struct {
		Status     string `json:"status"`
		StateHash  string `json:"state_hash"`
		DurationMs int64  `json:"duration_ms"`
		Output     any    `json:"output,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	// ErrorData is the payload for error.
	ErrorData struct {
		Message string `json:"message"`
		Node    string `json:"node,omitempty"`
		Kind    string `json:"kind,omitempty"`
	}

	// NodeEnterData is the payload for node_enter.
	NodeEnterData struct {
		Node      string `json:"node"`
		StateHash string `json:"state_hash,omitempty"`
	}

	// NodeExitData is the payload for node_exit.
	NodeExitData struct {
		Node       string `json:"node"`
		OutputHash string `json:"output_hash,omitempty"`
		Output     any    `json:"output,omitempty"`
		DurationMs int64  `json:"duration_ms"`
	}

	// ToolCallData is the payload for tool_call.
	ToolCallData struct {
		Tool        string   `json:"tool"`
		InputHash   string   `json:"input_hash"`
		Input       any      `json:"input,omitempty"`
		Permissions []string `json:"permissions,omitempty"`
	}

	// ToolResultData is the payload for tool_result.
	ToolResultData struct {
		Tool       string `json:"tool"`
		Result     any    `json:"result,omitempty"`
		DurationMs int64  `json:"duration_ms"`
		Status     string `json:"status"`
		Error      string `json:"error,omitempty"`
	}

	// LLMRequestData is the payload for llm_request.
	LLMRequestData struct {
		Model        string `json:"model"`
		MessagesHash string `json:"messages_hash"`
		Messages     any    `json:"messages,omitempty"`
		Temperature  float64 `json:"temperature,omitempty"`
		MaxTokens    int    `json:"max_tokens,omitempty"`
		Provider     string `json:"provider"`
	}

	// Usage carries token accounting for an LLM call.
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}

	// LLMResponseData is the payload for llm_response.
	LLMResponseData struct {
		Model      string `json:"model"`
		Text       string `json:"text,omitempty"`
		TextHash   string `json:"text_hash,omitempty"`
		TextLength int    `json:"text_length,omitempty"`
		Usage      Usage  `json:"usage"`
		DurationMs int64  `json:"duration_ms"`
		Provider   string `json:"provider"`
	}

	// PolicyCheckData is the payload for policy_check.
	PolicyCheckData struct {
		Policy   string         `json:"policy"`
		Decision string         `json:"decision"`
		Reason   string         `json:"reason,omitempty"`
		RuleID   string         `json:"rule_id,omitempty"`
		Inputs   map[string]any `json:"inputs,omitempty"`
	}

	// CostRecordData is the payload for cost_record.
	CostRecordData struct {
		USD              float64 `json:"usd"`
		PromptTokens     int     `json:"prompt_tokens,omitempty"`
		CompletionTokens int     `json:"completion_tokens,omitempty"`
		TotalTokens      int     `json:"total_tokens,omitempty"`
		Source           string  `json:"source,omitempty"`
	}

	// QualityRecordData is the payload for quality_record.
	QualityRecordData struct {
		Metric string  `json:"metric"`
		Value  float64 `json:"value"`
	}

	// MemoryOpData is the shared payload shape for memory_put, memory_get,
	// and memory_search.
	MemoryOpData struct {
		Bank    string `json:"bank"`
		Query   string `json:"query,omitempty"`
		Count   int    `json:"count,omitempty"`
		ItemIDs []string `json:"item_ids,omitempty"`
	}

	// ArtifactCreatedData is the payload for artifact_created.
	ArtifactCreatedData struct {
		Kind string `json:"kind"`
		Path string `json:"path"`
		Hash string `json:"hash,omitempty"`
	}
)
