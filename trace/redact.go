package trace

import (
	"encoding/json"
	"sort"
	"strings"
)

// RedactedPlaceholder replaces the value of any key matching a
// sensitive-key pattern.
const RedactedPlaceholder = "[REDACTED]"

// DefaultSizeCapBytes is the default serialised-payload size above which
// SanitizeInput truncates to a preview + hash + key list (spec.md §4.1).
const DefaultSizeCapBytes = 64 * 1024

// sensitiveKeyFragments are matched case-insensitively as substrings of
// a map key; this catches "api_key", "apiKey", "X-Api-Key", "auth_token",
// etc. without enumerating every casing/separator variant.
var sensitiveKeyFragments = []string{
	"api_key", "apikey", "token", "password", "passwd", "authorization",
	"auth", "cookie", "secret", "credential", "private_key", "privatekey",
}

// Sanitizer walks arbitrary JSON-serialisable values and redacts fields
// whose key looks sensitive, truncating oversized payloads.
type Sanitizer struct {
	// SizeCapBytes overrides DefaultSizeCapBytes when non-zero.
	SizeCapBytes int
}

// SanitizedPreview is what an oversized payload is replaced with.
type SanitizedPreview struct {
	Preview string   `json:"preview"`
	Hash    string   `json:"hash"`
	Keys    []string `json:"keys,omitempty"`
	Bytes   int      `json:"bytes"`
}

// SanitizeInput recursively redacts sensitive-looking keys in v and,
// if the serialised form of the (already redacted) value still exceeds
// the size cap, replaces it with a SanitizedPreview.
func (s Sanitizer) SanitizeInput(v any) any {
	redacted := redactSensitive(toGeneric(v))
	cap := s.SizeCapBytes
	if cap <= 0 {
		cap = DefaultSizeCapBytes
	}
	b, err := json.Marshal(redacted)
	if err != nil || len(b) <= cap {
		return redacted
	}
	preview := string(b)
	if len(preview) > 256 {
		preview = preview[:256]
	}
	return SanitizedPreview{
		Preview: preview,
		Hash:    ContentHash(v),
		Keys:    topLevelKeys(redacted),
		Bytes:   len(b),
	}
}

func topLevelKeys(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func redactSensitive(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				out[k] = RedactedPlaceholder
				continue
			}
			out[k] = redactSensitive(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactSensitive(e)
		}
		return out
	default:
		return t
	}
}

// RedactedMessage replaces an LLM message's content with a content hash
// and length when LLM redaction is enabled (spec.md §4.1, control 2).
type RedactedMessage struct {
	Role          string `json:"role"`
	ContentHash   string `json:"content_hash"`
	ContentLength int    `json:"content_length"`
	Redacted      bool   `json:"redacted"`
}

// RedactMessages converts raw chat messages (each expected to carry
// "role" and "content" keys) into RedactedMessage records, preserving
// the content hash needed for replay matching while discarding the
// literal text.
func RedactMessages(messages []map[string]any) []RedactedMessage {
	out := make([]RedactedMessage, len(messages))
	for i, m := range messages {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		out[i] = RedactedMessage{
			Role:          role,
			ContentHash:   ContentHash(content),
			ContentLength: len(content),
			Redacted:      true,
		}
	}
	return out
}

// RedactText replaces free-form LLM response text with its content hash
// and length, e.g. for llm_response.text.
func RedactText(text string) (hash string, length int) {
	return ContentHash(text), len(text)
}
