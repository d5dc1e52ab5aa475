package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// EphemeralKeys is the default set of map keys stripped from a value
// before hashing or diffing: timestamps, durations, and random
// identifiers that are expected to differ between otherwise-identical
// executions (spec.md §3, §4.1).
var EphemeralKeys = map[string]struct{}{
	"ts": {}, "timestamp": {}, "duration_ms": {}, "duration": {},
	"latency_ms": {}, "span_id": {}, "parent_span_id": {}, "run_id": {},
	"request_id": {}, "trace_id": {}, "state_hash": {},
}

// ContentHash returns the deterministic 16-hex-character fingerprint of
// v: v is canonicalised (ephemeral keys stripped, map keys sorted,
// numbers normalised) and the first 16 hex characters of the SHA-256 of
// its canonical JSON form are returned.
func ContentHash(v any) string {
	return HashCanonical(Canonicalize(v))
}

// HashCanonical hashes an already-canonicalised value, assuming the
// caller has already stripped ephemeral fields. Exposed separately so
// callers that canonicalise once and hash multiple subsets (e.g. the
// differ) do not pay the canonicalisation cost twice.
func HashCanonical(canonical any) string {
	b, err := json.Marshal(canonical)
	if err != nil {
		// canonical values are built exclusively from maps, slices, and
		// JSON-primitive types, which always marshal successfully.
		panic("trace: hash canonical: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// Canonicalize walks v recursively and returns a form suitable for
// deterministic hashing: map keys are sorted (via Go's own
// alphabetical map-key marshaling, reinforced by rebuilding as
// sorted key/value pairs), ephemeral fields are stripped, and numbers
// are normalised to float64 so "1" and "1.0" hash identically.
func Canonicalize(v any) any {
	return canonicalize(toGeneric(v), EphemeralKeys)
}

// CanonicalizeWithEphemeral behaves like Canonicalize but strips a
// caller-supplied ephemeral-key set instead of the package default;
// used by the differ, which can be configured per-pipeline.
func CanonicalizeWithEphemeral(v any, ephemeral map[string]struct{}) any {
	return canonicalize(toGeneric(v), ephemeral)
}

// toGeneric round-trips v through JSON so struct values become the same
// map[string]any/[]any/primitive shape regardless of their original Go
// type.
func toGeneric(v any) any {
	switch v.(type) {
	case map[string]any, []any, string, float64, bool, nil:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return v
	}
	return generic
}

func canonicalize(v any, ephemeral map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if _, skip := ephemeral[k]; skip {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := orderedMap{keys: keys, values: make(map[string]any, len(keys))}
		for _, k := range keys {
			out.values[k] = canonicalize(t[k], ephemeral)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e, ephemeral)
		}
		return out
	case float64:
		return normalizeNumber(t)
	default:
		return t
	}
}

// normalizeNumber collapses integral float64 values to a stable string
// form so "1" and "1.0" canonicalise identically; non-integral values
// keep full precision via strconv's default float formatting.
func normalizeNumber(f float64) string {
	if math.Trunc(f) == f && !math.IsInf(f, 0) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// orderedMap marshals as a JSON object with keys written in the order
// captured at canonicalisation time (already sorted), guaranteeing a
// byte-stable encoding independent of Go's map iteration order.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range m.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}
