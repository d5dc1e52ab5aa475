package trace

import "encoding/json"

// knownFields lists the JSON keys Event owns directly; everything else
// read from a line is preserved verbatim in unknownFields so an older
// reader tolerates a newer writer's additions (spec.md §6).
var knownFields = map[string]struct{}{
	"v": {}, "ts": {}, "run_id": {}, "span_id": {}, "parent_span_id": {},
	"kind": {}, "name": {}, "pod": {}, "engine": {}, "user_id": {},
	"session_id": {}, "data": {},
}

type eventAlias Event

// MarshalJSON writes the event's known fields plus any preserved
// unknown fields from the line it was read from.
func (e Event) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(eventAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.unknownFields) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.unknownFields {
		if _, isKnown := knownFields[k]; !isKnown {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the event's known fields and stashes anything else
// in unknownFields so a round-trip write reproduces it.
func (e *Event) UnmarshalJSON(b []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}
	*e = Event(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k := range knownFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.unknownFields = raw
	}
	return nil
}
