package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadFile reads every well-formed JSON line from path into an ordered
// slice of events. A truncated last line (no trailing newline, or a
// syntactically incomplete line) is tolerated and silently dropped, per
// spec.md §4.1 ("a truncated last line is tolerated on read").
func ReadFile(path string) ([]*Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open trace file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}

// ReadAll reads every well-formed JSON line from r, same semantics as
// ReadFile.
func ReadAll(r io.Reader) ([]*Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var events []*Event
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := e.UnmarshalJSON(line); err != nil {
			// A truncated or malformed trailing line is expected when a
			// writer was killed mid-event; skip it rather than fail the
			// whole read.
			continue
		}
		events = append(events, &e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("trace: scan trace file: %w", err)
	}
	return events, nil
}
