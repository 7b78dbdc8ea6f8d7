package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// ParseLine decodes the events carried by one stream line. It accepts a bare
// event object, a {"reports": [...]} envelope, a JSON array of events, or any
// text with an embedded {...} object such as `report {"step":"tree"}`.
// Lines that carry no event return false.
func ParseLine(line string) ([]Event, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, false
	}

	if events, ok := decode([]byte(s)); ok {
		return events, true
	}

	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decode([]byte(s[start : end+1]))
}

func decode(data []byte) ([]Event, bool) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		return decodeList(trimmed)
	case '{':
		var envelope struct {
			Reports json.RawMessage `json:"reports"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Reports) > 0 && envelope.Reports[0] == '[' {
			return decodeList(envelope.Reports)
		}

		var ev Event
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, false
		}
		return []Event{ev}, true
	}
	return nil, false
}

// decodeList keeps the object elements of a JSON array and drops the rest.
func decodeList(data []byte) ([]Event, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}

	events := []Event{}
	for _, item := range items {
		var ev Event
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		if err := json.Unmarshal(item, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, true
}

// ReadAll reads a whole stream and returns the events in order, skipping
// lines that carry none.
func ReadAll(r io.Reader) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if parsed, ok := ParseLine(scanner.Text()); ok {
			events = append(events, parsed...)
		}
	}
	return events, scanner.Err()
}
