package chat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// Placeholder is the reply used when the endpoint answered with nothing usable.
const Placeholder = "(no answer received)"

const eventMarker = "data:"

// Normalize extracts the reply text from an endpoint response body. In order
// it tries marker-prefixed event lines, a single JSON object, and finally the
// raw body when it is plain text.
func Normalize(body []byte) string {
	if s := fromEventLines(body); s != "" {
		return s
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Placeholder
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		if s := fromObject(obj); s != "" {
			return s
		}
		return Placeholder
	}
	if json.Valid(trimmed) {
		// arrays, numbers and the like carry no reply
		return Placeholder
	}
	return string(trimmed)
}

// fromEventLines concatenates the fragments of every "data:" line.
func fromEventLines(body []byte) string {
	var out strings.Builder
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		payload, ok := strings.CutPrefix(line, eventMarker)
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(payload), &obj); err != nil {
			continue
		}
		out.WriteString(fragment(obj))
	}
	return out.String()
}

// fragment handles the per-line shapes: {event, data:{content}} with data
// possibly JSON-encoded, {content:{answer}}, and {content:"..."}.
func fragment(obj map[string]any) string {
	if _, ok := obj["event"]; ok {
		if s := contentOf(decodeNested(obj["data"])); s != "" {
			return s
		}
	}
	switch c := obj["content"].(type) {
	case map[string]any:
		if s, ok := c["answer"].(string); ok {
			return s
		}
	case string:
		return c
	}
	return ""
}

func fromObject(obj map[string]any) string {
	switch d := obj["data"].(type) {
	case string:
		if nested, ok := decodeNested(d).(map[string]any); ok {
			if s := contentOf(nested); s != "" {
				return s
			}
		} else if strings.TrimSpace(d) != "" {
			return d
		}
	case map[string]any:
		if s := contentOf(d); s != "" {
			return s
		}
	}
	if s, ok := obj["content"].(string); ok {
		return s
	}
	return ""
}

// decodeNested unwraps a JSON document carried as a string value.
func decodeNested(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var inner map[string]any
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		return inner
	}
	return v
}

func contentOf(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	switch c := m["content"].(type) {
	case string:
		return c
	case map[string]any:
		if s, ok := c["answer"].(string); ok {
			return s
		}
	}
	if s, ok := m["answer"].(string); ok {
		return s
	}
	return ""
}
