// Package tools finds tool-call directives in generated text, runs the named
// host capability and splices results back into the displayable message.
//
// A directive is a fenced block labeled json whose payload is an object with
// a non-empty "id", a non-empty "name" and a "parameters" object:
//
//	text      := { plain | directive }
//	directive := "```" lang [ spaces ] newline payload "```"
//	lang      := "json" (ASCII case-insensitive)
//	payload   := bytes up to the next "```"
//
// Blocks that fail validation stay in the text as plain content and
// scanning resumes after them. Fences with another label are skipped whole.
// An unterminated fence ends scanning.
package tools

import (
	"bytes"
	"encoding/json"
	"strings"
)

const fence = "```"

// Call is one parsed directive.
type Call struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Params Params `json:"parameters"`
}

// Segment is a run of plain text or a single call, in source order.
type Segment struct {
	Text string
	Call *Call
}

// IsCall reports whether the segment holds a directive.
func (s Segment) IsCall() bool { return s.Call != nil }

// Parse splits text into ordered plain and call segments. Concatenating
// plain text with each call's original block reproduces text exactly.
func Parse(text string) []Segment {
	var segs []Segment
	plainStart := 0
	i := 0
	for {
		j := strings.Index(text[i:], fence)
		if j < 0 {
			break
		}
		open := i + j
		body, ok := directiveBody(text, open+len(fence))
		if !ok {
			// not a json directive: skip the whole fenced block
			end := strings.Index(text[open+len(fence):], fence)
			if end < 0 {
				break
			}
			i = open + len(fence) + end + len(fence)
			continue
		}
		end := strings.Index(text[body:], fence)
		if end < 0 {
			break
		}
		closeAt := body + end
		next := closeAt + len(fence)
		if call, ok := decodeCall(text[body:closeAt]); ok {
			if open > plainStart {
				segs = append(segs, Segment{Text: text[plainStart:open]})
			}
			segs = append(segs, Segment{Text: text[open:next], Call: call})
			plainStart = next
		}
		i = next
	}
	if plainStart < len(text) {
		segs = append(segs, Segment{Text: text[plainStart:]})
	}
	return segs
}

// Extract returns the calls in text in source order, or nil when there are
// none.
func Extract(text string) []Call {
	var out []Call
	for _, s := range Parse(text) {
		if s.Call != nil {
			out = append(out, *s.Call)
		}
	}
	return out
}

// directiveBody checks for `json[spaces]\n` at pos and returns the payload
// offset.
func directiveBody(text string, pos int) (int, bool) {
	const lang = "json"
	if len(text)-pos < len(lang) || !strings.EqualFold(text[pos:pos+len(lang)], lang) {
		return 0, false
	}
	p := pos + len(lang)
	for p < len(text) && (text[p] == ' ' || text[p] == '\t' || text[p] == '\r') {
		p++
	}
	if p >= len(text) || text[p] != '\n' {
		return 0, false
	}
	return p + 1, true
}

func decodeCall(payload string) (*Call, bool) {
	var raw struct {
		ID     *string          `json:"id"`
		Name   *string          `json:"name"`
		Params *json.RawMessage `json:"parameters"`
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(&raw); err != nil || dec.More() {
		return nil, false
	}
	if raw.ID == nil || raw.Name == nil || raw.Params == nil {
		return nil, false
	}
	id, name := strings.TrimSpace(*raw.ID), strings.TrimSpace(*raw.Name)
	if id == "" || name == "" {
		return nil, false
	}
	trimmed := bytes.TrimSpace(*raw.Params)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var v Value
	if err := v.UnmarshalJSON(trimmed); err != nil {
		return nil, false
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, false
	}
	return &Call{ID: id, Name: name, Params: Params(m)}, true
}
