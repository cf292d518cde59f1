package specialist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Handoff is the structured payload the escalation specialist prepares for a
// human agent.
type Handoff struct {
	Summary             string `json:"summary"`
	WhatWeKnow          string `json:"what_we_know"`
	WhatWeTried         string `json:"what_we_tried"`
	MissingInfo         string `json:"missing_info"`
	SuggestedNextAction string `json:"suggested_next_action"`
}

func (h Handoff) empty() bool {
	return h == Handoff{}
}

// flexText decodes a JSON string, list or object into text.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			parts = append(parts, fmt.Sprint(v))
		}
		*f = flexText(strings.Join(parts, "; "))
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexText(b)
	return nil
}

type rawHandoff struct {
	Summary             flexText    `json:"summary"`
	WhatWeKnow          flexText    `json:"what_we_know"`
	WhatWeTried         flexText    `json:"what_we_tried"`
	MissingInfo         flexText    `json:"missing_info"`
	SuggestedNextAction flexText    `json:"suggested_next_action"`
	Payload             *rawHandoff `json:"escalation_payload"`
}

func (r rawHandoff) handoff() Handoff {
	if r.Payload != nil {
		return r.Payload.handoff()
	}
	return Handoff{
		Summary:             string(r.Summary),
		WhatWeKnow:          string(r.WhatWeKnow),
		WhatWeTried:         string(r.WhatWeTried),
		MissingInfo:         string(r.MissingInfo),
		SuggestedNextAction: string(r.SuggestedNextAction),
	}
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseHandoff extracts a handoff payload from a reply. Fenced blocks are
// tried first, then the outermost braces. It returns nil when no payload
// with at least one known field is found.
func ParseHandoff(reply string) *Handoff {
	h, _ := findHandoff(reply)
	return h
}

// findHandoff returns the parsed handoff and the span of reply it came from.
func findHandoff(reply string) (*Handoff, string) {
	type candidate struct{ body, span string }
	var candidates []candidate
	for _, m := range fencedJSON.FindAllStringSubmatch(reply, -1) {
		candidates = append(candidates, candidate{m[1], m[0]})
	}
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		bare := reply[start : end+1]
		candidates = append(candidates, candidate{bare, bare})
	}

	for _, c := range candidates {
		var raw rawHandoff
		if err := json.Unmarshal([]byte(c.body), &raw); err != nil {
			continue
		}
		if h := raw.handoff(); !h.empty() {
			return &h, c.span
		}
	}
	return nil, ""
}

// UserMessage returns reply with fenced JSON blocks removed, along with an
// unfenced handoff payload if one remains.
func UserMessage(reply string) string {
	msg := fencedJSON.ReplaceAllString(reply, "")
	if _, span := findHandoff(msg); span != "" {
		msg = strings.Replace(msg, span, "", 1)
	}
	return strings.TrimSpace(msg)
}
