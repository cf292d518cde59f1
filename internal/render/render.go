// Package render turns specialist replies into HTML.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/ziadkadry99/udahub/internal/specialist"
)

// Model output is untrusted, so raw HTML in replies is escaped rather than
// passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

// HTML renders markdown as an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// HandoffMarkdown formats a handoff payload as a markdown section. It
// returns "" for a nil handoff.
func HandoffMarkdown(h *specialist.Handoff) string {
	if h == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("### Handoff\n\n")
	for _, f := range []struct{ label, value string }{
		{"Summary", h.Summary},
		{"What we know", h.WhatWeKnow},
		{"What we tried", h.WhatWeTried},
		{"Missing info", h.MissingInfo},
		{"Suggested next action", h.SuggestedNextAction},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "- **%s:** %s\n", f.label, f.value)
		}
	}
	return b.String()
}
