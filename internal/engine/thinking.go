package engine

import "strings"

// Reasoning delimiters emitted by reasoning models.
const (
	ThinkOpen  = "<think>"
	ThinkClose = "</think>"
)

// InThinking reports whether text ends inside an unclosed reasoning block.
func InThinking(text string) bool {
	open := strings.LastIndex(text, ThinkOpen)
	if open < 0 {
		return false
	}
	return strings.LastIndex(text, ThinkClose) < open
}

// SplitThinking separates reasoning blocks from the answer. Unclosed blocks
// count as reasoning up to the end of text.
func SplitThinking(text string) (thinking, answer string) {
	var th, an strings.Builder
	rest := text
	for {
		i := strings.Index(rest, ThinkOpen)
		if i < 0 {
			an.WriteString(rest)
			break
		}
		an.WriteString(rest[:i])
		rest = rest[i+len(ThinkOpen):]
		j := strings.Index(rest, ThinkClose)
		if j < 0 {
			th.WriteString(rest)
			break
		}
		if th.Len() > 0 {
			th.WriteByte('\n')
		}
		th.WriteString(rest[:j])
		rest = rest[j+len(ThinkClose):]
	}
	return strings.TrimSpace(th.String()), strings.TrimSpace(an.String())
}
