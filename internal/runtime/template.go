package runtime

import (
	"strings"

	"localassist/pkg/types"
)

// ChatMLStop ends an assistant turn in ChatML-formatted prompts.
const ChatMLStop = "<|im_end|>"

// FormatChatML renders turns as a ChatML prompt ending with an open
// assistant turn. Tool turns are presented to the model as user turns
// prefixed with a marker so it can tell them apart from the human.
func FormatChatML(turns []types.PromptTurn) string {
	var b strings.Builder
	for _, t := range turns {
		role := t.Role
		content := t.Content
		if role == types.RoleTool {
			role = types.RoleUser
			content = "[tool result]\n" + content
		}
		b.WriteString("<|im_start|>")
		b.WriteString(string(role))
		b.WriteByte('\n')
		b.WriteString(content)
		b.WriteString(ChatMLStop)
		b.WriteByte('\n')
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
