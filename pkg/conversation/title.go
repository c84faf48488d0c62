package conversation

import (
	"strings"
	"unicode/utf8"
)

const (
	AssistantInstruction = "You are a helpful assistant."
	TitleInstruction     = "Generate a short, concise chat title (max 6 words) for a conversation that starts with the user's message. Reply with the title only."

	maxTitleRunes = 60
)

// CleanTitle normalizes a model-generated title. An empty result means the reply was unusable.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexAny(title, "\r\n"); i >= 0 {
		title = title[:i]
	}

	title = strings.NewReplacer(`"`, "", "'", "").Replace(title)
	title = strings.TrimSpace(title)
	title = strings.TrimSuffix(title, ".")
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleRunes]))
	}
	return title
}
