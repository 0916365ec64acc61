package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractor pulls generated text out of one known response shape.
// Returns false when the shape doesn't match or holds no text.
type extractor func(raw string) (string, bool)

// contentExtractors are tried in order; the first hit wins. Backends behind
// OpenAI-compatible proxies disagree on where the text lives, so the chat
// shape is tried first, then the legacy completion shape.
var contentExtractors = []extractor{
	chatMessageContent,
	completionText,
}

// ExtractContent pulls the generated text from a raw response payload.
// When no known shape matches, the raw payload itself is returned so the
// caller always gets something displayable.
func ExtractContent(raw string) string {
	for _, extract := range contentExtractors {
		if content, ok := extract(raw); ok {
			return content
		}
	}
	return strings.TrimSpace(raw)
}

func chatMessageContent(raw string) (string, bool) {
	return nonEmpty(gjson.Get(raw, "choices.0.message.content"))
}

func completionText(raw string) (string, bool) {
	return nonEmpty(gjson.Get(raw, "choices.0.text"))
}

func nonEmpty(result gjson.Result) (string, bool) {
	if !result.Exists() {
		return "", false
	}
	content := strings.TrimSpace(result.String())
	if content == "" {
		return "", false
	}
	return content, true
}
