package summarizer

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/daily-brief/internal/fetcher"
)

const closingInstructions = `Make the summary clear and engaging. Use short bullet points where they help, and do not repeat the same story twice.`

// BuildPrompt assembles the single user message sent to the model.
func BuildPrompt(headlines []fetcher.Headline, topic string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. ")
	if topic != "" {
		sb.WriteString(fmt.Sprintf("Summarize the following %s news headlines into a concise and informative daily news brief about %s:\n\n", topic, topic))
	} else {
		sb.WriteString("Summarize the following news headlines into a concise and informative daily news brief:\n\n")
	}

	lines := make([]string, len(headlines))
	for i, h := range headlines {
		lines[i] = h.String()
	}
	sb.WriteString(strings.Join(lines, "\n"))

	sb.WriteString("\n\n")
	sb.WriteString(closingInstructions)
	return sb.String()
}
