package citations

import (
	"fmt"
	"strings"
)

// BuildPrompt asks the model to map every verifiable claim of summary to the URLs of
// the supporting chunks, using only URLs present in chunks.
func BuildPrompt(summary string, chunks []Chunk) string {
	formatted := make([]string, 0, len(chunks))
	for _, c := range chunks {
		formatted = append(formatted, fmt.Sprintf("%s (Source: %s):\n%s", c.Key, c.URL, c.Text))
	}

	var b strings.Builder
	b.WriteString("You are a financial analyst assistant. You generated the following summary:\n\n")
	b.WriteString("--- Summary ---\n")
	b.WriteString(summary)
	b.WriteString("\n\nYou used these source snippets (each with its original URL):\n\n")
	b.WriteString("--- Sources ---\n")
	b.WriteString(strings.Join(formatted, "\n\n"))
	b.WriteString("\n\nPlease map each claim from the summary to the URLs that support it. ")
	b.WriteString("Copy each claim exactly as it appears in the summary. Format:\n\n")
	b.WriteString("- Summary claim: \"...\"\n  → Source URL(s): [\"https://...\"]\n\n")
	b.WriteString("Use only the URLs in the provided sources. Don't invent URLs. ")
	b.WriteString("If no source supports a claim, use an empty list.\n")
	return b.String()
}
