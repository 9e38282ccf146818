package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"advisorbrief/internal/citations"
	"advisorbrief/internal/core"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Markdown renders a finished briefing. Cited section variants are preferred over the
// plain ones; sections left empty by a "none" preference are omitted.
func Markdown(state core.BriefingState) string {
	var md strings.Builder

	title := state.ClientName
	if state.Client != nil && state.Client.Company != "" {
		title = fmt.Sprintf("%s (%s)", state.ClientName, state.Client.Company)
	}
	md.WriteString(fmt.Sprintf("# Meeting Briefing: %s\n\n", title))
	md.WriteString(fmt.Sprintf("*%s UTC, %s*\n\n", state.MeetingTime.UTC().Format("Mon Jan 2, 2006 15:04"), state.MeetingDescription))

	if state.Meeting != nil {
		md.WriteString(fmt.Sprintf("**Meeting focus:** %s (news focus: %s)\n\n", state.Meeting.Category, state.Meeting.NewsFocus))
	}
	if state.Client != nil && len(state.Client.Holdings) > 0 {
		md.WriteString(fmt.Sprintf("**Top holdings:** %s\n\n", strings.Join(state.Client.Holdings, ", ")))
	}

	var finance, clientNews, comms string
	if state.Sections != nil {
		finance, clientNews, comms = state.Sections.FinanceHoldings, state.Sections.ClientNews, state.Sections.Communications
	}
	if state.Sourced != nil {
		finance, clientNews = state.Sourced.FinanceHoldings, state.Sourced.ClientNews
	}
	section(&md, "Finance & Holdings", finance)
	section(&md, "Client News", clientNews)
	section(&md, "Client Communications", comms)
	if state.ClientQuestions != nil {
		section(&md, "Open Client Questions", *state.ClientQuestions)
	}

	indicators(&md, state.MacroIndicators)

	if refs := citations.References(finance + "\n" + clientNews); len(refs) > 0 {
		md.WriteString("## Sources\n\n")
		for _, ref := range refs {
			md.WriteString(fmt.Sprintf("%d. [%s](%s)\n", ref.Number, ref.Publisher, ref.URL))
		}
		md.WriteString("\n")
	}

	return md.String()
}

func section(md *strings.Builder, heading, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	md.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", heading, body))
}

func indicators(md *strings.Builder, snapshots []core.IndicatorSnapshot) {
	if len(snapshots) == 0 {
		return
	}
	md.WriteString("## Market Indicators\n\n")
	md.WriteString("| Indicator | Level | 1M % | 3M % | 6M % | 1Y % | 2Y % |\n")
	md.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range snapshots {
		md.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			s.Label, number(s.Level), number(s.Change1M), number(s.Change3M),
			number(s.Change6M), number(s.Change1Y), number(s.Change2Y)))
	}
	md.WriteString("\n")
}

func number(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Filename names the briefing file after the client company and meeting date.
func Filename(state core.BriefingState) string {
	name := state.ClientName
	if state.Client != nil && state.Client.Company != "" {
		name = state.Client.Company
	}
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "client"
	}
	return fmt.Sprintf("briefing_%s_%s.md", slug, state.MeetingTime.UTC().Format("2006-01-02"))
}

// WriteBriefing writes content to filename inside outputDir and returns the path
func WriteBriefing(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "briefings" // Default output directory
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write briefing file %s: %w", filePath, err)
	}

	return filePath, nil
}
