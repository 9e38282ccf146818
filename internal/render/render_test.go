package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"advisorbrief/internal/core"
)

func finishedState() core.BriefingState {
	level, change := 4.25, -1.5
	return core.BriefingState{
		ClientName:         "Jane Doe",
		MeetingTime:        time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC),
		MeetingDescription: "annual portfolio review",
		Client:             &core.ClientProfile{Company: "Acme Holdings", Holdings: []string{"Acme Corp", "Globex"}},
		Meeting:            &core.MeetingFocus{Category: "Annual Review", NewsFocus: "Finance"},
		ClientQuestions:    core.StringPtr("1. Can we rebalance toward bonds?"),
		MacroIndicators: []core.IndicatorSnapshot{
			{Label: "10-Year Treasury Yield", Level: &level, Change1M: &change},
		},
		Sections: &core.Sections{
			FinanceHoldings: "Acme Corp reported record profit.",
			Communications:  "Jane asked about bonds.",
		},
		Sourced: &core.SourcedSections{
			FinanceHoldings: "Acme Corp reported record profit[[1]](https://www.reuters.com/acme-1).",
		},
	}
}

func TestMarkdownPrefersCitedSections(t *testing.T) {
	content := Markdown(finishedState())

	if !strings.Contains(content, "# Meeting Briefing: Jane Doe (Acme Holdings)") {
		t.Error("Content should contain the briefing title")
	}
	if !strings.Contains(content, "record profit[[1]](https://www.reuters.com/acme-1).") {
		t.Error("Content should use the cited finance section")
	}
	if !strings.Contains(content, "1. [reuters.com](https://www.reuters.com/acme-1)") {
		t.Error("Content should list the cited source")
	}
	if strings.Contains(content, "## Client News") {
		t.Error("Empty sections should be omitted")
	}
	if !strings.Contains(content, "**Top holdings:** Acme Corp, Globex") {
		t.Error("Content should list holdings")
	}

	finance := strings.Index(content, "## Finance & Holdings")
	comms := strings.Index(content, "## Client Communications")
	if finance == -1 || comms == -1 || finance > comms {
		t.Error("Finance section should come before communications")
	}
}

func TestMarkdownIndicatorTable(t *testing.T) {
	content := Markdown(finishedState())

	if !strings.Contains(content, "| 10-Year Treasury Yield | 4.25 | -1.50 | n/a | n/a | n/a | n/a |") {
		t.Errorf("Unexpected indicator row in:\n%s", content)
	}

	state := finishedState()
	state.MacroIndicators = nil
	if strings.Contains(Markdown(state), "Market Indicators") {
		t.Error("Indicator table should be omitted without indicators")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(finishedState()); got != "briefing_acme-holdings_2024-10-01.md" {
		t.Errorf("Filename() = %q", got)
	}

	state := finishedState()
	state.Client = nil
	state.ClientName = "!!!"
	if got := Filename(state); got != "briefing_client_2024-10-01.md" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestWriteBriefing(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested")

	filePath, err := WriteBriefing("# Briefing\n", tmpDir, "briefing.md")
	if err != nil {
		t.Fatalf("WriteBriefing failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read briefing file: %v", err)
	}
	if string(content) != "# Briefing\n" {
		t.Errorf("Unexpected content %q", content)
	}
}
