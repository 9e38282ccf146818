// Package summarize holds the language-model stages of a briefing: correspondence
// summaries, meeting categorization, the finance news digest and section assembly.
package summarize

import (
	"context"
	"strings"

	"advisorbrief/internal/llm"
	"advisorbrief/internal/logger"
)

// Stage names.
const (
	StagePastCorrespondence   = "summarize_past_correspondence"
	StageRecentCorrespondence = "summarize_recent_correspondence"
	StageClientQuestions      = "extract_client_questions"
	StageCategorizeMeeting    = "categorize_meeting"
	StageFinanceDigest        = "summarize_finance_news"
	StageAssembleSections     = "assemble_sections"
)

// DefaultFirmName is the advisory firm named in prompts when none is configured.
const DefaultFirmName = "Bankwell Financial"

// Summarizer runs the correspondence, categorization and digest stages.
type Summarizer struct {
	llm  llm.Completer
	firm string
}

// New creates a Summarizer; an empty firm uses DefaultFirmName.
func New(completer llm.Completer, firm string) *Summarizer {
	if strings.TrimSpace(firm) == "" {
		firm = DefaultFirmName
	}
	return &Summarizer{llm: completer, firm: firm}
}

// complete sends one prompt and trims the answer.
func (s *Summarizer) complete(ctx context.Context, stage, prompt string) (string, error) {
	logger.Debug("sending prompt", "stage", stage, "prompt_length", len(prompt))
	out, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
