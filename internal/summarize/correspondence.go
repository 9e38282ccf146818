package summarize

import (
	"context"
	"fmt"
	"strings"

	"advisorbrief/internal/core"
)

// NoCorrespondence is recorded instead of a summary when no emails are on file.
const NoCorrespondence = "No correspondence with the client is on file."

func requireCorrespondence(stage string, state core.BriefingState) error {
	if state.Client == nil {
		return core.Missing(stage, core.FieldClient)
	}
	if state.Correspondence == nil {
		return core.Missing(stage, core.FieldCorrespondence)
	}
	return nil
}

// SummarizePastCorrespondence writes a narrative of the full email history, focused on
// the meeting description.
func (s *Summarizer) SummarizePastCorrespondence(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if err := requireCorrespondence(StagePastCorrespondence, state); err != nil {
		return state, err
	}
	emails := state.Correspondence.PastEmails
	if len(emails) == 0 {
		state.EmailSummary = core.StringPtr(NoCorrespondence)
		return state, nil
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Produce a summary of past emails, listed below, between %s and %s ",
		state.Client.Company, s.firm))
	prompt.WriteString(fmt.Sprintf("that will provide context most relevant to a meeting discussing %s.\n", state.MeetingDescription))
	prompt.WriteString("In the description, cite information from specific emails using the name of the client involved ")
	prompt.WriteString("in the conversation and, if available, the date of the email. ")
	prompt.WriteString("Do not include the date or a reference to the date if the date is not specified.\n\n")
	prompt.WriteString("Emails:\n\n")
	prompt.WriteString(strings.Join(emails, "\n"))

	summary, err := s.complete(ctx, StagePastCorrespondence, prompt.String())
	if err != nil {
		return state, err
	}
	state.EmailSummary = &summary
	return state, nil
}

// SummarizeRecentCorrespondence lists the business topics of the most recent emails.
func (s *Summarizer) SummarizeRecentCorrespondence(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if err := requireCorrespondence(StageRecentCorrespondence, state); err != nil {
		return state, err
	}
	emails := state.Correspondence.RecentEmails
	if len(emails) == 0 {
		state.RecentEmailSummary = core.StringPtr(NoCorrespondence)
		return state, nil
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("You are reviewing a series of past emails exchanged between %s and %s.\n\n",
		state.Client.Company, s.firm))
	prompt.WriteString("Make a bullet point list of the main topics discussed in the emails.\n")
	prompt.WriteString("- Exclude any content related to scheduling, logistics, or meeting arrangements.\n")
	prompt.WriteString("- Focus only on business-related updates, decisions, issues, and key discussion points.\n")
	prompt.WriteString("- Use complete sentences in the bullet points.\n\n")
	prompt.WriteString("Format your response like this:\n\n")
	prompt.WriteString("Recent Email Bullet Points:\n• [Summary point 1]\n• [Summary point 2]\n...\n\n")
	prompt.WriteString("Email Thread to Analyze:\n")
	prompt.WriteString(strings.Join(emails, "\n"))

	summary, err := s.complete(ctx, StageRecentCorrespondence, prompt.String())
	if err != nil {
		return state, err
	}
	state.RecentEmailSummary = &summary
	return state, nil
}

// ExtractClientQuestions lists the questions the client asked in recent emails.
func (s *Summarizer) ExtractClientQuestions(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if err := requireCorrespondence(StageClientQuestions, state); err != nil {
		return state, err
	}
	emails := state.Correspondence.RecentEmails
	if len(emails) == 0 {
		state.ClientQuestions = core.StringPtr("")
		return state, nil
	}

	company := state.Client.Company
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("You are reviewing a series of past emails exchanged between the client %s and %s to identify client questions.\n\n",
		company, s.firm))
	prompt.WriteString(fmt.Sprintf("Extract any questions asked by %s or their representatives.\n", company))
	prompt.WriteString("- Do not include questions about availability, meeting times, or scheduling logistics.\n")
	prompt.WriteString(fmt.Sprintf("- Only include questions asked by %s or its representative, not by the %s employee.\n", company, s.firm))
	prompt.WriteString("- Use verbatim quotes from the emails where possible. You may lightly paraphrase for clarity.\n")
	prompt.WriteString("- Present this as a numbered list.\n\n")
	prompt.WriteString("Format your response like this:\n\n")
	prompt.WriteString("Client Questions:\n1. \"[Exact client question]\"\n2. \"[Exact client question]\"\n...\n\n")
	prompt.WriteString("Email Thread to Analyze:\n")
	prompt.WriteString(strings.Join(emails, "\n"))

	questions, err := s.complete(ctx, StageClientQuestions, prompt.String())
	if err != nil {
		return state, err
	}
	state.ClientQuestions = &questions
	return state, nil
}
