package core

import (
	"fmt"
	"strings"
	"time"
)

// BriefingState is the record threaded through every pipeline stage. Identity fields are
// set at entry; every other field is owned by exactly one stage and stays nil until that
// stage runs. Stages return an extended copy and never unset a populated field.
type BriefingState struct {
	RunID              string    `json:"run_id" yaml:"run_id"`
	ClientName         string    `json:"client_name" yaml:"client_name"`
	ClientEmail        string    `json:"client_email" yaml:"client_email"`
	MeetingTime        time.Time `json:"meeting_timestamp" yaml:"meeting_timestamp"`
	MeetingDescription string    `json:"meeting_description" yaml:"meeting_description"`
	UserEmail          string    `json:"user_email" yaml:"user_email"`

	Client             *ClientProfile      `json:"client,omitempty" yaml:"client,omitempty"`
	Correspondence     *Correspondence     `json:"correspondence,omitempty" yaml:"correspondence,omitempty"`
	EmailSummary       *string             `json:"email_summary,omitempty" yaml:"email_summary,omitempty"`
	RecentEmailSummary *string             `json:"recent_email_summary,omitempty" yaml:"recent_email_summary,omitempty"`
	ClientQuestions    *string             `json:"client_questions,omitempty" yaml:"client_questions,omitempty"`
	Meeting            *MeetingFocus       `json:"meeting,omitempty" yaml:"meeting,omitempty"`
	MacroNews          *SourceCollection   `json:"macro_news,omitempty" yaml:"macro_news,omitempty"`
	IndustryNews       *SourceCollection   `json:"industry_news,omitempty" yaml:"industry_news,omitempty"`
	HoldingsNews       *HoldingsCollection `json:"holdings_news,omitempty" yaml:"holdings_news,omitempty"`
	MacroIndicators    []IndicatorSnapshot `json:"macro_indicators,omitempty" yaml:"macro_indicators,omitempty"`
	FinanceDigest      *string             `json:"finance_news_summary,omitempty" yaml:"finance_news_summary,omitempty"`
	Preferences        *Preferences        `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Sections           *Sections           `json:"sections,omitempty" yaml:"sections,omitempty"`
	Sourced            *SourcedSections    `json:"sourced,omitempty" yaml:"sourced,omitempty"`
}

// Field names reported by PopulatedFields and used in MissingFieldError.
const (
	FieldClientName         = "client_name"
	FieldClientEmail        = "client_email"
	FieldMeetingTime        = "meeting_timestamp"
	FieldMeetingDescription = "meeting_description"
	FieldUserEmail          = "user_email"
	FieldClient             = "client"
	FieldCorrespondence     = "correspondence"
	FieldEmailSummary       = "email_summary"
	FieldRecentEmailSummary = "recent_email_summary"
	FieldClientQuestions    = "client_questions"
	FieldMeeting            = "meeting"
	FieldMacroNews          = "macro_news"
	FieldIndustryNews       = "industry_news"
	FieldHoldingsNews       = "holdings_news"
	FieldMacroIndicators    = "macro_indicators"
	FieldFinanceDigest      = "finance_news_summary"
	FieldPreferences        = "preferences"
	FieldSections           = "sections"
	FieldSourced            = "sourced"
)

// NewBriefingState builds the entry state from the request identity. The meeting
// timestamp uses MeetingTimeLayout.
func NewBriefingState(clientName, clientEmail, meetingTime, description, userEmail string) (BriefingState, error) {
	state := BriefingState{
		ClientName:         strings.TrimSpace(clientName),
		ClientEmail:        strings.TrimSpace(clientEmail),
		MeetingDescription: strings.TrimSpace(description),
		UserEmail:          strings.TrimSpace(userEmail),
	}
	if strings.TrimSpace(meetingTime) == "" {
		return state, Missing("pipeline_entry", FieldMeetingTime)
	}
	t, err := time.Parse(MeetingTimeLayout, strings.TrimSpace(meetingTime))
	if err != nil {
		return state, fmt.Errorf("invalid meeting timestamp %q: %w", meetingTime, err)
	}
	state.MeetingTime = t
	return state, state.ValidateIdentity()
}

// ValidateIdentity checks the required identity fields.
func (s BriefingState) ValidateIdentity() error {
	switch {
	case s.ClientName == "":
		return Missing("pipeline_entry", FieldClientName)
	case s.ClientEmail == "":
		return Missing("pipeline_entry", FieldClientEmail)
	case s.MeetingTime.IsZero():
		return Missing("pipeline_entry", FieldMeetingTime)
	case s.MeetingDescription == "":
		return Missing("pipeline_entry", FieldMeetingDescription)
	case s.UserEmail == "":
		return Missing("pipeline_entry", FieldUserEmail)
	}
	return nil
}

// PopulatedFields lists the stage-owned fields that are currently set, in declaration order.
func (s BriefingState) PopulatedFields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(s.Client != nil, FieldClient)
	add(s.Correspondence != nil, FieldCorrespondence)
	add(s.EmailSummary != nil, FieldEmailSummary)
	add(s.RecentEmailSummary != nil, FieldRecentEmailSummary)
	add(s.ClientQuestions != nil, FieldClientQuestions)
	add(s.Meeting != nil, FieldMeeting)
	add(s.MacroNews != nil, FieldMacroNews)
	add(s.IndustryNews != nil, FieldIndustryNews)
	add(s.HoldingsNews != nil, FieldHoldingsNews)
	add(s.MacroIndicators != nil, FieldMacroIndicators)
	add(s.FinanceDigest != nil, FieldFinanceDigest)
	add(s.Preferences != nil, FieldPreferences)
	add(s.Sections != nil, FieldSections)
	add(s.Sourced != nil, FieldSourced)
	return fields
}

// Regressions returns the fields populated in before that are no longer set in s,
// including identity fields that were cleared.
func (s BriefingState) Regressions(before BriefingState) []string {
	var lost []string
	if before.ClientName != "" && s.ClientName == "" {
		lost = append(lost, FieldClientName)
	}
	if before.ClientEmail != "" && s.ClientEmail == "" {
		lost = append(lost, FieldClientEmail)
	}
	if !before.MeetingTime.IsZero() && s.MeetingTime.IsZero() {
		lost = append(lost, FieldMeetingTime)
	}
	if before.MeetingDescription != "" && s.MeetingDescription == "" {
		lost = append(lost, FieldMeetingDescription)
	}
	if before.UserEmail != "" && s.UserEmail == "" {
		lost = append(lost, FieldUserEmail)
	}

	now := make(map[string]bool)
	for _, f := range s.PopulatedFields() {
		now[f] = true
	}
	for _, f := range before.PopulatedFields() {
		if !now[f] {
			lost = append(lost, f)
		}
	}
	return lost
}

// Merge copies into s every stage-owned field that other has set and s has not.
// Parallel stage groups merge their outputs in declaration order with it.
func (s BriefingState) Merge(other BriefingState) BriefingState {
	if s.Client == nil {
		s.Client = other.Client
	}
	if s.Correspondence == nil {
		s.Correspondence = other.Correspondence
	}
	if s.EmailSummary == nil {
		s.EmailSummary = other.EmailSummary
	}
	if s.RecentEmailSummary == nil {
		s.RecentEmailSummary = other.RecentEmailSummary
	}
	if s.ClientQuestions == nil {
		s.ClientQuestions = other.ClientQuestions
	}
	if s.Meeting == nil {
		s.Meeting = other.Meeting
	}
	if s.MacroNews == nil {
		s.MacroNews = other.MacroNews
	}
	if s.IndustryNews == nil {
		s.IndustryNews = other.IndustryNews
	}
	if s.HoldingsNews == nil {
		s.HoldingsNews = other.HoldingsNews
	}
	if s.MacroIndicators == nil {
		s.MacroIndicators = other.MacroIndicators
	}
	if s.FinanceDigest == nil {
		s.FinanceDigest = other.FinanceDigest
	}
	if s.Preferences == nil {
		s.Preferences = other.Preferences
	}
	if s.Sections == nil {
		s.Sections = other.Sections
	}
	if s.Sourced == nil {
		s.Sourced = other.Sourced
	}
	return s
}

// LastMeeting returns the last-meeting timestamp when correspondence was loaded and had one.
func (s BriefingState) LastMeeting() (time.Time, bool) {
	if s.Correspondence == nil || s.Correspondence.LastMeeting == nil {
		return time.Time{}, false
	}
	return *s.Correspondence.LastMeeting, true
}

// StringPtr returns a pointer to v for populating optional text fields.
func StringPtr(v string) *string {
	return &v
}
