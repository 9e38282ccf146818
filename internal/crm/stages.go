package crm

import (
	"context"

	"advisorbrief/internal/core"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
)

// Stage names.
const (
	StageClientMetadata = "retrieve_client_metadata"
	StageCorrespondence = "load_correspondence"
)

// Defaults matching the CRM queries the briefing was designed around.
const (
	DefaultHoldingsLimit    = 5
	DefaultRecentEmailLimit = 5
)

// Loader runs the two SQL stages of a briefing.
type Loader struct {
	store         Store
	holdingsLimit int
	recentLimit   int
}

// NewLoader creates a Loader; non-positive limits fall back to the defaults.
func NewLoader(store Store, holdingsLimit, recentLimit int) *Loader {
	if holdingsLimit <= 0 {
		holdingsLimit = DefaultHoldingsLimit
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentEmailLimit
	}
	return &Loader{store: store, holdingsLimit: holdingsLimit, recentLimit: recentLimit}
}

// RetrieveClientMetadata resolves the client's company, industry, holdings and contacts
// from the client email.
func (l *Loader) RetrieveClientMetadata(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.ClientEmail == "" {
		return state, core.Missing(StageClientMetadata, core.FieldClientEmail)
	}

	company, err := l.store.CompanyByEmail(ctx, state.ClientEmail)
	if err = record("company by email", err); err != nil {
		return state, err
	}
	industry, err := l.store.Industry(ctx, company)
	if err = record("industry", err); err != nil {
		return state, err
	}
	holdings, err := l.store.TopHoldings(ctx, company, l.holdingsLimit)
	if err = record("top holdings", err); err != nil {
		return state, err
	}
	contacts, err := l.store.ContactEmails(ctx, company)
	if err = record("contact emails", err); err != nil {
		return state, err
	}
	if len(contacts) == 0 {
		contacts = []string{state.ClientEmail}
	}

	state.Client = &core.ClientProfile{
		Company:       company,
		Industry:      industry,
		Holdings:      holdings,
		ContactEmails: contacts,
	}
	logger.Info("client metadata loaded", "run_id", state.RunID, "company", company,
		"industry", industry, "holdings", len(holdings), "contacts", len(contacts))
	return state, nil
}

// LoadCorrespondence reads the last meeting time and the email history for every
// contact of the client.
func (l *Loader) LoadCorrespondence(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.Client == nil {
		return state, core.Missing(StageCorrespondence, core.FieldClient)
	}
	if state.MeetingTime.IsZero() {
		return state, core.Missing(StageCorrespondence, core.FieldMeetingTime)
	}
	emails := state.Client.ContactEmails

	last, err := l.store.LastMeeting(ctx, emails, state.MeetingTime)
	if err = record("last meeting", err); err != nil {
		return state, err
	}
	past, err := l.store.Correspondence(ctx, emails, 0)
	if err = record("past correspondence", err); err != nil {
		return state, err
	}
	recent, err := l.store.Correspondence(ctx, emails, l.recentLimit)
	if err = record("recent correspondence", err); err != nil {
		return state, err
	}

	state.Correspondence = &core.Correspondence{
		LastMeeting:  last,
		PastEmails:   past,
		RecentEmails: recent,
	}
	if last == nil {
		logger.Warn("no previous meeting found, retrieval will use fallback windows", "run_id", state.RunID)
	}
	logger.Info("correspondence loaded", "run_id", state.RunID, "past", len(past), "recent", len(recent))
	return state, nil
}

func record(op string, err error) error {
	metrics.RecordExternal(serviceName, err)
	return core.External(serviceName, op, err)
}
