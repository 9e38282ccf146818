package crm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Email is one message held by a MemoryStore.
type Email struct {
	From      string    `yaml:"from" json:"from"`
	To        []string  `yaml:"to" json:"to"`
	Body      string    `yaml:"body" json:"body"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// Position is one fund position held by a MemoryStore, weighted by balance times weight.
type Position struct {
	Name     string  `yaml:"name" json:"name"`
	FundType string  `yaml:"fund_type" json:"fund_type"`
	Balance  float64 `yaml:"balance" json:"balance"`
	Weight   float64 `yaml:"weight" json:"weight"`
}

// Company is the CRM record of one client company.
type Company struct {
	Name      string     `yaml:"name" json:"name"`
	Industry  string     `yaml:"industry" json:"industry"`
	Contacts  []string   `yaml:"contacts" json:"contacts"`
	Positions []Position `yaml:"positions" json:"positions"`
}

// Meeting is a past meeting held by a MemoryStore.
type Meeting struct {
	Invitees  []string  `yaml:"invitees" json:"invitees"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// MemoryStore is an in-process Store used for dry runs and tests.
type MemoryStore struct {
	Companies []Company `yaml:"companies" json:"companies"`
	Meetings  []Meeting `yaml:"meetings" json:"meetings"`
	Emails    []Email   `yaml:"emails" json:"emails"`
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) company(name string) (Company, error) {
	for _, c := range m.Companies {
		if c.Name == name {
			return c, nil
		}
	}
	return Company{}, fmt.Errorf("company %q: %w", name, ErrNotFound)
}

func (m *MemoryStore) CompanyByEmail(_ context.Context, email string) (string, error) {
	for _, c := range m.Companies {
		for _, contact := range c.Contacts {
			if contact == email {
				return c.Name, nil
			}
		}
	}
	return "", fmt.Errorf("company by email: %w", ErrNotFound)
}

func (m *MemoryStore) Industry(_ context.Context, company string) (string, error) {
	c, err := m.company(company)
	if err != nil {
		return "", err
	}
	return c.Industry, nil
}

func (m *MemoryStore) TopHoldings(_ context.Context, company string, limit int) ([]string, error) {
	c, err := m.company(company)
	if err != nil {
		return nil, err
	}
	var equity []Position
	for _, p := range c.Positions {
		if p.FundType == "" || p.FundType == "Equity Fund" {
			equity = append(equity, p)
		}
	}
	sort.SliceStable(equity, func(i, j int) bool {
		return equity[i].Balance*equity[i].Weight > equity[j].Balance*equity[j].Weight
	})
	if limit > 0 && len(equity) > limit {
		equity = equity[:limit]
	}
	names := make([]string, 0, len(equity))
	for _, p := range equity {
		names = append(names, p.Name)
	}
	return names, nil
}

func (m *MemoryStore) ContactEmails(_ context.Context, company string) ([]string, error) {
	c, err := m.company(company)
	if err != nil {
		return nil, err
	}
	contacts := append([]string(nil), c.Contacts...)
	sort.Strings(contacts)
	return contacts, nil
}

func (m *MemoryStore) LastMeeting(_ context.Context, emails []string, before time.Time) (*time.Time, error) {
	match, err := matcher(emails)
	if err != nil || match == nil {
		return nil, err
	}
	var last *time.Time
	for _, meeting := range m.Meetings {
		if !meeting.Timestamp.Before(before) || !match.MatchString(strings.Join(meeting.Invitees, ",")) {
			continue
		}
		if last == nil || meeting.Timestamp.After(*last) {
			ts := meeting.Timestamp
			last = &ts
		}
	}
	return last, nil
}

func (m *MemoryStore) Correspondence(_ context.Context, emails []string, limit int) ([]string, error) {
	match, err := matcher(emails)
	if err != nil || match == nil {
		return nil, err
	}
	var hits []Email
	for _, e := range m.Emails {
		if match.MatchString(e.From) || match.MatchString(strings.Join(e.To, ",")) {
			hits = append(hits, e)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Timestamp.After(hits[j].Timestamp) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	bodies := make([]string, 0, len(hits))
	for _, e := range hits {
		bodies = append(bodies, e.Body)
	}
	return bodies, nil
}

func matcher(emails []string) (*regexp.Regexp, error) {
	pattern := addressPattern(emails)
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + pattern)
}
