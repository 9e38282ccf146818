// Package preferences resolves the per-topic detail levels of the requesting user.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"advisorbrief/internal/config"
	"advisorbrief/internal/core"
)

// Provider returns the detail levels for a requesting user.
type Provider interface {
	Lookup(ctx context.Context, userEmail string) (core.Preferences, error)
}

// Static serves profiles held in memory, keyed by lower-cased email.
type Static struct {
	def   core.Preferences
	users map[string]core.Preferences
}

var _ Provider = (*Static)(nil)

// NewStatic creates a provider answering def for unknown users.
func NewStatic(def core.Preferences, users map[string]core.Preferences) *Static {
	s := &Static{def: def, users: make(map[string]core.Preferences, len(users))}
	for email, p := range users {
		s.users[normalize(email)] = p
	}
	return s
}

// Lookup implements Provider.
func (s *Static) Lookup(_ context.Context, userEmail string) (core.Preferences, error) {
	if p, ok := s.users[normalize(userEmail)]; ok {
		return p, nil
	}
	return s.def, nil
}

// FromConfig builds a Static provider from the preferences section. Blank levels inherit
// from the default profile, which itself falls back to core.DefaultPreferences.
func FromConfig(cfg config.Preferences) (*Static, error) {
	def, err := parseProfile(cfg.Default, core.DefaultPreferences())
	if err != nil {
		return nil, fmt.Errorf("default preferences: %w", err)
	}

	users := make(map[string]core.Preferences, len(cfg.Users))
	for _, u := range cfg.Users {
		if strings.TrimSpace(u.Email) == "" {
			return nil, errors.New("preference profile without email")
		}
		p, err := parseProfile(u.PreferenceProfile, def)
		if err != nil {
			return nil, fmt.Errorf("preferences for %s: %w", u.Email, err)
		}
		users[u.Email] = p
	}
	return NewStatic(def, users), nil
}

func parseProfile(profile config.PreferenceProfile, fallback core.Preferences) (core.Preferences, error) {
	out := fallback
	fields := []struct {
		raw string
		dst *core.DetailLevel
	}{
		{profile.Finance, &out.Finance},
		{profile.ClientNews, &out.ClientNews},
		{profile.Communications, &out.Communications},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		level, err := core.ParseDetailLevel(f.raw)
		if err != nil {
			return out, err
		}
		*f.dst = level
	}
	return out, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
