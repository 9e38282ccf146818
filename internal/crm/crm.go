// Package crm reads client metadata and correspondence from the CRM and mail databases.
package crm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

const serviceName = "crm"

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("no matching crm record")

// Store is the CRM/email collaborator.
type Store interface {
	// CompanyByEmail returns the company a contact email belongs to.
	CompanyByEmail(ctx context.Context, email string) (string, error)
	// Industry returns the industry of a company.
	Industry(ctx context.Context, company string) (string, error)
	// TopHoldings returns up to limit equity-fund positions ordered by position weight.
	TopHoldings(ctx context.Context, company string, limit int) ([]string, error)
	// ContactEmails returns every contact email on file for a company.
	ContactEmails(ctx context.Context, company string) ([]string, error)
	// LastMeeting returns the latest meeting with any of emails held before the given time.
	// A nil time with a nil error means there was none.
	LastMeeting(ctx context.Context, emails []string, before time.Time) (*time.Time, error)
	// Correspondence returns email bodies sent to or from any of emails, newest first.
	// A limit of zero returns every match.
	Correspondence(ctx context.Context, emails []string, limit int) ([]string, error)
}

// addressPattern builds a case-insensitive alternation that matches any of emails.
func addressPattern(emails []string) string {
	quoted := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(e))
	}
	return strings.Join(quoted, "|")
}
