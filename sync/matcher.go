// ABOUTME: Matches calendar attendees to CRM clients by email
// ABOUTME: Lets imported meetings carry a client reference
package sync

import (
	"strings"

	"github.com/harperreed/advisor-crm/models"
)

type ClientMatcher struct {
	byEmail map[string]int64
}

// NewClientMatcher indexes clients by normalized email. Clients without
// an email are not matchable.
func NewClientMatcher(clients []models.Client) *ClientMatcher {
	m := &ClientMatcher{byEmail: make(map[string]int64, len(clients))}
	for _, c := range clients {
		if email := normalizeEmail(c.Email); email != "" {
			m.byEmail[email] = c.ID
		}
	}
	return m
}

// Match returns the id of the first client among emails.
func (m *ClientMatcher) Match(emails ...string) (int64, bool) {
	for _, e := range emails {
		if id, ok := m.byEmail[normalizeEmail(e)]; ok {
			return id, true
		}
	}
	return 0, false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
