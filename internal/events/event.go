// Package events defines the domain events announced after each applied
// command and their publication to downstream consumers. Events carry
// identifiers only, never payloads: consumers re-fetch current state, they
// never reconstruct a change from the event.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event announces one applied mutation. Delivery is at-least-once; consumers
// deduplicate by ID or stay naturally idempotent.
type Event struct {
	ID       string    `json:"id"`
	Tenant   string    `json:"tenant"`
	Selector string    `json:"operation_selector"`
	Affected []string  `json:"affected_identifiers"`
	Note     string    `json:"note,omitempty"`
	At       time.Time `json:"occurred_at"`
}

// New constructs an event with a fresh identity.
func New(tenantID, selector string, affected []string) Event {
	return Event{
		ID:       uuid.NewString(),
		Tenant:   tenantID,
		Selector: selector,
		Affected: affected,
		At:       time.Now().UTC(),
	}
}
