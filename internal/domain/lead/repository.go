package lead

import (
	"context"
	"errors"
)

// ErrLeadNotFound is returned by Get for unknown lead IDs.
var ErrLeadNotFound = errors.New("lead not found")

// Repository defines the operations for persisting and retrieving leads.
// Upsert must be atomic: the read-modify-write merge may never be split
// across a lock release, because the turn path and the follow-up sweep write
// concurrently.
type Repository interface {
	// Upsert creates the record if absent and merges the mutation field-by-field
	// if present. Applying the same mutation twice yields the same record.
	Upsert(ctx context.Context, leadID string, m Mutation) error
	Get(ctx context.Context, leadID string) (*Lead, error)
	// ListActiveForFollowUp returns leads whose status is outside the
	// terminal exclusion set and whose last_agent_msg_ts is non-empty.
	ListActiveForFollowUp(ctx context.Context) ([]FollowUpCandidate, error)
	// ListAll returns every stored lead, for admin inspection.
	ListAll(ctx context.Context) ([]*Lead, error)
}
