package lead

import (
	"database/sql"
	"time"
)

// Status mirrors the conversation step a lead currently sits in.
type Status string

const (
	StatusAwaitingConsent              Status = "awaiting_consent"
	StatusAwaitingAge                  Status = "awaiting_age"
	StatusAwaitingCountry              Status = "awaiting_country"
	StatusAwaitingInterest             Status = "awaiting_interest"
	StatusAwaitingFollowupAfterDecline Status = "awaiting_followup_after_decline"
	StatusSecured                      Status = "secured"
	StatusDeclinedFinal                Status = "declined_final"
	StatusTerminated                   Status = "terminated"
)

// TerminalStatuses is the exclusion set the follow-up sweep filters by.
// 'no_response', 'completed' and 'initiated' never originate from this code
// base but may exist in records written by earlier exports.
var TerminalStatuses = []Status{
	StatusSecured,
	"no_response",
	StatusDeclinedFinal,
	"completed",
	"initiated",
	StatusTerminated,
}

// IsTerminal reports whether s belongs to the fully-handled set.
func IsTerminal(s Status) bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// Lead is one intake record, keyed by the caller-supplied lead ID.
type Lead struct {
	ID             string
	Name           string
	Age            string
	Country        string
	Interest       string
	Status         Status
	LastAgentMsgAt sql.NullTime // non-null only while a reply from the lead is pending
	FollowUpSent   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Mutation is a partial, field-by-field overwrite applied by Upsert. Nil
// pointers leave the stored field untouched; the same mutation applied twice
// yields the same record.
type Mutation struct {
	Name           *string
	Age            *string
	Country        *string
	Interest       *string
	Status         *Status
	LastAgentMsgAt *sql.NullTime // pointer to an invalid NullTime clears the column
	FollowUpSent   *bool
}

// IsEmpty reports whether the mutation would change nothing.
func (m Mutation) IsEmpty() bool {
	return m.Name == nil && m.Age == nil && m.Country == nil && m.Interest == nil &&
		m.Status == nil && m.LastAgentMsgAt == nil && m.FollowUpSent == nil
}

// ApplyTo merges the mutation into l in place.
func (m Mutation) ApplyTo(l *Lead) {
	if m.Name != nil {
		l.Name = *m.Name
	}
	if m.Age != nil {
		l.Age = *m.Age
	}
	if m.Country != nil {
		l.Country = *m.Country
	}
	if m.Interest != nil {
		l.Interest = *m.Interest
	}
	if m.Status != nil {
		l.Status = *m.Status
	}
	if m.LastAgentMsgAt != nil {
		l.LastAgentMsgAt = *m.LastAgentMsgAt
	}
	if m.FollowUpSent != nil {
		l.FollowUpSent = *m.FollowUpSent
	}
}

// Merge folds a later mutation into m; later fields supersede earlier ones.
func (m *Mutation) Merge(other Mutation) {
	if other.Name != nil {
		m.Name = other.Name
	}
	if other.Age != nil {
		m.Age = other.Age
	}
	if other.Country != nil {
		m.Country = other.Country
	}
	if other.Interest != nil {
		m.Interest = other.Interest
	}
	if other.Status != nil {
		m.Status = other.Status
	}
	if other.LastAgentMsgAt != nil {
		m.LastAgentMsgAt = other.LastAgentMsgAt
	}
	if other.FollowUpSent != nil {
		m.FollowUpSent = other.FollowUpSent
	}
}

// FollowUpCandidate is the projection returned by ListActiveForFollowUp. The
// timestamp stays string-typed on this path so that a malformed value can be
// logged and skipped by the sweep instead of failing the whole listing.
type FollowUpCandidate struct {
	LeadID         string
	LastAgentMsgAt string
	FollowUpSent   bool
	Status         Status
}
