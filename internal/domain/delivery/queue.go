// Package delivery defines the hand-off point between the follow-up
// scheduler and whichever transport shows proactive messages to a lead.
package delivery

// Queue holds at most one pending proactive message per lead. Enqueue
// overwrites (last writer wins); Pop is an atomic read-and-remove, so a
// message is never delivered twice from the queue itself.
type Queue interface {
	Enqueue(leadID, text string)
	Pop(leadID string) (string, bool)
	// Contains reports whether a message is already pending for the lead.
	Contains(leadID string) bool
	// LeadIDs snapshots the leads with a pending message, for push
	// transports that drain the queue on a timer.
	LeadIDs() []string
}
