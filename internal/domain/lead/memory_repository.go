package lead

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is a Repository backed by a mutex-guarded map. It backs
// tests and can serve as a throwaway store for local runs.
type InMemoryRepository struct {
	mu    sync.Mutex
	leads map[string]*Lead
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{leads: make(map[string]*Lead)}
}

func (r *InMemoryRepository) Upsert(_ context.Context, leadID string, m Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	l, ok := r.leads[leadID]
	if !ok {
		l = &Lead{ID: leadID, CreatedAt: now}
		r.leads[leadID] = l
	}
	m.ApplyTo(l)
	l.UpdatedAt = now
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, leadID string) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[leadID]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *InMemoryRepository) ListActiveForFollowUp(_ context.Context) ([]FollowUpCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]FollowUpCandidate, 0)
	for _, l := range r.leads {
		if IsTerminal(l.Status) || !l.LastAgentMsgAt.Valid {
			continue
		}
		candidates = append(candidates, FollowUpCandidate{
			LeadID:         l.ID,
			LastAgentMsgAt: FormatTimestamp(l.LastAgentMsgAt),
			FollowUpSent:   l.FollowUpSent,
			Status:         l.Status,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].LeadID < candidates[j].LeadID })
	return candidates, nil
}

func (r *InMemoryRepository) ListAll(_ context.Context) ([]*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*Lead, 0, len(r.leads))
	for _, l := range r.leads {
		cp := *l
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}
