package lead

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository_UpsertCreatesThenMerges(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	name := "Alice"
	status := StatusAwaitingConsent
	require.NoError(t, repo.Upsert(ctx, "L1", Mutation{Name: &name, Status: &status}))

	age := "30"
	next := StatusAwaitingCountry
	require.NoError(t, repo.Upsert(ctx, "L1", Mutation{Age: &age, Status: &next}))

	got, err := repo.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name, "earlier fields survive later partial upserts")
	assert.Equal(t, "30", got.Age)
	assert.Equal(t, StatusAwaitingCountry, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestInMemoryRepository_GetUnknown(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestInMemoryRepository_ListActiveForFollowUp(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	armed := sql.NullTime{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Valid: true}

	upsert := func(id string, status Status, ts *sql.NullTime) {
		s := status
		require.NoError(t, repo.Upsert(ctx, id, Mutation{Status: &s, LastAgentMsgAt: ts}))
	}

	upsert("active", StatusAwaitingAge, &armed)
	upsert("secured", StatusSecured, &armed)
	upsert("declined", StatusDeclinedFinal, &armed)
	upsert("no-timer", StatusAwaitingConsent, nil)
	upsert("grace", StatusAwaitingFollowupAfterDecline, &armed)

	candidates, err := repo.ListActiveForFollowUp(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.LeadID)
	}
	assert.Equal(t, []string{"active", "grace"}, ids)
	assert.Equal(t, FormatTimestamp(armed), candidates[0].LastAgentMsgAt)
}

func TestInMemoryRepository_GetReturnsCopy(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	name := "Alice"
	require.NoError(t, repo.Upsert(ctx, "L1", Mutation{Name: &name}))

	got, err := repo.Get(ctx, "L1")
	require.NoError(t, err)
	got.Name = "scribbled"

	again, err := repo.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}
