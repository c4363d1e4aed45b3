package app

import (
	"context"
	"testing"

	"lead_intake_bot/internal/domain/lead"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_RejectsNonAdmin(t *testing.T) {
	svc := NewAdminService(lead.NewInMemoryRepository(), 42)

	_, err := svc.ListLeads(context.Background(), 7)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)

	_, err = svc.GetLead(context.Background(), 7, "L1")
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
}

func TestAdminService_ListAndGet(t *testing.T) {
	repo := lead.NewInMemoryRepository()
	ctx := context.Background()
	name := "Alice"
	status := lead.StatusSecured
	require.NoError(t, repo.Upsert(ctx, "L1", lead.Mutation{Name: &name, Status: &status}))

	svc := NewAdminService(repo, 42)

	all, err := svc.ListLeads(ctx, 42)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0].Name)

	got, err := svc.GetLead(ctx, 42, "L1")
	require.NoError(t, err)
	assert.Equal(t, lead.StatusSecured, got.Status)

	_, err = svc.GetLead(ctx, 42, "missing")
	assert.ErrorIs(t, err, lead.ErrLeadNotFound)
}
