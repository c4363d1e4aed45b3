package app

import (
	"context"
	"fmt"

	"lead_intake_bot/internal/domain/lead"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// AdminService exposes read-only lead inspection to the configured Telegram
// administrator.
type AdminService struct {
	leadRepo        lead.Repository
	adminTelegramID int64
}

func NewAdminService(lr lead.Repository, adminID int64) *AdminService {
	return &AdminService{
		leadRepo:        lr,
		adminTelegramID: adminID,
	}
}

// ListLeads returns every stored lead, for the admin overview command.
func (s *AdminService) ListLeads(ctx context.Context, performingAdminID int64) ([]*lead.Lead, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	all, err := s.leadRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return all, nil
}

// GetLead returns a single lead record by ID.
func (s *AdminService) GetLead(ctx context.Context, performingAdminID int64, leadID string) (*lead.Lead, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	l, err := s.leadRepo.Get(ctx, leadID)
	if err != nil {
		if err == lead.ErrLeadNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get lead %s: %w", leadID, err)
	}
	return l, nil
}
