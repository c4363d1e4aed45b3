package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lead_intake_bot/internal/domain/conversation"
	"lead_intake_bot/internal/domain/delivery"
	"lead_intake_bot/internal/domain/lead"
	"lead_intake_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// FollowUpService performs the periodic sweep over the lead store, nudging
// leads that have gone quiet and finalizing ignored declines.
type FollowUpService struct {
	leadRepo    lead.Repository
	queue       delivery.Queue
	logger      *logrus.Entry
	instruments *metrics.Metrics
	delay       time.Duration
}

func NewFollowUpService(
	leadRepo lead.Repository,
	queue delivery.Queue,
	logger *logrus.Entry,
	instruments *metrics.Metrics,
	delay time.Duration,
) *FollowUpService {
	return &FollowUpService{
		leadRepo:    leadRepo,
		queue:       queue,
		logger:      logger,
		instruments: instruments,
		delay:       delay,
	}
}

// Sweep examines every non-terminal lead with a pending question and, for the
// overdue ones, records the follow-up in the store before enqueuing the nudge.
// A single lead's failure never aborts the sweep for the others; the returned
// error reports only a failure to list candidates at all.
func (s *FollowUpService) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.delay)

	candidates, err := s.leadRepo.ListActiveForFollowUp(ctx)
	if err != nil {
		s.instruments.RecordSweep("error")
		return fmt.Errorf("failed to list leads for follow-up: %w", err)
	}
	s.logger.WithField("candidates", len(candidates)).Debug("Follow-up sweep running")

	for _, c := range candidates {
		s.sweepOne(ctx, c, cutoff)
	}

	s.instruments.SetPendingFollowUps(len(s.queue.LeadIDs()))
	s.instruments.RecordSweep("ok")
	return nil
}

func (s *FollowUpService) sweepOne(ctx context.Context, c lead.FollowUpCandidate, cutoff time.Time) {
	logCtx := s.logger.WithFields(logrus.Fields{"lead_id": c.LeadID, "status": c.Status})

	lastMsgAt, err := lead.ParseTimestamp(c.LastAgentMsgAt)
	if err != nil {
		// A broken timestamp is "not overdue", never a crash.
		logCtx.WithError(err).Warn("Skipping lead with unparsable timestamp")
		return
	}
	if !lastMsgAt.Valid || c.FollowUpSent || !lastMsgAt.Time.Before(cutoff) {
		return
	}

	// An ignored decline becomes final on this sweep; a mid-flow lead is
	// only flagged and nudged, its status untouched.
	finalize := c.Status == lead.StatusAwaitingFollowupAfterDecline
	mutation := lead.Mutation{FollowUpSent: boolPtr(true)}
	if finalize {
		declined := lead.StatusDeclinedFinal
		mutation.Status = &declined
		mutation.LastAgentMsgAt = &sql.NullTime{}
	}

	// Store write comes first: if we crash before the enqueue, the flag is
	// already true and no duplicate nudge is ever attempted.
	if err := s.leadRepo.Upsert(ctx, c.LeadID, mutation); err != nil {
		logCtx.WithError(err).Error("Failed to persist follow-up mutation; lead skipped this sweep")
		return
	}
	if finalize {
		s.instruments.RecordDeclineFinalized()
		logCtx.Info("Decline grace period expired; lead finalized as declined")
	}

	// Re-read before enqueuing: two sweeps racing on the same stale row must
	// not both insert a nudge.
	fresh, err := s.leadRepo.Get(ctx, c.LeadID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to re-read lead after follow-up write; nudge not enqueued")
		return
	}
	if !fresh.FollowUpSent || s.queue.Contains(c.LeadID) {
		logCtx.Debug("Follow-up already pending or flag not confirmed; nothing enqueued")
		return
	}

	s.queue.Enqueue(c.LeadID, conversation.NudgeText)
	s.instruments.RecordNudge()
	logCtx.Info("Follow-up nudge enqueued")
}

func boolPtr(b bool) *bool { return &b }
