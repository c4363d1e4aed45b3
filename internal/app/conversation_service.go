package app

import (
	"context"
	"sync"
	"time"

	"lead_intake_bot/internal/domain/conversation"
	"lead_intake_bot/internal/domain/delivery"
	"lead_intake_bot/internal/domain/lead"
	"lead_intake_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// ConversationService owns the message-exchange loop: transient per-lead
// sessions, the visible chat history, and the bridge between the pure state
// machine and the lead store. Turns for one lead are serialized; turns for
// different leads interleave freely.
type ConversationService struct {
	leadRepo     lead.Repository
	queue        delivery.Queue
	logger       *logrus.Entry
	instruments  *metrics.Metrics
	declineReset time.Duration

	mu        sync.Mutex
	sessions  map[string]*conversation.Session
	histories map[string][]conversation.Message
	leadLocks map[string]*sync.Mutex
}

func NewConversationService(
	leadRepo lead.Repository,
	queue delivery.Queue,
	logger *logrus.Entry,
	instruments *metrics.Metrics,
	declineReset time.Duration,
) *ConversationService {
	return &ConversationService{
		leadRepo:     leadRepo,
		queue:        queue,
		logger:       logger,
		instruments:  instruments,
		declineReset: declineReset,
		sessions:     make(map[string]*conversation.Session),
		histories:    make(map[string][]conversation.Message),
		leadLocks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-lead mutex, creating it on first use.
func (s *ConversationService) lockFor(leadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leadLocks[leadID]
	if !ok {
		l = &sync.Mutex{}
		s.leadLocks[leadID] = l
	}
	return l
}

// StartConversation resets any existing session and history for the lead and
// runs the greeting turn. name may be empty; a placeholder is derived then.
func (s *ConversationService) StartConversation(ctx context.Context, leadID, name string) ([]conversation.Message, error) {
	l := s.lockFor(leadID)
	l.Lock()
	defer l.Unlock()
	return s.startLocked(ctx, leadID, name)
}

func (s *ConversationService) startLocked(ctx context.Context, leadID, name string) ([]conversation.Message, error) {
	res := conversation.HandleTurn(conversation.Session{LeadID: leadID, Name: name}, "", time.Now().UTC())

	if err := s.leadRepo.Upsert(ctx, leadID, res.Mutation); err != nil {
		// The lead still gets a response; the record catches up on the
		// next successful write.
		s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to persist greeting turn")
	}

	s.mu.Lock()
	sess := res.Session
	s.sessions[leadID] = &sess
	s.histories[leadID] = append([]conversation.Message(nil), res.Messages...)
	s.mu.Unlock()

	s.instruments.RecordTurn(string(res.Session.Step))
	s.logger.WithFields(logrus.Fields{"lead_id": leadID, "step": res.Session.Step}).Info("Conversation started")
	return res.Messages, nil
}

// HandleIncoming processes one utterance from the lead and returns the agent
// messages to display. An expired decline grace period restarts the
// conversation instead, discarding the utterance.
func (s *ConversationService) HandleIncoming(ctx context.Context, leadID, utterance string) ([]conversation.Message, error) {
	l := s.lockFor(leadID)
	l.Lock()
	defer l.Unlock()

	if restarted, msgs, err := s.maybeRestartAfterDecline(ctx, leadID); restarted {
		return msgs, err
	}

	s.mu.Lock()
	var sess conversation.Session
	if existing, ok := s.sessions[leadID]; ok {
		sess = *existing
	} else {
		sess = conversation.Session{LeadID: leadID, Name: s.nameFromStore(ctx, leadID)}
	}
	if utterance != "" {
		s.histories[leadID] = append(s.histories[leadID], conversation.Message{Author: conversation.AuthorUser, Text: utterance})
	}
	s.mu.Unlock()

	res := conversation.HandleTurn(sess, utterance, time.Now().UTC())
	if res.Unmodeled {
		s.logger.WithFields(logrus.Fields{"lead_id": leadID, "step": sess.Step}).Error("Turn arrived in unmodeled conversation state")
	}

	if !res.Mutation.IsEmpty() {
		if err := s.leadRepo.Upsert(ctx, leadID, res.Mutation); err != nil {
			s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to persist turn mutation")
		}
	}

	s.mu.Lock()
	next := res.Session
	s.sessions[leadID] = &next
	s.histories[leadID] = append(s.histories[leadID], res.Messages...)
	s.mu.Unlock()

	s.instruments.RecordTurn(string(res.Session.Step))
	if res.Session.Status == lead.StatusSecured && sess.Status != lead.StatusSecured {
		s.instruments.RecordSecured()
	}
	s.logger.WithFields(logrus.Fields{
		"lead_id": leadID,
		"step":    res.Session.Step,
		"replies": len(res.Messages),
	}).Info("Turn processed")
	return res.Messages, nil
}

// nameFromStore recovers the lead's name when the transient session is gone
// but a stored record survives.
func (s *ConversationService) nameFromStore(ctx context.Context, leadID string) string {
	stored, err := s.leadRepo.Get(ctx, leadID)
	if err != nil {
		if err != lead.ErrLeadNotFound {
			s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to read lead for session rebuild")
		}
		return ""
	}
	return stored.Name
}

// maybeRestartAfterDecline re-opens the conversation for a lead whose decline
// grace period expired before the sweep finalized it. The caller must hold
// the per-lead lock.
func (s *ConversationService) maybeRestartAfterDecline(ctx context.Context, leadID string) (bool, []conversation.Message, error) {
	if s.declineReset <= 0 {
		return false, nil, nil
	}
	stored, err := s.leadRepo.Get(ctx, leadID)
	if err != nil {
		if err != lead.ErrLeadNotFound {
			s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to read lead for decline-reset check")
		}
		return false, nil, nil
	}
	if stored.Status != lead.StatusAwaitingFollowupAfterDecline || !stored.LastAgentMsgAt.Valid {
		return false, nil, nil
	}
	if time.Since(stored.LastAgentMsgAt.Time) <= s.declineReset {
		return false, nil, nil
	}

	s.logger.WithField("lead_id", leadID).Warn("Decline grace period expired; restarting conversation")
	msgs, err := s.startLocked(ctx, leadID, stored.Name)
	return true, msgs, err
}

// History returns a copy of the visible conversation history for a lead.
func (s *ConversationService) History(leadID string) []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Message(nil), s.histories[leadID]...)
}

// PollFollowUp pops the lead's pending proactive message, if any, and
// appends it to the visible history. Consumed exactly once.
func (s *ConversationService) PollFollowUp(leadID string) (*conversation.Message, bool) {
	text, ok := s.queue.Pop(leadID)
	if !ok {
		return nil, false
	}
	msg := conversation.Message{Author: conversation.AuthorAgent, Text: text}
	s.mu.Lock()
	s.histories[leadID] = append(s.histories[leadID], msg)
	s.mu.Unlock()
	s.logger.WithField("lead_id", leadID).Info("Delivered pending follow-up message")
	return &msg, true
}
