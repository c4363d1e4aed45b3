// internal/infra/telegram/dispatcher.go
package telegram

import (
	"context"
	"strconv"
	"time"

	"lead_intake_bot/internal/app"
	"lead_intake_bot/internal/domain/delivery"
	domainTelegram "lead_intake_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// NudgeDispatcher periodically drains the delivery queue for Telegram leads
// and pushes the pending nudge to their chat. Leads whose ID is not a chat ID
// (webchat sessions) are left in the queue for the polling transport.
type NudgeDispatcher struct {
	convService *app.ConversationService
	queue       delivery.Queue
	client      domainTelegram.Client
	logger      *logrus.Entry
	interval    time.Duration
}

func NewNudgeDispatcher(
	convService *app.ConversationService,
	queue delivery.Queue,
	client domainTelegram.Client,
	logger *logrus.Entry,
	interval time.Duration,
) *NudgeDispatcher {
	return &NudgeDispatcher{
		convService: convService,
		queue:       queue,
		client:      client,
		logger:      logger,
		interval:    interval,
	}
}

// Start runs the drain loop until ctx is cancelled.
func (d *NudgeDispatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		d.logger.WithField("interval", d.interval.String()).Info("Nudge dispatcher started")

		for {
			select {
			case <-ctx.Done():
				d.logger.Info("Nudge dispatcher stopped")
				return
			case <-ticker.C:
				d.drain()
			}
		}
	}()
}

func (d *NudgeDispatcher) drain() {
	for _, leadID := range d.queue.LeadIDs() {
		chatID, err := strconv.ParseInt(leadID, 10, 64)
		if err != nil {
			continue // not a Telegram lead
		}

		msg, ok := d.convService.PollFollowUp(leadID)
		if !ok {
			continue // raced with another consumer
		}

		// A failed send loses the nudge; proactive delivery is best-effort
		// and the record already notes the attempt.
		if err := d.client.SendMessage(chatID, msg.Text, nil); err != nil {
			d.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to deliver follow-up nudge")
			continue
		}
		d.logger.WithField("lead_id", leadID).Info("Follow-up nudge delivered")
	}
}
