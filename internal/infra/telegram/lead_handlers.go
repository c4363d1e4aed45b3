// internal/infra/telegram/lead_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lead_intake_bot/internal/app"
	"lead_intake_bot/internal/domain/conversation"
	"lead_intake_bot/internal/domain/lead"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterLeadHandlers wires the intake conversation onto the bot. The chat
// ID doubles as the lead ID, so a Telegram lead's record and queue entries
// are keyed by the decimal chat ID.
func RegisterLeadHandlers(
	ctx context.Context,
	b *telebot.Bot,
	convService *app.ConversationService,
	baseLogger *logrus.Entry,
) {
	logCtx := baseLogger.WithField("handler_group", "lead_intake")

	b.Handle("/start", func(c telebot.Context) error {
		leadID := strconv.FormatInt(c.Sender().ID, 10)
		name := strings.TrimSpace(c.Sender().FirstName)
		logCtx.WithFields(logrus.Fields{"command": "/start", "lead_id": leadID}).Info("Starting intake conversation")

		msgs, err := convService.StartConversation(ctx, leadID, name)
		if err != nil {
			logCtx.WithError(err).WithField("lead_id", leadID).Error("Failed to start conversation")
			return c.Send("Sorry, something went wrong on our side. Please try again later.")
		}
		return sendAll(c, msgs)
	})

	b.Handle("/help", func(c telebot.Context) error {
		return c.Send("I'll ask you a few quick questions (consent, age, country, interest) and pass your details along. Just answer in the chat. If you go quiet, I'll check in once after a while.\n\n/start - restart the questionnaire\n/help - show this message")
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		leadID := strconv.FormatInt(c.Sender().ID, 10)
		text := c.Text()
		logCtx.WithFields(logrus.Fields{"lead_id": leadID}).Debug("Incoming intake message")

		msgs, err := convService.HandleIncoming(ctx, leadID, text)
		if err != nil {
			logCtx.WithError(err).WithField("lead_id", leadID).Error("Failed to process turn")
			return c.Send("Sorry, something went wrong on our side. Please try again later.")
		}
		return sendAll(c, msgs)
	})
}

func sendAll(c telebot.Context, msgs []conversation.Message) error {
	for _, m := range msgs {
		if err := c.Send(m.Text); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAdminHandlers wires the read-only lead inspection commands.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	adminService *app.AdminService,
	baseLogger *logrus.Entry,
) {
	logCtx := baseLogger.WithField("handler_group", "admin")

	b.Handle("/leads", func(c telebot.Context) error {
		senderID := c.Sender().ID
		leads, err := adminService.ListLeads(ctx, senderID)
		if err != nil {
			if err == app.ErrAdminNotAuthorized {
				return nil // silently ignore non-admins
			}
			logCtx.WithError(err).Error("Failed to list leads for admin")
			return c.Send("Could not list leads right now.")
		}
		if len(leads) == 0 {
			return c.Send("No leads recorded yet.")
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%d lead(s):\n", len(leads)))
		for _, l := range leads {
			sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", l.ID, l.Name, l.Status))
		}
		return c.Send(sb.String())
	})

	b.Handle("/lead", func(c telebot.Context) error {
		senderID := c.Sender().ID
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /lead <lead_id>")
		}

		l, err := adminService.GetLead(ctx, senderID, args[0])
		if err != nil {
			switch err {
			case app.ErrAdminNotAuthorized:
				return nil
			case lead.ErrLeadNotFound:
				return c.Send(fmt.Sprintf("No lead with ID %s.", args[0]))
			default:
				logCtx.WithError(err).Error("Failed to fetch lead for admin")
				return c.Send("Could not fetch that lead right now.")
			}
		}

		return c.Send(fmt.Sprintf(
			"Lead %s\nName: %s\nStatus: %s\nAge: %s\nCountry: %s\nInterest: %s\nLast question at: %s\nFollow-up sent: %s",
			l.ID, l.Name, l.Status, orDash(l.Age), orDash(l.Country), orDash(l.Interest),
			orDash(lead.FormatTimestamp(l.LastAgentMsgAt)), lead.FormatFlag(l.FollowUpSent),
		))
	})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
