package telegram

import "gopkg.in/telebot.v3"

// Client abstracts sending outbound messages over Telegram, so the intake
// handlers and the nudge dispatcher stay decoupled from the bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
