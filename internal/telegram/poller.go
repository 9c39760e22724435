package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/bot"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Sink receives decoded interactions. It must not block for long: the
// poller calls it inline for every update.
type Sink func(in bot.Interaction)

// Run long-polls getUpdates until ctx is done.
func (c *Client) Run(ctx context.Context, timeout time.Duration, sink Sink) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(timeout / time.Second)
	updates := c.api.GetUpdatesChan(u)
	c.log.Info("polling started", "timeout", timeout)
	defer c.log.Info("polling stopped")
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if in, ok := c.interaction(upd); ok {
				sink(in)
			}
		}
	}
}

// interaction converts an update and acknowledges button presses. Rating
// keyboards are removed once pressed.
func (c *Client) interaction(upd tgbotapi.Update) (bot.Interaction, bool) {
	switch {
	case upd.CallbackQuery != nil:
		q := upd.CallbackQuery
		if q.From == nil {
			return bot.Interaction{}, false
		}
		a, err := action.Decode(q.Data)
		if err != nil {
			c.log.Warn("bad callback data", "data", q.Data, "user_id", q.From.ID)
			c.request(tgbotapi.NewCallback(q.ID, "Unknown action"))
			return bot.Interaction{}, false
		}
		c.request(tgbotapi.NewCallback(q.ID, ""))
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
			if isRating(a) {
				c.request(tgbotapi.NewEditMessageReplyMarkup(chatID, q.Message.MessageID,
					tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}))
			}
		}
		in := bot.Button(q.From.ID, chatID, a)
		in.Profile = profile(q.From)
		return in, true

	case upd.Message != nil:
		m := upd.Message
		if m.From == nil || m.Chat == nil || m.Text == "" {
			return bot.Interaction{}, false
		}
		in := bot.ParseText(m.From.ID, m.Chat.ID, m.Text)
		in.Profile = profile(m.From)
		return in, true
	}
	return bot.Interaction{}, false
}

func (c *Client) request(cfg tgbotapi.Chattable) {
	if _, err := c.api.Request(cfg); err != nil {
		c.log.Warn("request failed", "method", fmt.Sprintf("%T", cfg), "error", err)
	}
}

func isRating(a action.Action) bool {
	switch a.(type) {
	case action.RateTicket, action.SkipRating:
		return true
	}
	return false
}

func profile(u *tgbotapi.User) model.UserProfile {
	return model.UserProfile{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}
