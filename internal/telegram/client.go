// Package telegram connects the helpdesk to the Telegram Bot API: outbound
// messages, user profile lookups and the update poller.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
)

// botAPI is the part of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client implements notify.Notifier and workflow.ProfileLookup over the Bot API.
type Client struct {
	api botAPI
	log *slog.Logger
}

var _ notify.Notifier = (*Client)(nil)

// NewClient авторизуется по токену бота (getMe).
func NewClient(token string, log *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	c := newClient(api, log)
	c.log.Info("authorized", "bot", api.Self.UserName)
	return c, nil
}

func newClient(api botAPI, log *slog.Logger) *Client {
	return &Client{api: api, log: logging.OrDefault(log).With("component", "telegram")}
}

// Send delivers text with optional keyboards. Telegram allows one markup per
// message, so inline buttons take precedence over a menu.
func (c *Client) Send(ctx context.Context, recipientID int64, text string, markup *notify.Markup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(recipientID, text)
	if rm := replyMarkup(markup); rm != nil {
		msg.ReplyMarkup = rm
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%w: telegram send to %d: %v", errs.ErrNotification, recipientID, err)
	}
	return nil
}

// Profile looks a user up with getChat on their private chat.
func (c *Client) Profile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: userID}})
	if err != nil {
		return nil, fmt.Errorf("telegram: get chat %d: %w", userID, err)
	}
	return &model.UserProfile{
		ID:        chat.ID,
		Username:  chat.UserName,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
	}, nil
}

func replyMarkup(m *notify.Markup) interface{} {
	switch {
	case m == nil:
		return nil
	case len(m.Inline) > 0:
		return inlineKeyboard(m.Inline)
	case len(m.Menu) > 0:
		return menuKeyboard(m.Menu)
	}
	return nil
}

func inlineKeyboard(rows [][]notify.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, action.Encode(b.Action)))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func menuKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	out := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		out = append(out, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(out...)
	kb.ResizeKeyboard = true
	return kb
}
