// Package bot routes inbound chat interactions to the helpdesk workflows.
package bot

import (
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

type Kind string

const (
	KindText    Kind = "text"
	KindCommand Kind = "command"
	KindButton  Kind = "button"
)

// Interaction is one inbound event from a user: a text message, a slash
// command or a button press. Transports decode into it once at the boundary.
type Interaction struct {
	UserID  int64
	ChatID  int64
	Profile model.UserProfile
	Kind    Kind
	Text    string
	Command string
	Args    string
	Action  action.Action
}

// ParseText builds a text or command interaction from a raw message.
// "/take_to_work@helpdesk_bot 5" becomes command "take_to_work", args "5".
func ParseText(userID, chatID int64, text string) Interaction {
	in := Interaction{UserID: userID, ChatID: chatID, Kind: KindText, Text: strings.TrimSpace(text)}
	if !strings.HasPrefix(in.Text, "/") {
		return in
	}
	fields := strings.Fields(in.Text)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	if cmd == "" {
		return in
	}
	in.Kind = KindCommand
	in.Command = cmd
	in.Args = strings.TrimSpace(strings.TrimPrefix(in.Text, fields[0]))
	return in
}

// Button builds a button interaction from an already decoded action.
func Button(userID, chatID int64, a action.Action) Interaction {
	return Interaction{UserID: userID, ChatID: chatID, Kind: KindButton, Action: a}
}
