// Package workflow implements the helpdesk conversations: ticket intake,
// resolution, rating, blocking and the staff commands.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// Actor is the user behind an interaction and the chat to answer in.
type Actor struct {
	UserID  int64
	ChatID  int64
	Profile model.UserProfile
}

// ProfileLookup resolves what the chat transport knows about a user.
type ProfileLookup interface {
	Profile(ctx context.Context, userID int64) (*model.UserProfile, error)
}

type Deps struct {
	Tracker       *conversation.Tracker
	Engine        *lifecycle.Engine
	Tickets       service.TicketStorer
	Blocked       service.BlockedStorer
	Notifier      notify.Notifier
	Profiles      ProfileLookup
	Events        *kafka.Async
	IsAdmin       func(userID int64) bool
	SupportChatID int64
	Log           *slog.Logger
	Now           func() time.Time
}

// base holds what every workflow needs to talk to the actor.
type base struct {
	tracker  *conversation.Tracker
	notifier notify.Notifier
	isAdmin  func(int64) bool
	log      *slog.Logger
}

func (b *base) reply(ctx context.Context, a Actor, text string, markup *notify.Markup) {
	notify.Best(ctx, b.notifier, b.log, a.ChatID, text, markup)
}

// menu is the reply keyboard an actor returns to after a flow ends.
func (b *base) menu(a Actor) *notify.Markup {
	if b.isAdmin(a.UserID) {
		return staffMenu()
	}
	return mainMenu()
}

// staffOnly replies with a refusal for non-staff actors.
func (b *base) staffOnly(ctx context.Context, a Actor) bool {
	if b.isAdmin(a.UserID) {
		return true
	}
	b.reply(ctx, a, textAdminOnly, nil)
	return false
}

// finisher commits a completed form. Returning an error that matches
// errs.ErrPersistence restores the form so the actor can resend the last
// answer; any other outcome has already been reported to the actor.
type finisher func(ctx context.Context, a Actor, st *conversation.State) error

// Set wires the workflows together and routes form input to them.
type Set struct {
	base
	Intake     *Intake
	Resolution *Resolution
	Rating     *Rating
	Blocking   *Blocking
	Staff      *Staff
	User       *User

	finishers map[string]finisher
}

func New(d Deps) *Set {
	log := logging.OrDefault(d.Log).With("component", "workflow")
	if d.IsAdmin == nil {
		d.IsAdmin = func(int64) bool { return false }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	b := base{tracker: d.Tracker, notifier: d.Notifier, isAdmin: d.IsAdmin, log: log}
	s := &Set{
		base:       b,
		Intake:     &Intake{base: b, engine: d.Engine, blocked: d.Blocked, supportChatID: d.SupportChatID},
		Resolution: &Resolution{base: b, engine: d.Engine},
		Rating:     &Rating{base: b, engine: d.Engine, supportChatID: d.SupportChatID, pending: newPendingPrompts()},
		Blocking:   &Blocking{base: b, blocked: d.Blocked, profiles: d.Profiles, events: d.Events},
		Staff:      &Staff{base: b, tickets: d.Tickets, blocked: d.Blocked, now: d.Now},
		User:       &User{base: b, tickets: d.Tickets},
	}
	s.finishers = map[string]finisher{
		conversation.FormIntake:      s.Intake.finish,
		conversation.FormCloseLookup: s.Resolution.finishLookup,
		conversation.FormClose:       s.Resolution.finishClose,
		conversation.FormBlock:       s.Blocking.finish,
		conversation.FormFeedback:    s.Rating.finishFeedback,
	}
	d.Engine.SetRatingPrompter(s.Rating)
	return s
}

// ActiveForm returns the actor's active form name, or "" when idle.
func (s *Set) ActiveForm(ctx context.Context, userID int64) (string, error) {
	st, err := s.tracker.Current(ctx, userID)
	if err != nil || st == nil {
		return "", err
	}
	return st.Form, nil
}

// Input consumes text as the next field of the actor's active form.
func (s *Set) Input(ctx context.Context, a Actor, text string) error {
	step, err := s.tracker.SetField(ctx, a.UserID, text)
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		s.reply(ctx, a, fmt.Sprintf("❌ %s\n\n%s", describe(ve), s.prompt(step.Field)), nil)
		return nil
	case errors.Is(err, conversation.ErrNoActiveForm):
		return err
	case err != nil:
		s.log.Error("form input", "user_id", a.UserID, "error", err)
		s.reply(ctx, a, textRetry, nil)
		return err
	}
	if !step.Done {
		s.reply(ctx, a, s.prompt(step.Next), nil)
		return nil
	}

	st, err := s.tracker.Complete(ctx, a.UserID)
	if err != nil {
		s.log.Error("complete form", "user_id", a.UserID, "error", err)
		s.reply(ctx, a, textRetry, nil)
		return err
	}
	fin, ok := s.finishers[st.Form]
	if !ok {
		return fmt.Errorf("%w: %q", conversation.ErrUnknownForm, st.Form)
	}
	if err := fin(ctx, a, st); err != nil {
		if errors.Is(err, errs.ErrPersistence) {
			if rerr := s.tracker.Restore(ctx, a.UserID, st); rerr != nil {
				s.log.Error("restore form", "user_id", a.UserID, "error", rerr)
			}
			s.reply(ctx, a, textRetry, nil)
		}
		return err
	}
	return nil
}

// Cancel discards the actor's active form. Cancelling the feedback step
// keeps the rating that was already recorded.
func (s *Set) Cancel(ctx context.Context, a Actor) error {
	st, err := s.tracker.Current(ctx, a.UserID)
	if err != nil {
		s.reply(ctx, a, textRetry, nil)
		return err
	}
	if st == nil {
		s.reply(ctx, a, textNothingActive, s.menu(a))
		return nil
	}
	if _, err := s.tracker.Cancel(ctx, a.UserID); err != nil {
		s.reply(ctx, a, textRetry, nil)
		return err
	}
	text := textCancelled
	if st.Form == conversation.FormFeedback {
		text = textRatingCancelled
	}
	s.reply(ctx, a, text, s.menu(a))
	return nil
}

// SkipFeedback ends the feedback step without a comment. It reports false
// when the actor is not in the feedback step.
func (s *Set) SkipFeedback(ctx context.Context, a Actor) (bool, error) {
	return s.Rating.optOut(ctx, a)
}

func (s *Set) prompt(f conversation.Field) string {
	switch f.Tag {
	case conversation.TagTicketName:
		return textAskFullName
	case conversation.TagTicketRoom:
		return textAskRoom
	case conversation.TagTicketProblem:
		return textAskProblem
	case conversation.TagCloseTicketID:
		return textAskTicketID
	case conversation.TagCloserName:
		return textAskCloser
	case conversation.TagCloseResponse:
		return textAskResponse
	case conversation.TagBlockReason:
		return textAskReason
	case conversation.TagFeedback:
		return textAskFeedback
	}
	return ""
}

func describe(ve *errs.ValidationError) string {
	switch {
	case ve.Reason == conversation.ReasonEmpty:
		return "This field cannot be empty."
	case ve.Reason == conversation.ReasonTooLong:
		return "That answer is too long, please shorten it."
	case ve.Field == conversation.FieldFullName:
		return "Please enter your first and last name separated by a space."
	case ve.Field == conversation.FieldProblem:
		return fmt.Sprintf("The description is too short, please use at least %d characters.", conversation.MinProblemLength)
	case ve.Field == conversation.FieldTicketID:
		return "That is not a valid ticket number."
	}
	return "This field cannot be empty."
}
