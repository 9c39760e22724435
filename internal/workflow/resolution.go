package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Resolution handles taking tickets into work and closing them.
type Resolution struct {
	base
	engine *lifecycle.Engine
}

// TakeToWork moves an open ticket into work.
func (w *Resolution) TakeToWork(ctx context.Context, a Actor, id uint64) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	t, err := w.engine.TakeToWork(ctx, id)
	if err != nil {
		return w.report(ctx, a, id, err)
	}
	w.reply(ctx, a, fmt.Sprintf("✅ Ticket #%d taken into work!\n\n%s", t.ID, listCard(t)), inProgressButtons(t))
	return nil
}

// TakeCommand handles "/take_to_work <id>".
func (w *Resolution) TakeCommand(ctx context.Context, a Actor, args string) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	id, ok := parseTicketArg(args)
	if !ok {
		w.reply(ctx, a, textTakeUsage, nil)
		return nil
	}
	return w.TakeToWork(ctx, a, id)
}

// StartClose begins the close form for a ticket that is in work.
func (w *Resolution) StartClose(ctx context.Context, a Actor, id uint64) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	t, err := w.engine.Get(ctx, id)
	if err != nil {
		return w.report(ctx, a, id, err)
	}
	if !lifecycle.CanTransition(t.Status, model.TicketStatusClosed) {
		return w.report(ctx, a, id, &errs.TransitionError{TicketID: id, Current: t.Status, Target: model.TicketStatusClosed})
	}
	return w.beginClose(ctx, a, t)
}

// StartCloseLookup asks for the number of the ticket to close.
func (w *Resolution) StartCloseLookup(ctx context.Context, a Actor) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	if _, err := w.tracker.Begin(ctx, a.UserID, conversation.FormCloseLookup, conversation.Correlation{}); err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, textAskTicketID, cancelMenu())
	return nil
}

func (w *Resolution) beginClose(ctx context.Context, a Actor, t *model.Ticket) error {
	if _, err := w.tracker.Begin(ctx, a.UserID, conversation.FormClose, conversation.Correlation{TicketID: t.ID}); err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, fmt.Sprintf("Ticket #%d from %s\n\n%s", t.ID, t.FullName, textAskCloser), cancelMenu())
	return nil
}

func (w *Resolution) finishLookup(ctx context.Context, a Actor, st *conversation.State) error {
	id, _ := strconv.ParseUint(st.Answers[conversation.FieldTicketID], 10, 64)
	t, err := w.engine.Get(ctx, id)
	if errors.Is(err, errs.ErrPersistence) {
		return err
	}
	if err != nil {
		_ = w.report(ctx, a, id, err)
		return nil
	}
	if !lifecycle.CanTransition(t.Status, model.TicketStatusClosed) {
		_ = w.report(ctx, a, id, &errs.TransitionError{TicketID: id, Current: t.Status, Target: model.TicketStatusClosed})
		return nil
	}
	return w.beginClose(ctx, a, t)
}

func (w *Resolution) finishClose(ctx context.Context, a Actor, st *conversation.State) error {
	id := st.Correlation.TicketID
	var response *string
	if r := st.Answers[conversation.FieldResponse]; !isNone(r) {
		response = &r
	}
	t, err := w.engine.Close(ctx, id, st.Answers[conversation.FieldCloser], response)
	if errors.Is(err, errs.ErrPersistence) {
		return err
	}
	if err != nil {
		_ = w.report(ctx, a, id, err)
		return nil
	}
	w.reply(ctx, a, fmt.Sprintf("✅ Ticket #%d closed! The requester was asked for a rating.", t.ID), w.menu(a))
	return nil
}

// report tells the actor why an operation on ticket id failed and returns
// err for logging when it is not an expected outcome.
func (w *Resolution) report(ctx context.Context, a Actor, id uint64, err error) error {
	var te *errs.TransitionError
	switch {
	case errors.Is(err, errs.ErrTicketNotFound):
		w.reply(ctx, a, fmt.Sprintf("❌ Ticket #%d not found!", id), nil)
		return nil
	case errors.As(err, &te):
		w.reply(ctx, a, transitionText(te), nil)
		return nil
	}
	w.log.Error("ticket operation", "ticket_id", id, "error", err)
	w.reply(ctx, a, textFailed, nil)
	return err
}

func transitionText(te *errs.TransitionError) string {
	switch {
	case te.Current == model.TicketStatusClosed:
		return fmt.Sprintf("❌ Ticket #%d is already closed!", te.TicketID)
	case te.Target == model.TicketStatusClosed && te.Current == model.TicketStatusOpen:
		return fmt.Sprintf("❌ Take ticket #%d into work first!", te.TicketID)
	case te.Current == model.TicketStatusInProgress:
		return fmt.Sprintf("❌ Ticket #%d is already in work!", te.TicketID)
	}
	return fmt.Sprintf("❌ Ticket #%d cannot move from %s to %s.", te.TicketID, te.Current, te.Target)
}

func parseTicketArg(args string) (uint64, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := conversation.TicketID(conversation.FieldTicketID, fields[0])
	if err != nil {
		return 0, false
	}
	id, _ := strconv.ParseUint(v, 10, 64)
	return id, true
}

// isNone reports whether a close response means "no response".
func isNone(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no", "-", "нет":
		return true
	}
	return false
}
