// Package lifecycle enforces the ticket status machine
// open -> in_progress -> closed and fires the side effects of each move.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// transitions maps each status to the only status it may move to.
var transitions = map[model.TicketStatus]model.TicketStatus{
	model.TicketStatusOpen:       model.TicketStatusInProgress,
	model.TicketStatusInProgress: model.TicketStatusClosed,
}

// CanTransition reports whether a ticket in status from may move to to.
func CanTransition(from, to model.TicketStatus) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// RatingPrompter asks a ticket's requester to rate the work.
type RatingPrompter interface {
	Prompt(ctx context.Context, t *model.Ticket)
}

type Engine struct {
	tickets  service.TicketStorer
	notifier notify.Notifier
	events   *kafka.Async
	rating   RatingPrompter
	log      *slog.Logger
	now      func() time.Time
}

func NewEngine(tickets service.TicketStorer, notifier notify.Notifier, events *kafka.Async, log *slog.Logger) *Engine {
	return &Engine{
		tickets:  tickets,
		notifier: notifier,
		events:   events,
		log:      logging.OrDefault(log).With("component", "lifecycle"),
		now:      time.Now,
	}
}

// SetRatingPrompter installs the step run after a ticket closes.
func (e *Engine) SetRatingPrompter(p RatingPrompter) { e.rating = p }

// Open stores a new ticket in status open.
func (e *Engine) Open(ctx context.Context, t *model.Ticket) error {
	t.Status = model.TicketStatusOpen
	if err := e.tickets.Create(ctx, t); err != nil {
		e.log.Error("create ticket", "requester_id", t.RequesterID, "error", err)
		return err
	}
	e.log.Info("ticket created", "ticket_id", t.ID, "requester_id", t.RequesterID)
	e.publish(kafka.EventTicketCreated, t)
	return nil
}

func (e *Engine) Get(ctx context.Context, id uint64) (*model.Ticket, error) {
	return e.tickets.GetByID(ctx, id)
}

// TakeToWork moves an open ticket to in_progress and tells the requester.
func (e *Engine) TakeToWork(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := e.transition(ctx, id, model.TicketStatusInProgress, nil)
	if err != nil {
		return nil, err
	}
	e.log.Info("ticket taken", "ticket_id", t.ID)
	notify.Best(ctx, e.notifier, e.log, t.RequesterID, TakenMessage(t), nil)
	e.publish(kafka.EventTicketInProgress, t)
	return t, nil
}

// Close moves an in_progress ticket to closed, tells the requester and
// asks them for a rating. response may be nil.
func (e *Engine) Close(ctx context.Context, id uint64, closer string, response *string) (*model.Ticket, error) {
	closer = strings.TrimSpace(closer)
	if closer == "" {
		return nil, &errs.ValidationError{Field: "closer_name", Reason: "must not be empty"}
	}
	changes := map[string]interface{}{
		"closed_by":      closer,
		"closed_at":      e.now(),
		"admin_response": response,
	}
	t, err := e.transition(ctx, id, model.TicketStatusClosed, changes)
	if err != nil {
		return nil, err
	}
	e.log.Info("ticket closed", "ticket_id", t.ID, "closed_by", closer)
	notify.Best(ctx, e.notifier, e.log, t.RequesterID, ClosedMessage(t), nil)
	e.publish(kafka.EventTicketClosed, t)
	if e.rating != nil {
		e.rating.Prompt(ctx, t)
	}
	return t, nil
}

// RecordRating attaches a rating and optional feedback to a closed ticket,
// replacing any earlier rating.
func (e *Engine) RecordRating(ctx context.Context, id uint64, rating int, feedback *string) (*model.Ticket, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, &errs.ValidationError{Field: "rating", Reason: fmt.Sprintf("must be between %d and %d", model.MinRating, model.MaxRating)}
	}
	t, err := e.tickets.UpdateRating(ctx, id, rating, feedback)
	if err != nil {
		return nil, err
	}
	event := kafka.EventTicketRated
	if feedback != nil {
		event = kafka.EventTicketFeedback
	}
	e.log.Info("ticket rated", "ticket_id", t.ID, "rating", rating, "with_feedback", feedback != nil)
	e.publish(event, t)
	return t, nil
}

// transition re-reads the ticket, checks the move against the table and
// commits it with a compare-and-swap on the observed status.
func (e *Engine) transition(ctx context.Context, id uint64, to model.TicketStatus, changes map[string]interface{}) (*model.Ticket, error) {
	cur, err := e.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		return nil, &errs.TransitionError{TicketID: id, Current: cur.Status, Target: to}
	}
	t, err := e.tickets.Transition(ctx, id, cur.Status, to, changes)
	if err != nil {
		var te *errs.TransitionError
		if errors.As(err, &te) {
			e.log.Info("transition lost race", "ticket_id", id, "current", te.Current, "target", to)
		} else if errors.Is(err, errs.ErrPersistence) {
			e.log.Error("transition failed", "ticket_id", id, "error", err)
		}
		return nil, err
	}
	return t, nil
}

func (e *Engine) publish(event string, t *model.Ticket) {
	e.events.Publish(event, kafka.TicketKey(t.ID), kafka.TicketPayload(t))
}
