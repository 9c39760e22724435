package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
)

type claimResult int

const (
	claimed claimResult = iota
	notPending
	notRequester
)

// pendingPrompts remembers which rating prompts are still answerable and
// by whom. An entry is removed by the first rate or skip.
type pendingPrompts struct {
	mu       sync.Mutex
	byTicket map[uint64]int64
}

func newPendingPrompts() *pendingPrompts {
	return &pendingPrompts{byTicket: make(map[uint64]int64)}
}

func (p *pendingPrompts) add(ticketID uint64, requesterID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byTicket[ticketID] = requesterID
}

func (p *pendingPrompts) remove(ticketID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byTicket, ticketID)
}

func (p *pendingPrompts) claim(ticketID uint64, userID int64) claimResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	requester, ok := p.byTicket[ticketID]
	switch {
	case !ok:
		return notPending
	case requester != userID:
		return notRequester
	}
	delete(p.byTicket, ticketID)
	return claimed
}

// Rating runs the post-closure rating and feedback conversation.
type Rating struct {
	base
	engine        *lifecycle.Engine
	supportChatID int64
	pending       *pendingPrompts
}

var _ lifecycle.RatingPrompter = (*Rating)(nil)

// Prompt offers the requester of a closed ticket ratings 1..5 or skip.
func (w *Rating) Prompt(ctx context.Context, t *model.Ticket) {
	w.pending.add(t.ID, t.RequesterID)
	if !notify.Best(ctx, w.notifier, w.log, t.RequesterID, ratingPromptText(t.ID), ratingButtons(t.ID)) {
		w.pending.remove(t.ID)
		return
	}
	w.log.Info("rating requested", "ticket_id", t.ID, "requester_id", t.RequesterID)
}

// Rate records the actor's rating and opens the optional feedback step.
func (w *Rating) Rate(ctx context.Context, a Actor, ticketID uint64, rating int) error {
	if !w.claim(ctx, a, ticketID) {
		return nil
	}
	t, err := w.engine.RecordRating(ctx, ticketID, rating, nil)
	if err != nil {
		if errors.Is(err, errs.ErrPersistence) {
			w.pending.add(ticketID, a.UserID)
			w.reply(ctx, a, textRetry, nil)
			return err
		}
		w.log.Warn("rating rejected", "ticket_id", ticketID, "error", err)
		w.reply(ctx, a, textRatingInactive, nil)
		return nil
	}
	if w.supportChatID != 0 {
		notify.Best(ctx, w.notifier, w.log, w.supportChatID, ratingStaffText(t, rating), nil)
	}
	corr := conversation.Correlation{TicketID: ticketID, Rating: rating}
	if _, err := w.tracker.Begin(ctx, a.UserID, conversation.FormFeedback, corr); err != nil {
		w.log.Error("begin feedback", "ticket_id", ticketID, "error", err)
		w.reply(ctx, a, textRatingThanks, w.menu(a))
		return nil
	}
	w.reply(ctx, a, textAskFeedback, feedbackMenu())
	return nil
}

// Skip ends the flow without recording a rating.
func (w *Rating) Skip(ctx context.Context, a Actor, ticketID uint64) error {
	if !w.claim(ctx, a, ticketID) {
		return nil
	}
	w.log.Info("rating skipped", "ticket_id", ticketID)
	w.reply(ctx, a, textRatingSkipped, w.menu(a))
	return nil
}

func (w *Rating) claim(ctx context.Context, a Actor, ticketID uint64) bool {
	switch w.pending.claim(ticketID, a.UserID) {
	case notPending:
		w.reply(ctx, a, textRatingInactive, nil)
		return false
	case notRequester:
		w.log.Warn("rating by non-requester", "ticket_id", ticketID, "user_id", a.UserID)
		w.reply(ctx, a, "❌ Only the author of the ticket can rate it.", nil)
		return false
	}
	return true
}

func (w *Rating) finishFeedback(ctx context.Context, a Actor, st *conversation.State) error {
	feedback := st.Answers[conversation.FieldFeedback]
	rating := st.Correlation.Rating
	t, err := w.engine.RecordRating(ctx, st.Correlation.TicketID, rating, &feedback)
	if errors.Is(err, errs.ErrPersistence) {
		return err
	}
	if err != nil {
		w.log.Warn("feedback rejected", "ticket_id", st.Correlation.TicketID, "error", err)
		w.reply(ctx, a, textFailed, w.menu(a))
		return nil
	}
	if w.supportChatID != 0 {
		notify.Best(ctx, w.notifier, w.log, w.supportChatID, feedbackStaffText(t, rating, feedback), nil)
	}
	w.reply(ctx, a, textFeedbackThanks, w.menu(a))
	return nil
}

// optOut ends the feedback step with the rating kept and no comment.
func (w *Rating) optOut(ctx context.Context, a Actor) (bool, error) {
	st, err := w.tracker.Current(ctx, a.UserID)
	if err != nil {
		return false, err
	}
	if st == nil || st.Form != conversation.FormFeedback {
		return false, nil
	}
	if _, err := w.tracker.Cancel(ctx, a.UserID); err != nil {
		w.reply(ctx, a, textRetry, nil)
		return true, err
	}
	w.reply(ctx, a, textRatingThanks, w.menu(a))
	return true, nil
}
