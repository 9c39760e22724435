package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// Staff serves the listing and statistics commands.
type Staff struct {
	base
	tickets service.TicketStorer
	blocked service.BlockedStorer
	now     func() time.Time
}

func (w *Staff) OpenTickets(ctx context.Context, a Actor) error {
	return w.list(ctx, a, model.TicketStatusOpen)
}

func (w *Staff) InProgress(ctx context.Context, a Actor) error {
	return w.list(ctx, a, model.TicketStatusInProgress)
}

func (w *Staff) list(ctx context.Context, a Actor, status model.TicketStatus) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	items, err := w.tickets.ListByStatus(ctx, status)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	open := status == model.TicketStatusOpen
	if len(items) == 0 {
		if open {
			w.reply(ctx, a, textNoOpenTickets, nil)
		} else {
			w.reply(ctx, a, textNoInProgress, nil)
		}
		return nil
	}
	if open {
		w.reply(ctx, a, fmt.Sprintf("🟢 New tickets: %d", len(items)), nil)
	} else {
		w.reply(ctx, a, fmt.Sprintf("🟡 Tickets in work: %d", len(items)), nil)
	}
	for i := range items {
		t := &items[i]
		markup := inProgressButtons(t)
		if open {
			markup = openTicketButtons(t)
		}
		w.reply(ctx, a, listCard(t), markup)
	}
	return nil
}

func (w *Staff) Stats(ctx context.Context, a Actor) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	counts, err := w.tickets.Counts(ctx, w.now())
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, statsText(counts), nil)
	return nil
}

func (w *Staff) Ratings(ctx context.Context, a Actor) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	rated, err := w.tickets.ListRated(ctx, ratingsShown)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if len(rated) == 0 {
		w.reply(ctx, a, textNoRatings, nil)
		return nil
	}
	stats, err := w.tickets.RatingStats(ctx)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, ratingStatsText(stats), nil)
	for i := range rated {
		w.reply(ctx, a, ratedCard(&rated[i]), nil)
	}
	return nil
}

func (w *Staff) Blocked(ctx context.Context, a Actor) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	users, err := w.blocked.List(ctx)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if len(users) == 0 {
		w.reply(ctx, a, textNoBlocked, nil)
		return nil
	}
	for i := range users {
		w.reply(ctx, a, blockedCard(&users[i]), unblockButtons(users[i].UserID))
	}
	return nil
}

func (w *Staff) Help(ctx context.Context, a Actor) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	w.reply(ctx, a, textAdminHelp, staffMenu())
	return nil
}
