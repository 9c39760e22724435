package workflow

import (
	"context"

	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// User serves the requester-facing commands outside of any form.
type User struct {
	base
	tickets service.TicketStorer
}

func (w *User) Start(ctx context.Context, a Actor) error {
	w.reply(ctx, a, textWelcome, w.menu(a))
	return nil
}

func (w *User) Help(ctx context.Context, a Actor) error {
	w.reply(ctx, a, textHelp, w.menu(a))
	return nil
}

// MyTickets lists the actor's tickets, newest first.
func (w *User) MyTickets(ctx context.Context, a Actor) error {
	items, err := w.tickets.ListByUser(ctx, a.UserID)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if len(items) == 0 {
		w.reply(ctx, a, textNoTickets, nil)
		return nil
	}
	for i := range items {
		w.reply(ctx, a, myTicketCard(&items[i]), nil)
	}
	return nil
}

// Hint answers input that matches nothing.
func (w *User) Hint(ctx context.Context, a Actor) error {
	w.reply(ctx, a, textHint, w.menu(a))
	return nil
}
