package workflow

import (
	"context"

	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// Intake collects name, room and problem and files a ticket.
type Intake struct {
	base
	engine        *lifecycle.Engine
	blocked       service.BlockedStorer
	supportChatID int64
}

// Start begins the intake form unless the actor is blocked.
func (w *Intake) Start(ctx context.Context, a Actor) error {
	blocked, err := w.blocked.IsBlocked(ctx, a.UserID)
	if err != nil {
		w.log.Error("check blocked", "user_id", a.UserID, "error", err)
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if blocked {
		w.log.Info("blocked user refused", "user_id", a.UserID)
		w.reply(ctx, a, textBlockedRefusal, nil)
		return nil
	}
	if _, err := w.tracker.Begin(ctx, a.UserID, conversation.FormIntake, conversation.Correlation{}); err != nil {
		w.log.Error("begin intake", "user_id", a.UserID, "error", err)
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, textAskFullName, cancelMenu())
	return nil
}

// finish stores the ticket and tells staff about it. A staff channel
// failure only softens the requester's confirmation.
func (w *Intake) finish(ctx context.Context, a Actor, st *conversation.State) error {
	blocked, err := w.blocked.IsBlocked(ctx, a.UserID)
	if err != nil {
		return err
	}
	if blocked {
		w.reply(ctx, a, textBlockedRefusal, w.menu(a))
		return nil
	}
	t := &model.Ticket{
		RequesterID: a.UserID,
		FullName:    st.Answers[conversation.FieldFullName],
		Room:        st.Answers[conversation.FieldRoom],
		Problem:     st.Answers[conversation.FieldProblem],
	}
	if err := w.engine.Open(ctx, t); err != nil {
		return err
	}

	delivered := false
	if w.supportChatID != 0 {
		delivered = notify.Best(ctx, w.notifier, w.log, w.supportChatID, newTicketCard(t), openTicketButtons(t))
	} else {
		w.log.Warn("support chat not configured", "ticket_id", t.ID)
	}
	text := createdText(t.ID)
	if !delivered {
		text = createdStaffDelayedText(t.ID)
	}
	w.reply(ctx, a, text, w.menu(a))
	return nil
}
