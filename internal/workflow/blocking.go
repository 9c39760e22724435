package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// Blocking bars users from filing tickets and lifts such blocks.
type Blocking struct {
	base
	blocked  service.BlockedStorer
	profiles ProfileLookup
	events   *kafka.Async
}

// Start asks for a block reason. ticketID is audit context and may be 0.
func (w *Blocking) Start(ctx context.Context, a Actor, userID int64, ticketID uint64) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	blocked, err := w.blocked.IsBlocked(ctx, userID)
	if err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if blocked {
		w.reply(ctx, a, fmt.Sprintf("❌ User %d is already blocked!", userID), nil)
		return nil
	}
	corr := conversation.Correlation{UserID: userID, TicketID: ticketID}
	if _, err := w.tracker.Begin(ctx, a.UserID, conversation.FormBlock, corr); err != nil {
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	w.reply(ctx, a, fmt.Sprintf("🚫 Blocking a user\n\n👤 User: %s\n🆔 ID: %d\n\n%s",
		userLabel(w.profile(ctx, userID), userID), userID, textAskReason), cancelMenu())
	return nil
}

func (w *Blocking) finish(ctx context.Context, a Actor, st *conversation.State) error {
	userID := st.Correlation.UserID
	reason := st.Answers[conversation.FieldReason]
	rec := &model.BlockedUser{UserID: userID, BlockedBy: a.UserID, Reason: &reason}
	if p := w.profile(ctx, userID); p != nil {
		rec.Username = optional(p.Username)
		rec.FirstName = optional(p.FirstName)
		rec.LastName = optional(p.LastName)
	}
	if err := w.blocked.Block(ctx, rec); err != nil {
		return err
	}
	w.log.Info("user blocked", "user_id", userID, "blocked_by", a.UserID, "ticket_id", st.Correlation.TicketID)
	notify.Best(ctx, w.notifier, w.log, userID, blockedNotice(reason), nil)
	w.events.Publish(kafka.EventUserBlocked, kafka.UserKey(userID), map[string]interface{}{
		"user_id":    userID,
		"blocked_by": a.UserID,
		"reason":     reason,
		"ticket_id":  st.Correlation.TicketID,
		"blocked_at": rec.BlockedAt,
	})
	w.reply(ctx, a, fmt.Sprintf("✅ User ID: %d blocked!\n📋 Reason: %s", userID, reason), w.menu(a))
	return nil
}

// Unblock removes a block. Unblocking a user who is not blocked is reported,
// not treated as an error.
func (w *Blocking) Unblock(ctx context.Context, a Actor, userID int64) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	removed, err := w.blocked.Unblock(ctx, userID)
	if err != nil {
		w.log.Error("unblock", "user_id", userID, "error", err)
		w.reply(ctx, a, textFailed, nil)
		return err
	}
	if !removed {
		w.reply(ctx, a, fmt.Sprintf("❌ User %d is not blocked!", userID), nil)
		return nil
	}
	w.log.Info("user unblocked", "user_id", userID, "by", a.UserID)
	w.reply(ctx, a, fmt.Sprintf("🔓 User %d unblocked!", userID), nil)
	notify.Best(ctx, w.notifier, w.log, userID, textUnblockedNotice, nil)
	w.events.Publish(kafka.EventUserUnblocked, kafka.UserKey(userID), map[string]interface{}{
		"user_id":      userID,
		"unblocked_by": a.UserID,
	})
	return nil
}

// UnblockCommand handles "/unblock <user id>".
func (w *Blocking) UnblockCommand(ctx context.Context, a Actor, args string) error {
	if !w.staffOnly(ctx, a) {
		return nil
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		w.reply(ctx, a, textUnblockUsage, nil)
		return nil
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		w.reply(ctx, a, textUnblockUsage, nil)
		return nil
	}
	return w.Unblock(ctx, a, userID)
}

// profile is a best-effort lookup; nil when unknown.
func (w *Blocking) profile(ctx context.Context, userID int64) *model.UserProfile {
	if w.profiles == nil {
		return nil
	}
	p, err := w.profiles.Profile(ctx, userID)
	if err != nil {
		w.log.Warn("profile lookup", "user_id", userID, "error", err)
		return nil
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
