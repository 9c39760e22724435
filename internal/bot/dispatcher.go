package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/workflow"
)

type commandFunc func(ctx context.Context, a workflow.Actor, args string) error

// Dispatcher routes interactions to workflows. Per-user ordering is the
// caller's job; see Sequencer.
type Dispatcher struct {
	set      *workflow.Set
	commands map[string]commandFunc
	log      *slog.Logger
}

func NewDispatcher(set *workflow.Set, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{set: set, log: logging.OrDefault(log).With("component", "bot")}
	noArgs := func(f func(context.Context, workflow.Actor) error) commandFunc {
		return func(ctx context.Context, a workflow.Actor, _ string) error { return f(ctx, a) }
	}
	d.commands = map[string]commandFunc{
		workflow.CmdStart:       noArgs(set.User.Start),
		workflow.CmdHelp:        noArgs(set.User.Help),
		workflow.CmdNewTicket:   noArgs(set.Intake.Start),
		workflow.CmdMyTickets:   noArgs(set.User.MyTickets),
		workflow.CmdTakeToWork:  set.Resolution.TakeCommand,
		workflow.CmdCloseTicket: noArgs(set.Resolution.StartCloseLookup),
		workflow.CmdOpenTickets: noArgs(set.Staff.OpenTickets),
		workflow.CmdInProgress:  noArgs(set.Staff.InProgress),
		workflow.CmdStats:       noArgs(set.Staff.Stats),
		workflow.CmdRatings:     noArgs(set.Staff.Ratings),
		workflow.CmdBlocked:     noArgs(set.Staff.Blocked),
		workflow.CmdUnblock:     set.Blocking.UnblockCommand,
		workflow.CmdAdminHelp:   noArgs(set.Staff.Help),
	}
	return d
}

// Handle runs one interaction to completion. Panics are recovered and
// returned as errors so one bad update cannot stop the poller.
func (d *Dispatcher) Handle(ctx context.Context, in Interaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in handler", "user_id", in.UserID, "panic", r)
			err = fmt.Errorf("bot: panic: %v", r)
		}
	}()
	a := workflow.Actor{UserID: in.UserID, ChatID: in.ChatID, Profile: in.Profile}
	if a.ChatID == 0 {
		a.ChatID = in.UserID
	}
	err = d.route(ctx, a, in)
	if err != nil {
		d.log.Warn("interaction failed", "user_id", in.UserID, "kind", in.Kind, "error", err)
	}
	return err
}

func (d *Dispatcher) route(ctx context.Context, a workflow.Actor, in Interaction) error {
	switch in.Kind {
	case KindButton:
		return d.button(ctx, a, in.Action)
	case KindCommand:
		if !d.known(in.Command) {
			// "/dev/sda1 is full" is an answer while a form waits for one.
			form, err := d.set.ActiveForm(ctx, a.UserID)
			if err != nil {
				return err
			}
			if form != "" {
				return d.set.Input(ctx, a, in.Text)
			}
		}
		return d.command(ctx, a, in.Command, in.Args)
	}

	switch in.Text {
	case workflow.LabelCancel:
		return d.set.Cancel(ctx, a)
	case workflow.LabelNoFeedback:
		if ok, err := d.set.SkipFeedback(ctx, a); ok || err != nil {
			return err
		}
	}
	form, err := d.set.ActiveForm(ctx, a.UserID)
	if err != nil {
		return err
	}
	if form != "" {
		return d.set.Input(ctx, a, in.Text)
	}
	if cmd, ok := workflow.MenuAliases[in.Text]; ok {
		return d.command(ctx, a, cmd, "")
	}
	return d.set.User.Hint(ctx, a)
}

func (d *Dispatcher) known(cmd string) bool {
	if cmd == workflow.CmdCancel || cmd == workflow.CmdSkip {
		return true
	}
	_, ok := d.commands[cmd]
	return ok
}

func (d *Dispatcher) command(ctx context.Context, a workflow.Actor, cmd, args string) error {
	switch cmd {
	case workflow.CmdCancel:
		return d.set.Cancel(ctx, a)
	case workflow.CmdSkip:
		ok, err := d.set.SkipFeedback(ctx, a)
		if ok || err != nil {
			return err
		}
		return d.set.User.Hint(ctx, a)
	}
	f, ok := d.commands[cmd]
	if !ok {
		return d.set.User.Hint(ctx, a)
	}
	return f(ctx, a, args)
}

var errUnknownAction = errors.New("bot: unknown action")

func (d *Dispatcher) button(ctx context.Context, a workflow.Actor, act action.Action) error {
	switch v := act.(type) {
	case action.TakeToWork:
		return d.set.Resolution.TakeToWork(ctx, a, v.TicketID)
	case action.CloseTicket:
		return d.set.Resolution.StartClose(ctx, a, v.TicketID)
	case action.BlockUser:
		return d.set.Blocking.Start(ctx, a, v.UserID, v.TicketID)
	case action.UnblockUser:
		return d.set.Blocking.Unblock(ctx, a, v.UserID)
	case action.RateTicket:
		return d.set.Rating.Rate(ctx, a, v.TicketID, v.Rating)
	case action.SkipRating:
		return d.set.Rating.Skip(ctx, a, v.TicketID)
	}
	return fmt.Errorf("%w: %T", errUnknownAction, act)
}
