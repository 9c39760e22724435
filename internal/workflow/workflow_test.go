package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/conversation"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/lifecycle"
	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	staffID   int64 = 1
	supportID int64 = -100
	userID    int64 = 500
)

type profiles map[int64]model.UserProfile

func (p profiles) Profile(_ context.Context, id int64) (*model.UserProfile, error) {
	if pr, ok := p[id]; ok {
		return &pr, nil
	}
	return nil, errors.New("chat not found")
}

// failingTickets wraps a store and fails Create on demand.
type failingTickets struct {
	service.TicketStorer
	failCreate bool
}

func (f *failingTickets) Create(ctx context.Context, t *model.Ticket) error {
	if f.failCreate {
		return errs.Persistence("create ticket", errors.New("disk full"))
	}
	return f.TicketStorer.Create(ctx, t)
}

type fixture struct {
	set     *Set
	rec     *notify.Recorder
	tickets *failingTickets
	blocked *service.BlockedService
	tracker *conversation.Tracker
	staff   Actor
	user    Actor
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		rec:     notify.NewRecorder(),
		tickets: &failingTickets{TicketStorer: service.NewTicketService(db)},
		blocked: service.NewBlockedService(db),
		tracker: conversation.NewTracker(conversation.NewMemoryStore(), conversation.Forms(strict)),
		staff:   Actor{UserID: staffID, ChatID: staffID},
		user:    Actor{UserID: userID, ChatID: userID},
	}
	log := logging.Discard()
	events := kafka.NewAsync(nil)
	engine := lifecycle.NewEngine(f.tickets, f.rec, events, log)
	f.set = New(Deps{
		Tracker:       f.tracker,
		Engine:        engine,
		Tickets:       f.tickets,
		Blocked:       f.blocked,
		Notifier:      f.rec,
		Profiles:      profiles{userID: {ID: userID, Username: "ivan", FirstName: "Ivan"}},
		Events:        events,
		IsAdmin:       func(id int64) bool { return id == staffID },
		SupportChatID: supportID,
		Log:           log,
	})
	return f
}

func (f *fixture) input(t *testing.T, a Actor, text string) {
	t.Helper()
	if err := f.set.Input(context.Background(), a, text); err != nil {
		t.Fatalf("input %q: %v", text, err)
	}
}

func (f *fixture) last(t *testing.T, id int64) notify.Message {
	t.Helper()
	m, ok := f.rec.Last(id)
	if !ok {
		t.Fatalf("no message to %d", id)
	}
	return m
}

func (f *fixture) fileTicket(t *testing.T) *model.Ticket {
	t.Helper()
	ctx := context.Background()
	if err := f.set.Intake.Start(ctx, f.user); err != nil {
		t.Fatal(err)
	}
	f.input(t, f.user, "Ivan Ivanov")
	f.input(t, f.user, "204")
	f.input(t, f.user, "projector broken")
	items, err := f.tickets.ListByUser(ctx, userID)
	if err != nil || len(items) == 0 {
		t.Fatalf("ticket not stored: %v", err)
	}
	return &items[0]
}

func hasButton(m notify.Message, want action.Action) bool {
	if m.Markup == nil {
		return false
	}
	for _, row := range m.Markup.Inline {
		for _, b := range row {
			if b.Action == want {
				return true
			}
		}
	}
	return false
}

func TestTicketScenarioEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	tk := f.fileTicket(t)
	if tk.ID != 1 || tk.Status != model.TicketStatusOpen || tk.FullName != "Ivan Ivanov" || tk.Room != "204" {
		t.Fatalf("ticket = %+v", tk)
	}
	if !strings.Contains(f.last(t, userID).Text, "#1 has been created") {
		t.Fatalf("requester reply = %q", f.last(t, userID).Text)
	}
	card := f.last(t, supportID)
	if !hasButton(card, action.TakeToWork{TicketID: 1}) || !hasButton(card, action.BlockUser{UserID: userID, TicketID: 1}) {
		t.Fatalf("staff card lacks controls: %+v", card)
	}

	if err := f.set.Resolution.TakeToWork(ctx, f.staff, 1); err != nil {
		t.Fatal(err)
	}
	if !f.rec.Contains(userID, "taken into work") {
		t.Fatal("requester not told about work start")
	}
	if !hasButton(f.last(t, staffID), action.CloseTicket{TicketID: 1}) {
		t.Fatal("take reply lacks close button")
	}

	if err := f.set.Resolution.StartClose(ctx, f.staff, 1); err != nil {
		t.Fatal(err)
	}
	f.input(t, f.staff, "Tech A")
	f.input(t, f.staff, "replaced bulb")
	got, _ := f.tickets.GetByID(ctx, 1)
	if got.Status != model.TicketStatusClosed || got.ClosedBy == nil || *got.ClosedBy != "Tech A" || got.ClosedAt == nil {
		t.Fatalf("closed ticket = %+v", got)
	}
	prompt := f.last(t, userID)
	if !hasButton(prompt, action.RateTicket{TicketID: 1, Rating: 5}) || !hasButton(prompt, action.SkipRating{TicketID: 1}) {
		t.Fatalf("rating prompt = %+v", prompt)
	}

	if err := f.set.Rating.Rate(ctx, f.user, 1, 5); err != nil {
		t.Fatal(err)
	}
	got, _ = f.tickets.GetByID(ctx, 1)
	if got.Rating == nil || *got.Rating != 5 || got.Feedback != nil {
		t.Fatalf("rated ticket = %+v", got)
	}
	if !f.rec.Contains(supportID, "(5/5)") {
		t.Fatal("staff not told about rating")
	}

	f.input(t, f.user, "great, fast")
	got, _ = f.tickets.GetByID(ctx, 1)
	if got.Feedback == nil || *got.Feedback != "great, fast" || *got.Rating != 5 {
		t.Fatalf("feedback ticket = %+v", got)
	}
	if !f.rec.Contains(supportID, "great, fast") {
		t.Fatal("staff not sent the full feedback")
	}

	// the prompt was answered, so another rating is not accepted
	if err := f.set.Rating.Rate(ctx, f.user, 1, 1); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textRatingInactive {
		t.Fatalf("late rating reply = %q", f.last(t, userID).Text)
	}
	got, _ = f.tickets.GetByID(ctx, 1)
	if *got.Rating != 5 {
		t.Fatal("late rating overwrote the recorded one")
	}
	if form, _ := f.set.ActiveForm(ctx, userID); form != "" {
		t.Fatalf("form left active: %s", form)
	}
}

func TestBlockedUserCannotStartIntake(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	if err := f.blocked.Block(ctx, &model.BlockedUser{UserID: userID, BlockedBy: staffID}); err != nil {
		t.Fatal(err)
	}

	if err := f.set.Intake.Start(ctx, f.user); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textBlockedRefusal {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	if form, _ := f.set.ActiveForm(ctx, userID); form != "" {
		t.Fatalf("form started: %s", form)
	}
	items, _ := f.tickets.ListAll(ctx)
	if len(items) != 0 {
		t.Fatal("ticket created for blocked user")
	}
}

func TestTakeToWorkMissingTicket(t *testing.T) {
	f := newFixture(t, true)
	if err := f.set.Resolution.TakeCommand(context.Background(), f.staff, "999"); err != nil {
		t.Fatal(err)
	}
	if got := f.last(t, staffID).Text; got != "❌ Ticket #999 not found!" {
		t.Fatalf("reply = %q", got)
	}
}

func TestTakeCommandUsage(t *testing.T) {
	f := newFixture(t, true)
	if err := f.set.Resolution.TakeCommand(context.Background(), f.staff, ""); err != nil {
		t.Fatal(err)
	}
	if f.last(t, staffID).Text != textTakeUsage {
		t.Fatalf("reply = %q", f.last(t, staffID).Text)
	}
}

func TestStaffCommandsRefuseNonStaff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	calls := []func(context.Context, Actor) error{
		f.set.Staff.OpenTickets, f.set.Staff.InProgress, f.set.Staff.Stats,
		f.set.Staff.Ratings, f.set.Staff.Blocked, f.set.Staff.Help,
		f.set.Resolution.StartCloseLookup,
	}
	for _, call := range calls {
		f.rec.Reset()
		if err := call(ctx, f.user); err != nil {
			t.Fatal(err)
		}
		if f.last(t, userID).Text != textAdminOnly {
			t.Fatalf("reply = %q", f.last(t, userID).Text)
		}
	}
	if err := f.set.Blocking.UnblockCommand(ctx, f.user, "7"); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textAdminOnly {
		t.Fatal("unblock not gated")
	}
}

func TestCloseGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.fileTicket(t)

	if err := f.set.Resolution.StartClose(ctx, f.staff, 1); err != nil {
		t.Fatal(err)
	}
	if got := f.last(t, staffID).Text; got != "❌ Take ticket #1 into work first!" {
		t.Fatalf("reply = %q", got)
	}
	if form, _ := f.set.ActiveForm(ctx, staffID); form != "" {
		t.Fatal("close form started on open ticket")
	}
}

func TestCloseByCommandLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.fileTicket(t)

	if err := f.set.Resolution.StartCloseLookup(ctx, f.staff); err != nil {
		t.Fatal(err)
	}
	f.input(t, f.staff, "abc")
	if tag, _ := f.tracker.CurrentTag(ctx, staffID); tag != conversation.TagCloseTicketID {
		t.Fatalf("bad id advanced the form: %s", tag)
	}
	f.input(t, f.staff, "1")
	if got := f.last(t, staffID).Text; got != "❌ Take ticket #1 into work first!" {
		t.Fatalf("reply = %q", got)
	}
	if form, _ := f.set.ActiveForm(ctx, staffID); form != "" {
		t.Fatal("lookup form must clear on an open ticket")
	}

	if _, err := f.set.Resolution.engine.TakeToWork(ctx, 1); err != nil {
		t.Fatal(err)
	}
	_ = f.set.Resolution.StartCloseLookup(ctx, f.staff)
	f.input(t, f.staff, "#1")
	if tag, _ := f.tracker.CurrentTag(ctx, staffID); tag != conversation.TagCloserName {
		t.Fatalf("tag = %s", tag)
	}
	f.input(t, f.staff, "Tech B")
	f.input(t, f.staff, "none")
	got, _ := f.tickets.GetByID(ctx, 1)
	if got.Status != model.TicketStatusClosed || got.AdminResponse != nil {
		t.Fatalf("ticket = %+v", got)
	}
}

func TestValidationFailureKeepsField(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.Intake.Start(ctx, f.user)
	f.input(t, f.user, "Ivan Ivanov")
	f.input(t, f.user, "204")
	f.input(t, f.user, "broken")

	if !strings.Contains(f.last(t, userID).Text, "too short") {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	if tag, _ := f.tracker.CurrentTag(ctx, userID); tag != conversation.TagTicketProblem {
		t.Fatalf("tag = %s", tag)
	}
	items, _ := f.tickets.ListAll(ctx)
	if len(items) != 0 {
		t.Fatal("ticket created from invalid input")
	}
}

func TestOverlongAnswersAreRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.Intake.Start(ctx, f.user)
	f.input(t, f.user, "Ivan")
	if !strings.Contains(f.last(t, userID).Text, "first and last name") {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	f.input(t, f.user, "Ivan Ivanov")
	f.input(t, f.user, strings.Repeat("4", conversation.MaxRoomLength+1))
	if !strings.Contains(f.last(t, userID).Text, "too long") {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	if tag, _ := f.tracker.CurrentTag(ctx, userID); tag != conversation.TagTicketRoom {
		t.Fatalf("tag = %s", tag)
	}
}

func TestLaxValidationAcceptsShortProblem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	_ = f.set.Intake.Start(ctx, f.user)
	f.input(t, f.user, "Ivan Ivanov")
	f.input(t, f.user, "204")
	f.input(t, f.user, "broken")
	items, _ := f.tickets.ListAll(ctx)
	if len(items) != 1 || items[0].Problem != "broken" {
		t.Fatalf("tickets = %+v", items)
	}
}

func TestPersistenceFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.Intake.Start(ctx, f.user)
	f.input(t, f.user, "Ivan Ivanov")
	f.input(t, f.user, "204")

	f.tickets.failCreate = true
	if err := f.set.Input(ctx, f.user, "projector broken"); !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("err = %v", err)
	}
	if f.last(t, userID).Text != textRetry {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	if tag, _ := f.tracker.CurrentTag(ctx, userID); tag != conversation.TagTicketProblem {
		t.Fatalf("form not kept on last step: %s", tag)
	}

	f.tickets.failCreate = false
	f.input(t, f.user, "projector broken")
	items, _ := f.tickets.ListAll(ctx)
	if len(items) != 1 || items[0].FullName != "Ivan Ivanov" {
		t.Fatalf("tickets = %+v", items)
	}
}

func TestStaffNotificationFailureKeepsTicket(t *testing.T) {
	f := newFixture(t, true)
	f.rec.Fail(supportID)
	tk := f.fileTicket(t)
	if tk.ID != 1 {
		t.Fatalf("ticket = %+v", tk)
	}
	if !strings.Contains(f.last(t, userID).Text, "staff notification may be delayed") {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
}

func TestCancelDiscardsForm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.Intake.Start(ctx, f.user)
	f.input(t, f.user, "Ivan Ivanov")

	if err := f.set.Cancel(ctx, f.user); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textCancelled {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	if form, _ := f.set.ActiveForm(ctx, userID); form != "" {
		t.Fatal("form still active")
	}
	items, _ := f.tickets.ListAll(ctx)
	if len(items) != 0 {
		t.Fatal("cancel must not persist anything")
	}
}

func closedTicket(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.fileTicket(t)
	if _, err := f.set.Resolution.engine.TakeToWork(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.set.Resolution.engine.Close(ctx, 1, "Tech A", nil); err != nil {
		t.Fatal(err)
	}
}

func TestRatingSkipAndRequesterCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	closedTicket(t, f)

	if err := f.set.Rating.Rate(ctx, f.staff, 1, 1); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.last(t, staffID).Text, "Only the author") {
		t.Fatalf("reply = %q", f.last(t, staffID).Text)
	}

	if err := f.set.Rating.Skip(ctx, f.user, 1); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textRatingSkipped {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	_ = f.set.Rating.Rate(ctx, f.user, 1, 4)
	got, _ := f.tickets.GetByID(ctx, 1)
	if got.Rating != nil {
		t.Fatal("rating recorded after skip")
	}
}

func TestFeedbackOptOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	closedTicket(t, f)
	_ = f.set.Rating.Rate(ctx, f.user, 1, 3)

	ok, err := f.set.SkipFeedback(ctx, f.user)
	if err != nil || !ok {
		t.Fatalf("opt out = %v, %v", ok, err)
	}
	got, _ := f.tickets.GetByID(ctx, 1)
	if got.Rating == nil || *got.Rating != 3 || got.Feedback != nil {
		t.Fatalf("ticket = %+v", got)
	}
	if ok, _ := f.set.SkipFeedback(ctx, f.user); ok {
		t.Fatal("second opt out must be a no-op")
	}
}

func TestBlockAndUnblock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	if err := f.set.Blocking.Start(ctx, f.staff, userID, 1); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.last(t, staffID).Text, "@ivan") {
		t.Fatalf("prompt = %q", f.last(t, staffID).Text)
	}
	f.input(t, f.staff, "spam")

	rec, err := f.blocked.Get(ctx, userID)
	if err != nil || rec == nil {
		t.Fatalf("block record = %+v, %v", rec, err)
	}
	if rec.BlockedBy != staffID || *rec.Reason != "spam" || rec.Username == nil || *rec.Username != "ivan" || rec.LastName != nil {
		t.Fatalf("record = %+v", rec)
	}
	if !f.rec.Contains(userID, "Reason: spam") {
		t.Fatal("blocked user not notified")
	}

	if err := f.set.Blocking.Start(ctx, f.staff, userID, 1); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.last(t, staffID).Text, "already blocked") {
		t.Fatalf("reply = %q", f.last(t, staffID).Text)
	}

	if err := f.set.Staff.Blocked(ctx, f.staff); err != nil {
		t.Fatal(err)
	}
	if !hasButton(f.last(t, staffID), action.UnblockUser{UserID: userID}) {
		t.Fatal("blocked list lacks unblock button")
	}

	if err := f.set.Blocking.UnblockCommand(ctx, f.staff, "500"); err != nil {
		t.Fatal(err)
	}
	if blocked, _ := f.blocked.IsBlocked(ctx, userID); blocked {
		t.Fatal("still blocked")
	}
	if !f.rec.Contains(userID, "block has been lifted") {
		t.Fatal("unblocked user not notified")
	}
	if err := f.set.Blocking.Unblock(ctx, f.staff, userID); err != nil {
		t.Fatal(err)
	}
	if got := f.last(t, staffID).Text; got != "❌ User 500 is not blocked!" {
		t.Fatalf("reply = %q", got)
	}
}

func TestBlockWithoutProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.Blocking.Start(ctx, f.staff, 42, 0)
	f.input(t, f.staff, "abuse")
	rec, _ := f.blocked.Get(ctx, 42)
	if rec == nil || rec.Username != nil || rec.FirstName != nil {
		t.Fatalf("record = %+v", rec)
	}
}

func TestStaffListingsAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.fileTicket(t)
	f.rec.Reset()

	if err := f.set.Staff.OpenTickets(ctx, f.staff); err != nil {
		t.Fatal(err)
	}
	msgs := f.rec.To(staffID)
	if len(msgs) != 2 || msgs[0].Text != "🟢 New tickets: 1" || !hasButton(msgs[1], action.TakeToWork{TicketID: 1}) {
		t.Fatalf("open listing = %+v", msgs)
	}

	f.rec.Reset()
	_ = f.set.Staff.InProgress(ctx, f.staff)
	if f.last(t, staffID).Text != textNoInProgress {
		t.Fatalf("in progress = %q", f.last(t, staffID).Text)
	}

	f.rec.Reset()
	_ = f.set.Staff.Stats(ctx, f.staff)
	if !strings.Contains(f.last(t, staffID).Text, "📈 Total: 1\n🟢 Open: 1") {
		t.Fatalf("stats = %q", f.last(t, staffID).Text)
	}

	f.rec.Reset()
	_ = f.set.Staff.Ratings(ctx, f.staff)
	if f.last(t, staffID).Text != textNoRatings {
		t.Fatalf("ratings = %q", f.last(t, staffID).Text)
	}
}

func TestRatingsListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	closedTicket(t, f)
	_ = f.set.Rating.Rate(ctx, f.user, 1, 4)
	f.rec.Reset()

	if err := f.set.Staff.Ratings(ctx, f.staff); err != nil {
		t.Fatal(err)
	}
	msgs := f.rec.To(staffID)
	if len(msgs) != 2 || !strings.Contains(msgs[0].Text, "Average: 4.0/5") || !strings.Contains(msgs[1].Text, "Technician: Tech A") {
		t.Fatalf("ratings = %+v", msgs)
	}
}

func TestMyTickets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	if err := f.set.User.MyTickets(ctx, f.user); err != nil {
		t.Fatal(err)
	}
	if f.last(t, userID).Text != textNoTickets {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
	f.fileTicket(t)
	_ = f.set.User.MyTickets(ctx, f.user)
	if !strings.Contains(f.last(t, userID).Text, "📋 Ticket #1") {
		t.Fatalf("reply = %q", f.last(t, userID).Text)
	}
}

func TestStartShowsStaffMenuToStaff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_ = f.set.User.Start(ctx, f.staff)
	_ = f.set.User.Start(ctx, f.user)
	if m := f.last(t, staffID); m.Markup == nil || m.Markup.Menu[0][0] != LabelOpenTickets {
		t.Fatalf("staff menu = %+v", m.Markup)
	}
	if m := f.last(t, userID); m.Markup == nil || m.Markup.Menu[0][0] != LabelCreateTicket {
		t.Fatalf("user menu = %+v", m.Markup)
	}
}

func TestTransitionText(t *testing.T) {
	cases := []struct {
		te   errs.TransitionError
		want string
	}{
		{errs.TransitionError{TicketID: 1, Current: model.TicketStatusClosed, Target: model.TicketStatusInProgress}, "❌ Ticket #1 is already closed!"},
		{errs.TransitionError{TicketID: 2, Current: model.TicketStatusInProgress, Target: model.TicketStatusInProgress}, "❌ Ticket #2 is already in work!"},
		{errs.TransitionError{TicketID: 3, Current: model.TicketStatusOpen, Target: model.TicketStatusClosed}, "❌ Take ticket #3 into work first!"},
	}
	for _, c := range cases {
		if got := transitionText(&c.te); got != c.want {
			t.Errorf("transitionText(%+v) = %q", c.te, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("привет мир", 6); got != "привет..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
