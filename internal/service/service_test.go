package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB returns a migrated sqlite in-memory DB on a single connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func newTicket(t *testing.T, svc *TicketService, requester int64) *model.Ticket {
	t.Helper()
	tk := &model.Ticket{RequesterID: requester, FullName: "Ivan Ivanov", Room: "204", Problem: "projector broken"}
	if err := svc.Create(context.Background(), tk); err != nil {
		t.Fatalf("create: %v", err)
	}
	return tk
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	a := newTicket(t, svc, 1)
	b := newTicket(t, svc, 1)
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", a.ID, b.ID)
	}
	if a.Status != model.TicketStatusOpen {
		t.Fatalf("status = %s, want open", a.Status)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	if _, err := svc.GetByID(context.Background(), 999); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestTransitionCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	svc := NewTicketService(newTestDB(t))
	tk := newTicket(t, svc, 1)

	got, err := svc.Transition(ctx, tk.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != model.TicketStatusInProgress {
		t.Fatalf("status = %s", got.Status)
	}

	_, err = svc.Transition(ctx, tk.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil)
	var te *errs.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if te.Current != model.TicketStatusInProgress {
		t.Fatalf("observed status = %s", te.Current)
	}
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatal("TransitionError must match ErrInvalidTransition")
	}

	if _, err := svc.Transition(ctx, 42, model.TicketStatusOpen, model.TicketStatusInProgress, nil); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Fatalf("missing ticket err = %v", err)
	}
}

func TestTransitionConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc := NewTicketService(newTestDB(t))
	tk := newTicket(t, svc, 1)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transition(ctx, tk.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestUpdateRatingRequiresClosed(t *testing.T) {
	ctx := context.Background()
	svc := NewTicketService(newTestDB(t))
	tk := newTicket(t, svc, 1)

	if _, err := svc.UpdateRating(ctx, tk.ID, 5, nil); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("rating an open ticket: err = %v", err)
	}
	got, _ := svc.GetByID(ctx, tk.ID)
	if got.Rating != nil {
		t.Fatal("rating must not be written on an open ticket")
	}

	now := time.Now()
	if _, err := svc.Transition(ctx, tk.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(ctx, tk.ID, model.TicketStatusInProgress, model.TicketStatusClosed, map[string]interface{}{
		"closed_by": "Tech A", "closed_at": now,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateRating(ctx, tk.ID, 3, nil); err != nil {
		t.Fatalf("rate: %v", err)
	}
	got, err := svc.UpdateRating(ctx, tk.ID, 5, strPtr("great, fast"))
	if err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if got.Rating == nil || *got.Rating != 5 || got.Feedback == nil || *got.Feedback != "great, fast" {
		t.Fatalf("rating not overwritten: %+v", got)
	}
}

func TestListsAndAggregates(t *testing.T) {
	ctx := context.Background()
	svc := NewTicketService(newTestDB(t))
	a := newTicket(t, svc, 1)
	b := newTicket(t, svc, 2)
	c := newTicket(t, svc, 1)
	_ = c

	if _, err := svc.Transition(ctx, a.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(ctx, b.ID, model.TicketStatusOpen, model.TicketStatusInProgress, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(ctx, b.ID, model.TicketStatusInProgress, model.TicketStatusClosed, map[string]interface{}{
		"closed_by": "Tech", "closed_at": time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateRating(ctx, b.ID, 4, nil); err != nil {
		t.Fatal(err)
	}

	open, err := svc.ListByStatus(ctx, model.TicketStatusOpen)
	if err != nil || len(open) != 1 || open[0].ID != c.ID {
		t.Fatalf("open = %+v, %v", open, err)
	}
	mine, err := svc.ListByUser(ctx, 1)
	if err != nil || len(mine) != 2 {
		t.Fatalf("by user = %d, %v", len(mine), err)
	}
	if mine[0].ID != c.ID {
		t.Fatalf("newest first expected, got %d", mine[0].ID)
	}
	rated, err := svc.ListRated(ctx, 10)
	if err != nil || len(rated) != 1 || rated[0].ID != b.ID {
		t.Fatalf("rated = %+v, %v", rated, err)
	}

	counts, err := svc.Counts(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	want := model.TicketCounts{Total: 3, Open: 1, InProgress: 1, Closed: 1, Today: 3}
	if *counts != want {
		t.Fatalf("counts = %+v, want %+v", *counts, want)
	}

	stats, err := svc.RatingStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.Average != 4 || stats.ByStars[4] != 1 || stats.ByStars[5] != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRatingStatsEmpty(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	stats, err := svc.RatingStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 || stats.Average != 0 || len(stats.ByStars) != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestBlockIsInsertOrReplace(t *testing.T) {
	ctx := context.Background()
	svc := NewBlockedService(newTestDB(t))
	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	if blocked, _ := svc.IsBlocked(ctx, 77); blocked {
		t.Fatal("fresh user must not be blocked")
	}
	if err := svc.Block(ctx, &model.BlockedUser{UserID: 77, BlockedBy: 1, Reason: strPtr("spam")}); err != nil {
		t.Fatalf("block: %v", err)
	}
	second := first.Add(time.Hour)
	svc.now = func() time.Time { return second }
	if err := svc.Block(ctx, &model.BlockedUser{UserID: 77, BlockedBy: 2, Reason: strPtr("abuse"), Username: strPtr("troll")}); err != nil {
		t.Fatalf("re-block: %v", err)
	}

	if blocked, _ := svc.IsBlocked(ctx, 77); !blocked {
		t.Fatal("user must stay blocked after re-block")
	}
	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	rec := list[0]
	if rec.BlockedBy != 2 || rec.Reason == nil || *rec.Reason != "abuse" || !rec.BlockedAt.Equal(second) {
		t.Fatalf("record not replaced: %+v", rec)
	}
}

func TestUnblock(t *testing.T) {
	ctx := context.Background()
	svc := NewBlockedService(newTestDB(t))

	removed, err := svc.Unblock(ctx, 5)
	if err != nil || removed {
		t.Fatalf("unblock of non-blocked = %v, %v", removed, err)
	}
	if err := svc.Block(ctx, &model.BlockedUser{UserID: 5, BlockedBy: 1}); err != nil {
		t.Fatal(err)
	}
	removed, err = svc.Unblock(ctx, 5)
	if err != nil || !removed {
		t.Fatalf("unblock = %v, %v", removed, err)
	}
	if rec, err := svc.Get(ctx, 5); err != nil || rec != nil {
		t.Fatalf("record still present: %+v, %v", rec, err)
	}
}
