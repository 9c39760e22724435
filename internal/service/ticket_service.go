package service

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
)

// TicketStorer: интерфейс хранилища заявок для движка жизненного цикла и воркфлоу.
type TicketStorer interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	Transition(ctx context.Context, id uint64, from, to model.TicketStatus, changes map[string]interface{}) (*model.Ticket, error)
	UpdateRating(ctx context.Context, id uint64, rating int, feedback *string) (*model.Ticket, error)
	ListByStatus(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error)
	ListByUser(ctx context.Context, requesterID int64) ([]model.Ticket, error)
	ListRated(ctx context.Context, limit int) ([]model.Ticket, error)
	ListAll(ctx context.Context) ([]model.Ticket, error)
	Counts(ctx context.Context, now time.Time) (*model.TicketCounts, error)
	RatingStats(ctx context.Context) (*model.RatingStats, error)
}

type TicketService struct {
	db *gorm.DB
}

func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{db: db}
}

var _ TicketStorer = (*TicketService)(nil)

// Create stores a new ticket; the id is assigned by the database.
func (s *TicketService) Create(ctx context.Context, t *model.Ticket) error {
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return errs.Persistence("create ticket", err)
	}
	return nil
}

func (s *TicketService) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, errs.Persistence("get ticket", err)
	}
	return &t, nil
}

// Transition moves a ticket from one status to another in a single
// conditional UPDATE. If another writer changed the status first, no row
// matches and the observed status is reported in a TransitionError.
func (s *TicketService) Transition(ctx context.Context, id uint64, from, to model.TicketStatus, changes map[string]interface{}) (*model.Ticket, error) {
	values := make(map[string]interface{}, len(changes)+1)
	for k, v := range changes {
		values[k] = v
	}
	values["status"] = to

	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return nil, errs.Persistence("transition ticket", res.Error)
	}
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &errs.TransitionError{TicketID: id, Current: t.Status, Target: to}
	}
	return t, nil
}

// UpdateRating records the rating and feedback on a closed ticket,
// overwriting whatever was recorded before.
func (s *TicketService) UpdateRating(ctx context.Context, id uint64, rating int, feedback *string) (*model.Ticket, error) {
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND status = ?", id, model.TicketStatusClosed).
		Updates(map[string]interface{}{"rating": rating, "feedback": feedback})
	if res.Error != nil {
		return nil, errs.Persistence("update rating", res.Error)
	}
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &errs.TransitionError{TicketID: id, Current: t.Status, Target: model.TicketStatusClosed}
	}
	return t, nil
}

func (s *TicketService) ListByStatus(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error) {
	order := "created_at DESC, id DESC"
	if status == model.TicketStatusClosed {
		order = "closed_at DESC, id DESC"
	}
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Where("status = ?", status).Order(order).Find(&items).Error; err != nil {
		return nil, errs.Persistence("list tickets by status", err)
	}
	return items, nil
}

func (s *TicketService) ListByUser(ctx context.Context, requesterID int64) ([]model.Ticket, error) {
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Where("requester_id = ?", requesterID).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, errs.Persistence("list tickets by user", err)
	}
	return items, nil
}

func (s *TicketService) ListRated(ctx context.Context, limit int) ([]model.Ticket, error) {
	var items []model.Ticket
	tx := s.db.WithContext(ctx).Where("rating IS NOT NULL").Order("closed_at DESC, id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, errs.Persistence("list rated tickets", err)
	}
	return items, nil
}

func (s *TicketService) ListAll(ctx context.Context) ([]model.Ticket, error) {
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, errs.Persistence("list tickets", err)
	}
	return items, nil
}

// Counts aggregates tickets by status; Today counts tickets created since
// local midnight of now.
func (s *TicketService) Counts(ctx context.Context, now time.Time) (*model.TicketCounts, error) {
	type row struct {
		Status model.TicketStatus
		N      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, errs.Persistence("count tickets", err)
	}
	out := &model.TicketCounts{}
	for _, r := range rows {
		out.Total += r.N
		switch r.Status {
		case model.TicketStatusOpen:
			out.Open = r.N
		case model.TicketStatusInProgress:
			out.InProgress = r.N
		case model.TicketStatusClosed:
			out.Closed = r.N
		}
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("created_at >= ?", midnight).Count(&out.Today).Error; err != nil {
		return nil, errs.Persistence("count today tickets", err)
	}
	return out, nil
}

func (s *TicketService) RatingStats(ctx context.Context) (*model.RatingStats, error) {
	type row struct {
		Rating int
		N      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("rating, COUNT(*) AS n").Where("rating IS NOT NULL").Group("rating").Scan(&rows).Error; err != nil {
		return nil, errs.Persistence("rating stats", err)
	}
	out := &model.RatingStats{ByStars: make(map[int]int64, model.MaxRating)}
	for star := model.MinRating; star <= model.MaxRating; star++ {
		out.ByStars[star] = 0
	}
	var sum int64
	for _, r := range rows {
		out.ByStars[r.Rating] = r.N
		out.Total += r.N
		sum += int64(r.Rating) * r.N
	}
	if out.Total > 0 {
		out.Average = float64(sum) / float64(out.Total)
	}
	return out, nil
}
