package service

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockedStorer interface {
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (*model.BlockedUser, error)
	Block(ctx context.Context, rec *model.BlockedUser) error
	Unblock(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]model.BlockedUser, error)
}

type BlockedService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBlockedService(db *gorm.DB) *BlockedService {
	return &BlockedService{db: db, now: time.Now}
}

var _ BlockedStorer = (*BlockedService)(nil)

func (s *BlockedService) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.BlockedUser{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, errs.Persistence("check blocked", err)
	}
	return n > 0, nil
}

// Get returns the block record, or nil when the user is not blocked.
func (s *BlockedService) Get(ctx context.Context, userID int64) (*model.BlockedUser, error) {
	var rec model.BlockedUser
	if err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Persistence("get blocked", err)
	}
	return &rec, nil
}

// Block inserts or replaces the block record for rec.UserID.
// BlockedAt is stamped here so a re-block refreshes it.
func (s *BlockedService) Block(ctx context.Context, rec *model.BlockedUser) error {
	rec.BlockedAt = s.now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(rec).Error
	if err != nil {
		return errs.Persistence("block user", err)
	}
	return nil
}

// Unblock deletes the block record and reports whether one existed.
func (s *BlockedService) Unblock(ctx context.Context, userID int64) (bool, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.BlockedUser{})
	if res.Error != nil {
		return false, errs.Persistence("unblock user", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *BlockedService) List(ctx context.Context) ([]model.BlockedUser, error) {
	var items []model.BlockedUser
	if err := s.db.WithContext(ctx).Order("blocked_at DESC").Find(&items).Error; err != nil {
		return nil, errs.Persistence("list blocked", err)
	}
	return items, nil
}
