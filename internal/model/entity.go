package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

const (
	MinRating = 1
	MaxRating = 5
)

// Ticket is a problem report filed by a requester through the chat.
// ClosedAt and ClosedBy are set exactly when Status is closed; Rating and
// Feedback are only ever written on closed tickets.
type Ticket struct {
	ID            uint64       `gorm:"primaryKey" json:"id"`
	RequesterID   int64        `gorm:"index;not null" json:"requester_id"`
	FullName      string       `gorm:"type:varchar(255);not null" json:"full_name"`
	Room          string       `gorm:"type:varchar(64);not null" json:"room"`
	Problem       string       `gorm:"type:text;not null" json:"problem"`
	Status        TicketStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	ClosedBy      *string      `gorm:"type:varchar(255)" json:"closed_by,omitempty"`
	AdminResponse *string      `gorm:"type:text" json:"admin_response,omitempty"`
	Rating        *int         `gorm:"index" json:"rating,omitempty"`
	Feedback      *string      `gorm:"type:text" json:"feedback,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func (Ticket) TableName() string { return "tickets" }

// Rated reports whether a satisfaction rating has been recorded.
func (t *Ticket) Rated() bool { return t.Rating != nil }

// BlockedUser marks a user id as barred from filing tickets. The profile
// fields are a best-effort snapshot taken at block time.
type BlockedUser struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username  *string   `gorm:"type:varchar(255)" json:"username,omitempty"`
	FirstName *string   `gorm:"type:varchar(255)" json:"first_name,omitempty"`
	LastName  *string   `gorm:"type:varchar(255)" json:"last_name,omitempty"`
	BlockedBy int64     `gorm:"not null" json:"blocked_by"`
	BlockedAt time.Time `gorm:"not null;index" json:"blocked_at"`
	Reason    *string   `gorm:"type:text" json:"reason,omitempty"`
}

func (BlockedUser) TableName() string { return "blocked_users" }

// UserProfile is what the chat transport knows about a user.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// TicketCounts: агрегаты для /stats.
type TicketCounts struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Closed     int64 `json:"closed"`
	Today      int64 `json:"today"`
}

// RatingStats: агрегаты оценок для /ratings.
type RatingStats struct {
	Average float64       `json:"average"`
	Total   int64         `json:"total"`
	ByStars map[int]int64 `json:"by_stars"`
}
