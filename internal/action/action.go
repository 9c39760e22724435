// Package action defines the typed payloads carried by inline buttons and
// their compact wire form.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

var ErrMalformed = errors.New("malformed action")

// Action is one of the button variants below.
type Action interface {
	isAction()
}

type TakeToWork struct{ TicketID uint64 }

type CloseTicket struct{ TicketID uint64 }

type BlockUser struct {
	UserID   int64
	TicketID uint64
}

type UnblockUser struct{ UserID int64 }

type RateTicket struct {
	TicketID uint64
	Rating   int
}

type SkipRating struct{ TicketID uint64 }

func (TakeToWork) isAction()  {}
func (CloseTicket) isAction() {}
func (BlockUser) isAction()   {}
func (UnblockUser) isAction() {}
func (RateTicket) isAction()  {}
func (SkipRating) isAction()  {}

// Encode renders a in its wire form, e.g. "take:12" or "rate:12:skip".
func Encode(a Action) string {
	switch v := a.(type) {
	case TakeToWork:
		return "take:" + u64(v.TicketID)
	case CloseTicket:
		return "close:" + u64(v.TicketID)
	case BlockUser:
		return "block:" + i64(v.UserID) + ":" + u64(v.TicketID)
	case UnblockUser:
		return "unblock:" + i64(v.UserID)
	case RateTicket:
		return "rate:" + u64(v.TicketID) + ":" + strconv.Itoa(v.Rating)
	case SkipRating:
		return "rate:" + u64(v.TicketID) + ":skip"
	}
	return ""
}

// Decode parses a wire-form action.
func Decode(s string) (Action, error) {
	parts := strings.Split(s, ":")
	bad := fmt.Errorf("%w: %q", ErrMalformed, s)
	switch {
	case parts[0] == "take" && len(parts) == 2:
		id, ok := parseTicket(parts[1])
		if !ok {
			return nil, bad
		}
		return TakeToWork{TicketID: id}, nil
	case parts[0] == "close" && len(parts) == 2:
		id, ok := parseTicket(parts[1])
		if !ok {
			return nil, bad
		}
		return CloseTicket{TicketID: id}, nil
	case parts[0] == "block" && len(parts) == 3:
		uid, err := strconv.ParseInt(parts[1], 10, 64)
		id, ok := parseTicket(parts[2])
		if err != nil || !ok {
			return nil, bad
		}
		return BlockUser{UserID: uid, TicketID: id}, nil
	case parts[0] == "unblock" && len(parts) == 2:
		uid, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, bad
		}
		return UnblockUser{UserID: uid}, nil
	case parts[0] == "rate" && len(parts) == 3:
		id, ok := parseTicket(parts[1])
		if !ok {
			return nil, bad
		}
		if parts[2] == "skip" {
			return SkipRating{TicketID: id}, nil
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < model.MinRating || n > model.MaxRating {
			return nil, bad
		}
		return RateTicket{TicketID: id, Rating: n}, nil
	}
	return nil, bad
}

func parseTicket(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil && id > 0
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
func i64(v int64) string  { return strconv.FormatInt(v, 10) }
