package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// TicketHandler is the read-only ticket API for dashboards and integrations.
// Status changes happen only through chat interactions.
type TicketHandler struct {
	svc     service.TicketStorer
	blocked service.BlockedStorer
}

func NewTicketHandler(svc service.TicketStorer, blocked service.BlockedStorer) *TicketHandler {
	return &TicketHandler{svc: svc, blocked: blocked}
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

// List filters by status and/or requester_id.
func (h *TicketHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	status := model.TicketStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var (
		items []model.Ticket
		err   error
	)
	switch v := c.Query("requester_id"); {
	case v != "":
		requester, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid requester_id"})
			return
		}
		items, err = h.svc.ListByUser(ctx, requester)
		if err == nil && status != "" {
			items = filterStatus(items, status)
		}
	case status != "":
		items, err = h.svc.ListByStatus(ctx, status)
	default:
		items, err = h.svc.ListAll(ctx)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tickets"})
		return
	}
	if items == nil {
		items = []model.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   len(items),
	})
}

func filterStatus(items []model.Ticket, status model.TicketStatus) []model.Ticket {
	out := items[:0]
	for _, t := range items {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (h *TicketHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.svc.Counts(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count tickets"})
		return
	}
	ratings, err := h.svc.RatingStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate ratings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": counts, "ratings": ratings})
}

func (h *TicketHandler) Blocked(c *gin.Context) {
	users, err := h.blocked.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list blocked users"})
		return
	}
	if users == nil {
		users = []model.BlockedUser{}
	}
	c.JSON(http.StatusOK, gin.H{"blocked_users": users, "total": len(users)})
}
