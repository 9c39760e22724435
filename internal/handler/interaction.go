package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/action"
	"github.com/psds-microservice/helpdesk-service/internal/bot"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

const TokenHeader = "X-Api-Token"

// RunFunc handles one interaction and returns when it is done.
type RunFunc func(ctx context.Context, in bot.Interaction) error

// InteractionHandler injects chat interactions over HTTP. It drives the same
// dispatcher as the Telegram poller.
type InteractionHandler struct {
	token string
	run   RunFunc
}

func NewInteractionHandler(token string, run RunFunc) *InteractionHandler {
	return &InteractionHandler{token: token, run: run}
}

type interactionRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	ChatID       int64  `json:"chat_id"`
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

func (h *InteractionHandler) Create(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.GetHeader(TokenHeader)), []byte(h.token)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	chatID := req.ChatID
	if chatID == 0 {
		chatID = req.UserID
	}

	var in bot.Interaction
	switch {
	case req.CallbackData != "":
		a, err := action.Decode(req.CallbackData)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback_data"})
			return
		}
		in = bot.Button(req.UserID, chatID, a)
	case req.Text != "":
		in = bot.ParseText(req.UserID, chatID, req.Text)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "text or callback_data is required"})
		return
	}
	in.Profile = model.UserProfile{ID: req.UserID, Username: req.Username, FirstName: req.FirstName, LastName: req.LastName}

	if err := h.run(c.Request.Context(), in); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "interaction timed out"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "handled", "kind": in.Kind})
}
