package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/folio/folio/backend/go-services/internal/chat"
	"github.com/folio/folio/backend/go-services/pkg/logger"
)

// Relayer forwards one chat turn.
type Relayer interface {
	Relay(ctx context.Context, req chat.Request) (string, error)
}

type chatRequest struct {
	Message   string         `json:"message"`
	History   []chat.Message `json:"history"`
	SessionID string         `json:"sessionId"`
}

// ChatHandler answers POST /chat. Every answer, including failures, carries
// a displayable reply string.
type ChatHandler struct {
	relay   Relayer
	history chat.HistoryStore
}

// NewChatHandler creates the handler. history may be nil.
func NewChatHandler(r Relayer, history chat.HistoryStore) *ChatHandler {
	return &ChatHandler{relay: r, history: history}
}

func (h *ChatHandler) Register(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	rg.POST("/chat", append(guard, h.Chat)...)
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"reply": "Please type a message first."})
		return
	}
	ctx := c.Request.Context()
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if len(req.History) == 0 && h.history != nil {
		past, err := h.history.Load(ctx, req.SessionID)
		if err != nil {
			logger.Warnf("chat history load: %v", err)
		}
		req.History = past
	}

	reply, err := h.relay.Relay(ctx, chat.Request{Message: req.Message, History: req.History, SessionID: req.SessionID})
	if err != nil {
		logger.Errorf("chat relay: %v", err)
		msg := "The assistant is unavailable right now. Please try again later."
		var se *chat.StatusError
		if errors.As(err, &se) {
			msg = fmt.Sprintf("The assistant service returned an error (%d): %s", se.Status, se.Body)
		}
		c.JSON(http.StatusBadGateway, gin.H{"reply": msg, "sessionId": req.SessionID})
		return
	}

	if h.history != nil {
		if err := h.history.Append(ctx, req.SessionID,
			chat.Message{Role: "user", Content: req.Message},
			chat.Message{Role: "assistant", Content: reply},
		); err != nil {
			logger.Warnf("chat history append: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "sessionId": req.SessionID})
}
