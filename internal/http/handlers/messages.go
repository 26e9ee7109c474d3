package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"chat-ai-be/internal/chat"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	Store  *chat.Store
	Sender *chat.Sender
}

// ListPartners returns the sidebar: every other user with the time of the
// last message exchanged, most recently active first.
func (h *MessageHandler) ListPartners(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	partners, err := h.Store.Partners(userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"message": "failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partners})
}

// ListMessages returns the full history between the caller and user :id,
// oldest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	partnerID, ok := pathUserID(c)
	if !ok {
		return
	}

	if _, err := h.Store.GetUser(partnerID); err != nil {
		c.JSON(statusFor(err), gin.H{"message": "user not found"})
		return
	}

	msgs, err := h.Store.History(userID, partnerID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"message": "failed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

type sendMessageReq struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// SendMessage runs the delivery pipeline against user :id. The returned
// message confirms persistence; whether a realtime push happened is not part
// of the contract.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	receiverID, ok := pathUserID(c)
	if !ok {
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	msg, err := h.Sender.Send(c.Request.Context(), userID, receiverID, req.Text, req.Image)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"message": "failed send message", "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

func pathUserID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return 0, false
	}
	return uint(id64), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrDependencyFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
