package handlers

import (
	"errors"
	"net/http"

	"chat-ai-be/internal/ai"
	"chat-ai-be/internal/chat"

	"github.com/gin-gonic/gin"
)

// AIHandler exposes the assist endpoints. Each call is stateless: the service
// re-fetches whatever history it needs, nothing carries over between calls.
type AIHandler struct {
	AI *ai.Service
}

type aiPartnerReq struct {
	PartnerID uint `json:"partner_id" binding:"required"`
}

func (h *AIHandler) Analyze(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var req aiPartnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	result, err := h.AI.Analyze(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type aiQueryReq struct {
	PartnerID uint   `json:"partner_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

func (h *AIHandler) Query(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var req aiQueryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	result, err := h.AI.Query(c.Request.Context(), userID, req.PartnerID, req.Query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) FollowUps(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var req aiPartnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	result, err := h.AI.FollowUps(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) Replies(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var req aiPartnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	result, err := h.AI.Replies(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type aiRefineReq struct {
	Draft string `json:"draft" binding:"required"`
	Tone  string `json:"tone"`
}

func (h *AIHandler) Refine(c *gin.Context) {
	var req aiRefineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	result, err := h.AI.Refine(c.Request.Context(), req.Draft, req.Tone)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail maps service errors, with provider failures reported as a bad gateway
// so the client can tell "AI is down" apart from its own mistakes.
func (h *AIHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request", "error": err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
	case errors.Is(err, chat.ErrDependencyFailure):
		c.JSON(http.StatusBadGateway, gin.H{"message": "ai service failed", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
