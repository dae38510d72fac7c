package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createFriendRequest(c *gin.Context) {
	var req struct {
		ToUser  string `json:"to_user" binding:"required"`
		Message string `json:"message"`
		Site    string `json:"site"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.friends.Create(c.Request.Context(), actingUser(c), req.ToUser, req.Message, req.Site)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) incomingFriendRequests(c *gin.Context) {
	requests, err := h.friends.Incoming(c.Request.Context(), actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) getFriendRequest(c *gin.Context) {
	r, err := h.friends.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type decideFunc func(ctx context.Context, id, by string) (bool, error)

func (h *Handler) decide(c *gin.Context, fn decideFunc, outcome string) {
	ok, err := fn(c.Request.Context(), c.Param("id"), actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeDecision(c, ok, gin.H{"id": c.Param("id"), "state": outcome})
}

func (h *Handler) acceptFriendRequest(c *gin.Context) {
	h.decide(c, h.friends.Accept, "accepted")
}

func (h *Handler) denyFriendRequest(c *gin.Context) {
	h.decide(c, h.friends.Deny, "denied")
}

func (h *Handler) createMembershipRequest(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	r, err := h.memberships.Create(c.Request.Context(), actingUser(c), c.Param("id"), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) pendingMembershipRequests(c *gin.Context) {
	groupID := c.Param("id")
	if !h.requireAdmin(c, groupID) {
		return
	}
	requests, err := h.memberships.Pending(c.Request.Context(), groupID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) acceptMembershipRequest(c *gin.Context) {
	h.decide(c, h.memberships.Accept, "accepted")
}

func (h *Handler) denyMembershipRequest(c *gin.Context) {
	h.decide(c, h.memberships.Deny, "denied")
}
