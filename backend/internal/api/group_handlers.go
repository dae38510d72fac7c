package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-network/backend/internal/feed"
	"social-network/backend/internal/social"
)

func (h *Handler) createGroup(c *gin.Context) {
	var req struct {
		Site           string   `json:"site"`
		Name           string   `json:"name" binding:"required"`
		Slug           string   `json:"slug"`
		Description    string   `json:"description"`
		Closed         bool     `json:"closed"`
		Administrators []string `json:"administrators"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.social.CreateGroup(c.Request.Context(), social.NewGroup{
		Site:           req.Site,
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		Creator:        actingUser(c),
		Closed:         req.Closed,
		Administrators: req.Administrators,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) getGroup(c *gin.Context) {
	g, err := h.social.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) updateGroup(c *gin.Context) {
	groupID := c.Param("id")
	var req social.GroupUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireAdmin(c, groupID) {
		return
	}
	g, err := h.social.UpdateGroup(c.Request.Context(), groupID, actingUser(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) groupBySlug(c *gin.Context) {
	g, err := h.social.GroupBySlug(c.Request.Context(), c.Param("site"), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) members(c *gin.Context) {
	ctx := c.Request.Context()
	groupID := c.Param("id")

	if role := c.Query("role"); role != "" {
		ids, err := h.social.MembersWithRole(ctx, groupID, role)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_ids": ids, "role": role})
		return
	}

	offset, limit, ok := page(c)
	if !ok {
		return
	}
	members, err := h.social.MemberList(ctx, groupID, offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	total, err := h.social.MemberCount(ctx, groupID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "total": total, "offset": offset, "limit": limit})
}

func (h *Handler) addMember(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := h.social.AddMember(c.Request.Context(), c.Param("id"), req.UserID, actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeDecision(c, added, gin.H{"added": true})
}

func (h *Handler) join(c *gin.Context) {
	added, err := h.social.Join(c.Request.Context(), c.Param("id"), actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeDecision(c, added, gin.H{"added": true})
}

func (h *Handler) administrators(c *gin.Context) {
	admins, err := h.social.Administrators(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"administrators": admins})
}

// requireAdmin answers 403 unless the acting user administers the group.
func (h *Handler) requireAdmin(c *gin.Context, groupID string) bool {
	ok, err := h.social.HasAdmin(c.Request.Context(), groupID, actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return false
	}
	if !ok {
		writeDecision(c, false, nil)
		return false
	}
	return true
}

type administratorsRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *Handler) addAdministrators(c *gin.Context) {
	groupID := c.Param("id")
	var req administratorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireAdmin(c, groupID) {
		return
	}
	if err := h.social.AddAdministrators(c.Request.Context(), groupID, req.UserIDs); err != nil {
		h.writeError(c, err)
		return
	}
	h.administrators(c)
}

// removeAdministrators revokes the listed users, or every administrator
// when the list is empty.
func (h *Handler) removeAdministrators(c *gin.Context) {
	groupID := c.Param("id")
	var req administratorsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if !h.requireAdmin(c, groupID) {
		return
	}

	var err error
	if len(req.UserIDs) == 0 {
		err = h.social.ClearAdministrators(c.Request.Context(), groupID)
	} else {
		err = h.social.RemoveAdministrators(c.Request.Context(), groupID, req.UserIDs)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.administrators(c)
}

func (h *Handler) createPost(c *gin.Context) {
	var req struct {
		Comment string `json:"comment" binding:"required"`
		URL     string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.feed.CreatePost(c.Request.Context(), feed.NewPost{
		GroupID: c.Param("id"),
		Creator: actingUser(c),
		Comment: req.Comment,
		URL:     req.URL,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.feed.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) updatePost(c *gin.Context) {
	var req feed.PostUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, ok, err := h.feed.UpdatePost(c.Request.Context(), c.Param("id"), actingUser(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeDecision(c, ok, gin.H{"post": post})
}

func (h *Handler) deletePost(c *gin.Context) {
	ok, err := h.feed.DeletePost(c.Request.Context(), c.Param("id"), actingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeDecision(c, ok, gin.H{"deleted": true})
}

func (h *Handler) groupFeed(c *gin.Context) {
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	items, err := h.feed.Feed(c.Request.Context(), c.Param("id"), c.Query("site"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "offset": offset, "limit": limit})
}
