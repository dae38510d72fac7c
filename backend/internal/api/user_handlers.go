package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"social-network/backend/internal/feed"
	"social-network/backend/internal/social"
)

// Profile is the counter summary of a user in a site.
type Profile struct {
	UserID    string `json:"user_id"`
	Site      string `json:"site"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
	Friends   int    `json:"friends"`
	Groups    int    `json:"groups"`
}

func (h *Handler) profile(c *gin.Context) {
	user, site := c.Param("id"), c.Query("site")
	p := Profile{UserID: user, Site: h.social.Graph().Site(site)}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		p.Followers, err = h.social.Followers(ctx, user, site)
		return err
	})
	g.Go(func() error {
		var err error
		p.Following, err = h.social.Following(ctx, user, site)
		return err
	})
	g.Go(func() error {
		var err error
		p.Friends, err = h.social.Friends(ctx, user, site)
		return err
	})
	g.Go(func() error {
		var err error
		p.Groups, err = h.social.GroupCount(ctx, user, site)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type relationLister func(c *gin.Context, user, site string, offset, limit int) ([]social.Relation, error)

func (h *Handler) listRelations(c *gin.Context, list relationLister) {
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	rels, err := list(c, c.Param("id"), c.Query("site"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": rels, "offset": offset, "limit": limit})
}

func (h *Handler) followerList(c *gin.Context) {
	h.listRelations(c, func(c *gin.Context, user, site string, offset, limit int) ([]social.Relation, error) {
		return h.social.FollowerList(c.Request.Context(), user, site, offset, limit)
	})
}

func (h *Handler) followingList(c *gin.Context) {
	h.listRelations(c, func(c *gin.Context, user, site string, offset, limit int) ([]social.Relation, error) {
		return h.social.FollowingList(c.Request.Context(), user, site, offset, limit)
	})
}

func (h *Handler) friendList(c *gin.Context) {
	h.listRelations(c, func(c *gin.Context, user, site string, offset, limit int) ([]social.Relation, error) {
		return h.social.FriendList(c.Request.Context(), user, site, offset, limit)
	})
}

func (h *Handler) userGroups(c *gin.Context) {
	ctx := c.Request.Context()
	user, site := c.Param("id"), c.Query("site")

	if role := c.Query("role"); role != "" {
		ids, err := h.social.GroupsWithRole(ctx, user, site, role)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_ids": ids, "role": role})
		return
	}

	offset, limit, ok := page(c)
	if !ok {
		return
	}
	groups, err := h.social.GroupList(ctx, user, site, offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memberships": groups, "offset": offset, "limit": limit})
}

func (h *Handler) follow(c *gin.Context) {
	if err := h.social.Follow(c.Request.Context(), actingUser(c), c.Param("id"), c.Query("site")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true})
}

func (h *Handler) unfollow(c *gin.Context) {
	deleted, err := h.social.Unfollow(c.Request.Context(), actingUser(c), c.Param("id"), c.Query("site"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false, "deleted": deleted})
}

func (h *Handler) toggleFollow(c *gin.Context) {
	following, err := h.social.ToggleFollow(c.Request.Context(), actingUser(c), c.Param("id"), c.Query("site"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

func (h *Handler) createProfileComment(c *gin.Context) {
	var req struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.feed.CreateProfileComment(c.Request.Context(), feed.NewProfileComment{
		Site:     c.Query("site"),
		Creator:  actingUser(c),
		Receiver: c.Param("id"),
		Comment:  req.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) profileComments(c *gin.Context) {
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	comments, err := h.feed.ProfileComments(c.Request.Context(), c.Param("id"), c.Query("site"), offset, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "offset": offset, "limit": limit})
}
