// Package api exposes the social graph over HTTP with gin.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"social-network/backend/internal/feed"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/metrics"
	"social-network/backend/internal/social"
	"social-network/backend/internal/workflow"
)

// UserHeader carries the ID of the acting user.
const UserHeader = "X-User-ID"

const ctxUserKey = "acting_user"

// Handler holds the services behind the HTTP routes.
type Handler struct {
	social      *social.Service
	friends     *workflow.FriendRequests
	memberships *workflow.MembershipRequests
	feed        *feed.Projector
	log         *zap.Logger
}

// NewHandler builds every service over g.
func NewHandler(g *graph.GraphStore, log *zap.Logger) *Handler {
	return &Handler{
		social:      social.NewService(g),
		friends:     workflow.NewFriendRequests(g),
		memberships: workflow.NewMembershipRequests(g),
		feed:        feed.NewProjector(g),
		log:         log,
	}
}

// NewRouter wires the routes of h into a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())
	router.Use(httpMetrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// Profiles and follows
		api.GET("/users/:id/profile", h.profile)
		api.GET("/users/:id/followers", h.followerList)
		api.GET("/users/:id/following", h.followingList)
		api.GET("/users/:id/friends", h.friendList)
		api.GET("/users/:id/groups", h.userGroups)
		api.POST("/users/:id/follow", requireUser(), h.follow)
		api.DELETE("/users/:id/follow", requireUser(), h.unfollow)
		api.POST("/users/:id/follow/toggle", requireUser(), h.toggleFollow)
		api.GET("/users/:id/comments", h.profileComments)
		api.POST("/users/:id/comments", requireUser(), h.createProfileComment)

		// Friend requests
		api.POST("/friend-requests", requireUser(), h.createFriendRequest)
		api.GET("/friend-requests/incoming", requireUser(), h.incomingFriendRequests)
		api.GET("/friend-requests/:id", h.getFriendRequest)
		api.POST("/friend-requests/:id/accept", requireUser(), h.acceptFriendRequest)
		api.POST("/friend-requests/:id/deny", requireUser(), h.denyFriendRequest)

		// Groups
		api.POST("/groups", requireUser(), h.createGroup)
		api.GET("/groups/:id", h.getGroup)
		api.PATCH("/groups/:id", requireUser(), h.updateGroup)
		api.GET("/sites/:site/groups/:slug", h.groupBySlug)
		api.GET("/groups/:id/members", h.members)
		api.POST("/groups/:id/members", requireUser(), h.addMember)
		api.POST("/groups/:id/join", requireUser(), h.join)
		api.GET("/groups/:id/administrators", h.administrators)
		api.POST("/groups/:id/administrators", requireUser(), h.addAdministrators)
		api.DELETE("/groups/:id/administrators", requireUser(), h.removeAdministrators)

		// Membership requests
		api.POST("/groups/:id/membership-requests", requireUser(), h.createMembershipRequest)
		api.GET("/groups/:id/membership-requests", requireUser(), h.pendingMembershipRequests)
		api.POST("/membership-requests/:id/accept", requireUser(), h.acceptMembershipRequest)
		api.POST("/membership-requests/:id/deny", requireUser(), h.denyMembershipRequest)

		// Posts and feed
		api.POST("/groups/:id/posts", requireUser(), h.createPost)
		api.GET("/posts/:id", h.getPost)
		api.PATCH("/posts/:id", requireUser(), h.updatePost)
		api.DELETE("/posts/:id", requireUser(), h.deletePost)
		api.GET("/groups/:id/feed", h.groupFeed)
	}

	return router
}

// requireUser rejects requests without an acting user.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(UserHeader)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UserHeader + " header is required"})
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

func actingUser(c *gin.Context) string {
	return c.GetString(ctxUserKey)
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("user", c.GetHeader(UserHeader)),
		)
	}
}

func httpMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
