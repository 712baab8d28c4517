package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	userKey    = "user"
)

// sessionMiddleware builds the per-request upstream session from the
// incoming bearer token. No token means no session; the credential is
// never stored globally.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "no session",
			})
			return
		}

		c.Set(sessionKey, upstream.NewSession(token))
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *upstream.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*upstream.Session); ok {
			return s
		}
	}
	return nil
}

func userFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// requireUser resolves the authenticated account from the backend and
// stashes it in the request context.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.upstream.CurrentUser(c.Request.Context(), sessionFrom(c))
		if err != nil {
			c.AbortWithStatusJSON(upstreamStatus(err), gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// requireRole gates a route on the closed role set. Unknown role strings
// are rejected rather than treated as any known role.
func (h *Handler) requireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := userFrom(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "no session",
			})
			return
		}

		role, err := models.ParseRole(user.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "unrecognized role",
			})
			return
		}

		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient role",
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
