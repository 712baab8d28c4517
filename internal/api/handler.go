package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/service"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	upstream      *upstream.Client
	scorecard     *service.ScorecardService
	directory     *service.DirectoryService
	composer      *service.ComposerService
	notifications *service.NotificationService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	upstreamClient *upstream.Client,
	scorecard *service.ScorecardService,
	directory *service.DirectoryService,
	composer *service.ComposerService,
	notifications *service.NotificationService,
) *Handler {
	return &Handler{
		upstream:      upstreamClient,
		scorecard:     scorecard,
		directory:     directory,
		composer:      composer,
		notifications: notifications,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(sessionMiddleware())
	{
		v1.GET("/scorecard", h.getScorecard)
		v1.POST("/scorecard/recalculate", h.requireUser(), h.requireRole(models.RoleAdmin), h.recalculateScores)

		v1.GET("/vendors", h.getVendors)

		v1.POST("/orders", h.createOrders)
		v1.GET("/orders/batches/:batchID", h.getBatch)
		v1.POST("/orders/:id/approve", h.orderAction(upstream.OrderActionApprove))
		v1.POST("/orders/:id/reject", h.orderAction(upstream.OrderActionReject))
		v1.POST("/orders/:id/delivered", h.orderAction(upstream.OrderActionDelivered))

		v1.GET("/notifications", h.requireUser(), h.listNotifications)
		v1.POST("/notifications/:id/dismiss", h.requireUser(), h.dismissNotification)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getScorecard serves the aggregated vendor scorecard view
func (h *Handler) getScorecard(c *gin.Context) {
	view, err := h.scorecard.Scorecard(c.Request.Context(), sessionFrom(c))
	if err != nil {
		c.JSON(upstreamStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// recalculateScores triggers the backend recalculation job (admin only)
func (h *Handler) recalculateScores(c *gin.Context) {
	user := userFrom(c)

	if err := h.scorecard.Recalculate(c.Request.Context(), sessionFrom(c), user.Username); err != nil {
		c.JSON(recalcStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "recalculated",
	})
}

// getVendors serves the filtered, sorted vendor directory
func (h *Handler) getVendors(c *gin.Context) {
	filter, err := directoryFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	vendors, err := h.directory.Browse(c.Request.Context(), sessionFrom(c), filter)
	if err != nil {
		c.JSON(upstreamStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

func directoryFilterFromQuery(c *gin.Context) (service.DirectoryFilter, error) {
	defaults := service.DefaultSortState()
	filter := service.DirectoryFilter{
		Query:  c.Query("q"),
		Status: c.DefaultQuery("status", service.StatusAll),
	}

	switch filter.Status {
	case service.StatusAll, service.StatusActive, service.StatusInactive:
	default:
		return filter, errors.New("status must be one of all, active, inactive")
	}

	key := service.SortKey(c.DefaultQuery("sort", string(defaults.Key)))
	switch key {
	case service.SortByName, service.SortByScore, service.SortByOnTime, service.SortByStatus, service.SortByContact:
		filter.Key = key
	default:
		return filter, errors.New("sort must be one of name, score, on_time, status, contact")
	}

	// Direction defaults follow the sort key: asc for name, desc otherwise.
	dir := c.Query("dir")
	switch service.SortDirection(dir) {
	case service.SortAsc, service.SortDesc:
		filter.Direction = service.SortDirection(dir)
	case "":
		filter.Direction = service.DefaultDirection(key)
	default:
		return filter, errors.New("dir must be asc or desc")
	}

	return filter, nil
}

// createOrders composes a cart into per-supplier purchase orders
func (h *Handler) createOrders(c *gin.Context) {
	var input service.ComposeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.composer.Submit(c.Request.Context(), sessionFrom(c), input)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		if errors.Is(err, service.ErrBatchFailed) {
			// One combined failure for the whole operation; already-created
			// orders are reported, not rolled back.
			c.JSON(http.StatusBadGateway, gin.H{
				"error": err.Error(),
				"batch": result,
			})
			return
		}
		c.JSON(upstreamStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getBatch serves a journaled batch with its submissions
func (h *Handler) getBatch(c *gin.Context) {
	batch, submissions, err := h.composer.Batch(c.Request.Context(), c.Param("batchID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch":       batch,
		"submissions": submissions,
	})
}

// orderAction proxies an approve/reject/delivered transition upstream
func (h *Handler) orderAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order ID",
			})
			return
		}

		if err := h.upstream.OrderAction(c.Request.Context(), sessionFrom(c), orderID, action); err != nil {
			c.JSON(upstreamStatus(err), gin.H{
				"error": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": action,
		})
	}
}

// listNotifications serves the user's visible notifications
func (h *Handler) listNotifications(c *gin.Context) {
	user := userFrom(c)

	notifications, err := h.notifications.List(c.Request.Context(), sessionFrom(c), user.ID)
	if err != nil {
		c.JSON(upstreamStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// dismissNotification hides a notification locally for this user
func (h *Handler) dismissNotification(c *gin.Context) {
	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification ID",
		})
		return
	}

	user := userFrom(c)
	if err := h.notifications.Dismiss(c.Request.Context(), user.ID, notificationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "dismissed",
	})
}

// recalcStatus reports lock contention as a conflict; everything else
// follows the upstream mapping.
func recalcStatus(err error) int {
	if errors.Is(err, service.ErrRecalcInProgress) {
		return http.StatusConflict
	}
	return upstreamStatus(err)
}

// upstreamStatus maps a service error to an HTTP status: upstream API
// errors pass their status through, missing sessions are 401, anything
// else is a bad gateway.
func upstreamStatus(err error) int {
	if errors.Is(err, upstream.ErrNoSession) {
		return http.StatusUnauthorized
	}
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
