package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pobredward/inschoolz-push-api/internal/handler"
	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/service/dispatch"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
	"github.com/pobredward/inschoolz-push-api/pkg/messaging"
)

type Handler struct {
	service dispatch.Service
	broker  messaging.Broker
}

func NewHandler(service dispatch.Service, broker messaging.Broker) *Handler {
	return &Handler{service: service, broker: broker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.Dispatch)
		notifications.POST("/broadcast", h.Broadcast)
		notifications.POST("/queue", h.Enqueue)
	}
}

type DispatchRequest struct {
	UserID  string        `json:"user_id" binding:"required,uuid"`
	Kind    string        `json:"kind" binding:"required"`
	Context model.Context `json:"context"`
}

type BroadcastRequest struct {
	UserIDs []string      `json:"user_ids" binding:"required,min=1,dive,uuid"`
	Kind    string        `json:"kind" binding:"required"`
	Context model.Context `json:"context"`
}

// Dispatch sends one notification event synchronously and returns the
// aggregate report. Unknown kinds are accepted; the composer handles
// them generically.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	event := model.NewEvent(model.Kind(req.Kind), userID, req.Context)

	report, err := h.service.Dispatch(c.Request.Context(), event)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, _ := uuid.Parse(raw)
		userIDs = append(userIDs, id)
	}

	report, err := h.service.Broadcast(c.Request.Context(), userIDs, model.Kind(req.Kind), req.Context)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

// Enqueue publishes the event to the broker for the worker to dispatch.
// The caller gets an acknowledgement, not a delivery report.
func (h *Handler) Enqueue(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	event := model.NewEvent(model.Kind(req.Kind), userID, req.Context)

	if err := h.broker.Publish(c.Request.Context(), messaging.NotificationsChannel, event); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"event_id": event.ID}))
}
