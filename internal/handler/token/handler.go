package token

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pobredward/inschoolz-push-api/internal/handler"
	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/service/registry"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
)

type Handler struct {
	registry registry.Service
}

func NewHandler(registry registry.Service) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/:id/tokens", h.ListTokens)
		users.PUT("/:id/tokens", h.RegisterToken)
		users.DELETE("/:id/tokens/:platform", h.UnregisterToken)
	}
}

type RegisterTokenRequest struct {
	Platform string `json:"platform" binding:"required,platform"`
	Token    string `json:"token" binding:"required"`
	DeviceID string `json:"device_id"`
}

func (h *Handler) ListTokens(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	tokens, err := h.registry.Destinations(c.Request.Context(), userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) RegisterToken(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token := &model.PushToken{
		UserID:   userID,
		Platform: model.Platform(req.Platform),
		Token:    req.Token,
		DeviceID: req.DeviceID,
	}

	if err := h.registry.Register(c.Request.Context(), token); err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(token))
}

func (h *Handler) UnregisterToken(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	platform := model.Platform(c.Param("platform"))
	if err := h.registry.Unregister(c.Request.Context(), userID, platform); err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "token removed"}))
}
