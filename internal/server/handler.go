package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kadrisk/internal/check"
	"kadrisk/internal/logger"
	"kadrisk/pkg/errors"
	"kadrisk/pkg/middleware"
	"kadrisk/pkg/models"
)

type CheckRunner interface {
	Run(ctx context.Context, req models.CheckRequest) check.Result
}

type CheckHandler struct {
	runner CheckRunner
	logger logger.Logger
}

func NewCheckHandler(runner CheckRunner, log logger.Logger) *CheckHandler {
	return &CheckHandler{runner: runner, logger: log}
}

func (h *CheckHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/checks", h.CreateCheck)
}

func (h *CheckHandler) handleError(c *gin.Context, err error) {
	h.logger.WarnwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// CreateCheck runs a check synchronously and returns {facts, signals}. The
// run status lives inside facts, so a blocked source is still a 200.
func (h *CheckHandler) CreateCheck(c *gin.Context) {
	var req models.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	req.Normalize(func() string { return c.GetString(middleware.RequestIDKey) })
	if err := models.ValidateCheckRequest(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithMessage(err.Error()))
		return
	}

	res := h.runner.Run(c.Request.Context(), req)
	c.Header("X-Check-ID", req.ID)
	c.JSON(http.StatusOK, res)
}
