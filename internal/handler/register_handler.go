package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/CodeYourFuture/trainee-tracker/internal/service"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
	"github.com/CodeYourFuture/trainee-tracker/pkg/response"
)

type registerService interface {
	IngestRows(ctx context.Context, courseName string, inputs []service.RegisterRowInput) (int, error)
}

// RegisterHandler exposes attendance register ingestion.
type RegisterHandler struct {
	register registerService
}

// NewRegisterHandler builds a new handler.
func NewRegisterHandler(register registerService) *RegisterHandler {
	return &RegisterHandler{register: register}
}

type ingestRequest struct {
	Rows []service.RegisterRowInput `json:"rows" binding:"required"`
}

// Ingest validates and stores a batch of register rows for a course.
func (h *RegisterHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload"))
		return
	}

	stored, err := h.register.IngestRows(c.Request.Context(), c.Param("course"), req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"stored": stored})
}
