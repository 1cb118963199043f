package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
	"github.com/CodeYourFuture/trainee-tracker/pkg/export"
	"github.com/CodeYourFuture/trainee-tracker/pkg/response"
)

type trackerService interface {
	Batch(ctx context.Context, courseName, batchName string) (*models.Batch, error)
	Scores(ctx context.Context, courseName, batchName string) ([]models.TraineeScore, error)
	UnknownPrs(ctx context.Context, courseName, batchName string) ([]models.Pr, error)
}

// ProgressHandler exposes batch progress endpoints.
type ProgressHandler struct {
	tracker trackerService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewProgressHandler builds a new handler.
func NewProgressHandler(tracker trackerService) *ProgressHandler {
	return &ProgressHandler{
		tracker: tracker,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// Batch returns the full matched submission tree for a batch.
func (h *ProgressHandler) Batch(c *gin.Context) {
	batch, err := h.tracker.Batch(c.Request.Context(), c.Param("course"), c.Param("batch"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch)
}

// Scores returns the per-trainee progress summary for a batch.
func (h *ProgressHandler) Scores(c *gin.Context) {
	scores, err := h.tracker.Scores(c.Request.Context(), c.Param("course"), c.Param("batch"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores)
}

// UnknownPrs returns the batch's open pull requests that matched nothing.
func (h *ProgressHandler) UnknownPrs(c *gin.Context) {
	prs, err := h.tracker.UnknownPrs(c.Request.Context(), c.Param("course"), c.Param("batch"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prs)
}

// Export renders the batch's score summary as a downloadable CSV or PDF.
func (h *ProgressHandler) Export(c *gin.Context) {
	courseName := c.Param("course")
	batchName := c.Param("batch")
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	scores, err := h.tracker.Scores(c.Request.Context(), courseName, batchName)
	if err != nil {
		response.Error(c, err)
		return
	}
	report := scoreReport(courseName, batchName, scores)

	var payload []byte
	var contentType string
	switch format {
	case "pdf":
		payload, err = h.pdf.Render(report)
		contentType = "application/pdf"
	default:
		payload, err = h.csv.Render(report)
		contentType = "text/csv"
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export"))
		return
	}

	filename := fmt.Sprintf("%s-%s-progress.%s", courseName, batchName, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

func scoreReport(courseName, batchName string, scores []models.TraineeScore) export.Report {
	rows := make([][]string, 0, len(scores))
	for _, score := range scores {
		rows = append(rows, []string{
			score.Trainee.GithubLogin,
			score.Trainee.Name,
			string(score.Trainee.Region),
			fmt.Sprintf("%.2f%%", float64(score.Score)/100),
			string(score.Status),
			fmt.Sprintf("%d/%d", score.Attendance.Numerator, score.Attendance.Denominator),
		})
	}
	return export.Report{
		Title:   fmt.Sprintf("%s %s progress", courseName, batchName),
		Headers: []string{"GitHub Login", "Name", "Region", "Score", "Status", "Attendance"},
		Rows:    rows,
	}
}
