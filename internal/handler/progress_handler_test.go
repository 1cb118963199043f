package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
	appErrors "github.com/CodeYourFuture/trainee-tracker/pkg/errors"
	"github.com/CodeYourFuture/trainee-tracker/pkg/response"
)

type trackerServiceMock struct {
	batchResp   *models.Batch
	batchErr    error
	scoresResp  []models.TraineeScore
	scoresErr   error
	unknownResp []models.Pr
	unknownErr  error
	lastCourse  string
	lastBatch   string
}

func (m *trackerServiceMock) Batch(ctx context.Context, courseName, batchName string) (*models.Batch, error) {
	m.lastCourse = courseName
	m.lastBatch = batchName
	return m.batchResp, m.batchErr
}

func (m *trackerServiceMock) Scores(ctx context.Context, courseName, batchName string) ([]models.TraineeScore, error) {
	m.lastCourse = courseName
	m.lastBatch = batchName
	return m.scoresResp, m.scoresErr
}

func (m *trackerServiceMock) UnknownPrs(ctx context.Context, courseName, batchName string) ([]models.Pr, error) {
	return m.unknownResp, m.unknownErr
}

func batchRequest(t *testing.T, target string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{
		{Key: "course", Value: "itp"},
		{Key: "batch", Value: "March-2025"},
	}
	return w, c
}

func TestProgressHandlerBatch(t *testing.T) {
	mockSvc := &trackerServiceMock{batchResp: &models.Batch{Name: "March-2025"}}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/itp/batches/March-2025")
	h.Batch(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "itp", mockSvc.lastCourse)
	assert.Equal(t, "March-2025", mockSvc.lastBatch)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data)
}

func TestProgressHandlerBatchNotFound(t *testing.T) {
	mockSvc := &trackerServiceMock{batchErr: appErrors.Clone(appErrors.ErrNotFound, "course missing is not in the schedule")}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/missing/batches/March-2025")
	h.Batch(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressHandlerScores(t *testing.T) {
	mockSvc := &trackerServiceMock{scoresResp: []models.TraineeScore{{
		Trainee: models.Trainee{GithubLogin: "janedoe"},
		Score:   7500,
		Status:  models.StatusOnTrack,
	}}}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/itp/batches/March-2025/scores")
	h.Scores(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "janedoe")
	assert.Contains(t, w.Body.String(), "on_track")
}

func TestProgressHandlerUnknownPrs(t *testing.T) {
	mockSvc := &trackerServiceMock{unknownResp: []models.Pr{{Number: 9, Title: "mystery"}}}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/itp/batches/March-2025/unknown-prs")
	h.UnknownPrs(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mystery")
}

func TestProgressHandlerExportCSV(t *testing.T) {
	mockSvc := &trackerServiceMock{scoresResp: []models.TraineeScore{{
		Trainee:    models.Trainee{GithubLogin: "janedoe", Name: "Jane Doe", Region: "London"},
		Score:      7500,
		Status:     models.StatusOnTrack,
		Attendance: models.Fraction{Numerator: 3, Denominator: 4},
	}}}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/itp/batches/March-2025/export?format=csv")
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "itp-March-2025-progress.csv")
	body := w.Body.String()
	assert.Contains(t, body, "GitHub Login")
	assert.Contains(t, body, "janedoe")
	assert.Contains(t, body, "75.00%")
	assert.Contains(t, body, "3/4")
}

func TestProgressHandlerExportPDF(t *testing.T) {
	mockSvc := &trackerServiceMock{scoresResp: []models.TraineeScore{{
		Trainee: models.Trainee{GithubLogin: "janedoe"},
	}}}
	h := NewProgressHandler(mockSvc)

	w, c := batchRequest(t, "/courses/itp/batches/March-2025/export?format=pdf")
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, len(w.Body.Bytes()) > 0)
}

func TestProgressHandlerExportBadFormat(t *testing.T) {
	h := NewProgressHandler(&trackerServiceMock{})

	w, c := batchRequest(t, "/courses/itp/batches/March-2025/export?format=xml")
	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
