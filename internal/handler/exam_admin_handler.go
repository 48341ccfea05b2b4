package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ResultLister pages through persisted exam results.
type ResultLister interface {
	ListByExam(ctx context.Context, examID string, page, perPage int) ([]model.ExamResult, int, error)
}

// ExamAdminHandler handles answer key maintenance and result listing.
type ExamAdminHandler struct {
	sessionService *service.ExamSessionService
	results        ResultLister
	log            zerolog.Logger
}

// NewExamAdminHandler creates a new ExamAdminHandler.
func NewExamAdminHandler(sessionService *service.ExamSessionService, results ResultLister, log zerolog.Logger) *ExamAdminHandler {
	return &ExamAdminHandler{
		sessionService: sessionService,
		results:        results,
		log:            log.With().Str("component", "exam_admin_handler").Logger(),
	}
}

// StoreAnswerKey godoc
// PUT /api/v1/admin/exams/:exam_id/answer-key
// Replaces the answer key with the JSON object in the body.
func (h *ExamAdminHandler) StoreAnswerKey(c *gin.Context) {
	examID := c.Param("exam_id")
	if !validID(examID) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	stored, err := h.sessionService.StoreAnswerKeyJSON(examID, raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, stored)
}

// RefreshAnswerKey godoc
// POST /api/v1/admin/exams/:exam_id/answer-key/refresh
// Re-derives the answer key from the current exam definition.
func (h *ExamAdminHandler) RefreshAnswerKey(c *gin.Context) {
	examID := c.Param("exam_id")
	if !validID(examID) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stored, err := h.sessionService.RefreshAnswerKey(c.Request.Context(), examID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, stored)
}

// ListResults godoc
// GET /api/v1/admin/exams/:exam_id/results?page=1&per_page=20
// Lists persisted results for an exam, newest first.
func (h *ExamAdminHandler) ListResults(c *gin.Context) {
	examID := c.Param("exam_id")
	if !validID(examID) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := parsePagination(c)
	results, total, err := h.results.ListByExam(c.Request.Context(), examID, page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	if results == nil {
		results = []model.ExamResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, results, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

func (h *ExamAdminHandler) fail(c *gin.Context, err error) {
	if status := response.FailFromError(c, err); status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
}

func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
