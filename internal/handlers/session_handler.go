package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/services"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession opens an adaptive session and returns its first item
// @Summary Start adaptive session
// @Tags adaptive
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Subject and test type"
// @Success 201 {object} services.StartSessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessment/irt/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	// Authenticated callers test themselves unless a subject is named.
	if req.SubjectID == "" {
		req.SubjectID = h.extractUserID(c)
	}

	h.LogRequest(c, "Starting adaptive session", "subject_id", req.SubjectID, "test_type", req.TestType)

	resp, err := h.sessionService.Start(requestContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SubmitAnswer records the answer to the pending item
// @Summary Submit answer
// @Tags adaptive
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param answer body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.SubmitAnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessment/irt/{session_id}/answer [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessionService.SubmitAnswer(requestContext(c), sessionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FinalizeSession returns the scoring report of a completed session
// @Summary Finalize session
// @Tags adaptive
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} models.SessionReport
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessment/irt/{session_id}/finalize [post]
func (h *SessionHandler) FinalizeSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	report, err := h.sessionService.Finalize(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// EndSession stops an in-progress session early and scores it
// @Summary End session
// @Tags adaptive
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} models.SessionReport
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessment/irt/{session_id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Ending adaptive session", "session_id", sessionID)

	report, err := h.sessionService.End(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AbandonSession marks an in-progress session as abandoned
// @Summary Abandon session
// @Tags adaptive
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessment/irt/{session_id}/abandon [post]
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Abandoning adaptive session", "session_id", sessionID)

	if err := h.sessionService.Abandon(requestContext(c), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session abandoned",
		Data:    gin.H{"session_id": sessionID},
	})
}

// GetSession returns a session with its pending item
// @Summary Get session
// @Tags adaptive
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessment/irt/{session_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	session, err := h.sessionService.Get(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSubjectSessions lists the sessions of one test-taker, newest first
// @Summary List sessions by subject
// @Tags adaptive
// @Produce json
// @Param subject_id path string true "Subject ID"
// @Param status query string false "Session status"
// @Param test_type query string false "Test type"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.SessionListResponse
// @Router /assessment/irt/subject/{subject_id} [get]
func (h *SessionHandler) ListSubjectSessions(c *gin.Context) {
	subjectID := ParseStringIDParam(c, "subject_id")
	if subjectID == "" {
		return
	}

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	filters := repositories.SessionFilters{
		Limit:     limit,
		Offset:    offset,
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.SessionStatus(status)
		filters.Status = &s
	}
	if testType := c.Query("test_type"); testType != "" {
		t := models.TestType(testType)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid test_type", Details: testType})
			return
		}
		filters.TestType = &t
	}

	resp, err := h.sessionService.ListBySubject(requestContext(c), subjectID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
