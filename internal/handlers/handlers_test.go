package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/adaptive-assessment/internal/engine"
	"github.com/SAP-F-2025/adaptive-assessment/internal/itembank"
	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/SAP-F-2025/adaptive-assessment/internal/repositories"
	"github.com/SAP-F-2025/adaptive-assessment/internal/services"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===== MOCKS =====

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Start(ctx context.Context, req *services.StartSessionRequest) (*services.StartSessionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*services.StartSessionResponse)
	return resp, args.Error(1)
}

func (m *MockSessionService) SubmitAnswer(ctx context.Context, sessionID string, req *services.SubmitAnswerRequest) (*services.SubmitAnswerResponse, error) {
	args := m.Called(ctx, sessionID, req)
	resp, _ := args.Get(0).(*services.SubmitAnswerResponse)
	return resp, args.Error(1)
}

func (m *MockSessionService) Finalize(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	args := m.Called(ctx, sessionID)
	report, _ := args.Get(0).(*models.SessionReport)
	return report, args.Error(1)
}

func (m *MockSessionService) End(ctx context.Context, sessionID string) (*models.SessionReport, error) {
	args := m.Called(ctx, sessionID)
	report, _ := args.Get(0).(*models.SessionReport)
	return report, args.Error(1)
}

func (m *MockSessionService) Abandon(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) Get(ctx context.Context, sessionID string) (*services.SessionResponse, error) {
	args := m.Called(ctx, sessionID)
	resp, _ := args.Get(0).(*services.SessionResponse)
	return resp, args.Error(1)
}

func (m *MockSessionService) ListBySubject(ctx context.Context, subjectID string, filters repositories.SessionFilters) (*services.SessionListResponse, error) {
	args := m.Called(ctx, subjectID, filters)
	resp, _ := args.Get(0).(*services.SessionListResponse)
	return resp, args.Error(1)
}

type MockItemBankService struct {
	mock.Mock
}

func (m *MockItemBankService) Bank(ctx context.Context) (*itembank.Bank, error) {
	args := m.Called(ctx)
	bank, _ := args.Get(0).(*itembank.Bank)
	return bank, args.Error(1)
}

func (m *MockItemBankService) CreateItem(ctx context.Context, req *services.CreateItemRequest) (*models.Item, error) {
	args := m.Called(ctx, req)
	item, _ := args.Get(0).(*models.Item)
	return item, args.Error(1)
}

func (m *MockItemBankService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.Item)
	return item, args.Error(1)
}

func (m *MockItemBankService) ListItems(ctx context.Context, filters repositories.ItemFilters) (*services.ItemListResponse, error) {
	args := m.Called(ctx, filters)
	resp, _ := args.Get(0).(*services.ItemListResponse)
	return resp, args.Error(1)
}

func (m *MockItemBankService) Invalidate() {
	m.Called()
}

type MockImportExportService struct {
	mock.Mock
}

func (m *MockImportExportService) ImportItems(ctx context.Context, reader io.Reader, filename string) (*models.ImportSummary, error) {
	args := m.Called(ctx, reader, filename)
	summary, _ := args.Get(0).(*models.ImportSummary)
	return summary, args.Error(1)
}

func (m *MockImportExportService) ImportItemsFromCSV(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	args := m.Called(ctx, reader)
	summary, _ := args.Get(0).(*models.ImportSummary)
	return summary, args.Error(1)
}

func (m *MockImportExportService) ImportItemsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	args := m.Called(ctx, reader)
	summary, _ := args.Get(0).(*models.ImportSummary)
	return summary, args.Error(1)
}

func (m *MockImportExportService) ExportItemsToExcel(ctx context.Context, filters repositories.ItemFilters) ([]byte, error) {
	args := m.Called(ctx, filters)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockImportExportService) ExportSubjectResults(ctx context.Context, subjectID string) ([]byte, error) {
	args := m.Called(ctx, subjectID)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type stubParser struct {
	claims *casdoorsdk.Claims
	err    error
}

func (p stubParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	return p.claims, p.err
}

// ===== SETUP =====

type testServer struct {
	router   *gin.Engine
	sessions *MockSessionService
	items    *MockItemBankService
	files    *MockImportExportService
}

func newTestServer(auth gin.HandlerFunc) *testServer {
	gin.SetMode(gin.TestMode)
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := &testServer{
		router:   gin.New(),
		sessions: new(MockSessionService),
		items:    new(MockItemBankService),
		files:    new(MockImportExportService),
	}
	ts.router.Use(utils.RequestID())
	NewHandlerManager(ts.sessions, ts.items, ts.files, auth, logger).SetupRoutes(ts.router)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// ===== TESTS =====

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(nil)

	w := ts.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))
}

func TestSessionHandler_StartSession(t *testing.T) {
	ts := newTestServer(nil)
	ts.sessions.On("Start", mock.Anything, &services.StartSessionRequest{SubjectID: "learner-1", TestType: models.TestPlacement}).
		Return(&services.StartSessionResponse{
			SessionID:     "s-1",
			FirstItem:     &services.PresentedItem{ID: "item-04", Type: models.MultipleChoice, Prompt: "Pick one"},
			StandardError: 1,
		}, nil)

	w := ts.do(http.MethodPost, "/api/v1/assessment/irt/start", gin.H{"subject_id": "learner-1", "test_type": "placement"})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[services.StartSessionResponse](t, w)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "item-04", resp.FirstItem.ID)
	assert.NotContains(t, w.Body.String(), "answer_key")
	ts.sessions.AssertExpectations(t)
}

func TestSessionHandler_StartSessionBadJSON(t *testing.T) {
	ts := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessment/irt/start", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ts.sessions.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestSessionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", services.ValidationErrors{}.Add("subject_id", "is required", nil), http.StatusBadRequest, "validation_error"},
		{"negative time", engine.ErrInvalidResponseTime, http.StatusBadRequest, "validation_error"},
		{"not found", services.ErrSessionNotFound, http.StatusNotFound, "not_found"},
		{"out of order", engine.ErrOutOfOrderSubmission, http.StatusConflict, "conflict"},
		{"terminal", engine.ErrSessionTerminal, http.StatusConflict, "conflict"},
		{"stale version", services.ErrSessionConflict, http.StatusConflict, "conflict"},
		{"abandoned", engine.ErrSessionAbandoned, http.StatusUnprocessableEntity, "business_rule"},
		{"pool exhausted", itembank.ErrPoolExhausted, http.StatusUnprocessableEntity, "business_rule"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			ts.sessions.On("SubmitAnswer", mock.Anything, "s-1", mock.Anything).Return(nil, tt.err)

			w := ts.do(http.MethodPost, "/api/v1/assessment/irt/s-1/answer", gin.H{"item_id": "item-01", "answer_value": "A"})

			assert.Equal(t, tt.status, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code, resp.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "disk on fire")
			}
		})
	}
}

func TestSessionHandler_SubmitAnswer(t *testing.T) {
	ts := newTestServer(nil)
	ts.sessions.On("SubmitAnswer", mock.Anything, "s-1", &services.SubmitAnswerRequest{
		ItemID:              "item-04",
		AnswerValue:         "B",
		ResponseTimeSeconds: 14.5,
	}).Return(&services.SubmitAnswerResponse{
		IsCorrect:  true,
		NewAbility: 0.61,
		Completed:  true,
		StopReason: models.StopPrecisionReached,
		Report:     &models.SessionReport{SessionID: "s-1", BandCode: "B1"},
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/assessment/irt/s-1/answer",
		gin.H{"item_id": "item-04", "answer_value": "B", "response_time_seconds": 14.5})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[services.SubmitAnswerResponse](t, w)
	assert.True(t, resp.Completed)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "B1", resp.Report.BandCode)
}

func TestSessionHandler_LifecycleRoutes(t *testing.T) {
	ts := newTestServer(nil)
	report := &models.SessionReport{SessionID: "s-1", BandCode: "A2", StopReason: models.StopEndedByCaller}
	ts.sessions.On("Finalize", mock.Anything, "s-1").Return(report, nil)
	ts.sessions.On("End", mock.Anything, "s-1").Return(report, nil)
	ts.sessions.On("Abandon", mock.Anything, "s-2").Return(nil)
	ts.sessions.On("Get", mock.Anything, "s-1").Return(&services.SessionResponse{
		Session:     &models.Session{ID: "s-1", Status: models.SessionInProgress},
		CurrentItem: &services.PresentedItem{ID: "item-02"},
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/assessment/irt/s-1/finalize", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A2", decode[models.SessionReport](t, w).BandCode)

	w = ts.do(http.MethodPost, "/api/v1/assessment/irt/s-1/end", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/v1/assessment/irt/s-2/abandon", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Session abandoned", decode[SuccessResponse](t, w).Message)

	w = ts.do(http.MethodGet, "/api/v1/assessment/irt/s-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "s-1", body["id"])
	assert.Equal(t, "in_progress", body["status"])
	assert.NotNil(t, body["current_item"])

	ts.sessions.AssertExpectations(t)
}

func TestSessionHandler_ListSubjectSessions(t *testing.T) {
	ts := newTestServer(nil)
	status := models.SessionCompleted
	testType := models.TestProgress
	ts.sessions.On("ListBySubject", mock.Anything, "learner-1", repositories.SessionFilters{
		Status:    &status,
		TestType:  &testType,
		Limit:     5,
		Offset:    10,
		SortOrder: "asc",
	}).Return(&services.SessionListResponse{Total: 12, Limit: 5, Offset: 10}, nil)

	w := ts.do(http.MethodGet, "/api/v1/assessment/irt/subject/learner-1?status=completed&test_type=progress&limit=5&offset=10&sort_order=asc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), decode[services.SessionListResponse](t, w).Total)

	w = ts.do(http.MethodGet, "/api/v1/assessment/irt/subject/learner-1?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/assessment/irt/subject/learner-1?test_type=final", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandler_CreateAndList(t *testing.T) {
	ts := newTestServer(nil)
	ts.items.On("CreateItem", mock.Anything, mock.AnythingOfType("*services.CreateItemRequest")).
		Return(&models.Item{ID: "gr-1", Type: models.TrueFalse, AnswerKey: "true"}, nil)
	itemType := models.TrueFalse
	minDifficulty := -1.5
	ts.items.On("ListItems", mock.Anything, repositories.ItemFilters{
		Type:          &itemType,
		ActiveOnly:    true,
		MinDifficulty: &minDifficulty,
		Limit:         20,
	}).Return(&services.ItemListResponse{Total: 1, Items: []*models.Item{{ID: "gr-1"}}}, nil)

	w := ts.do(http.MethodPost, "/api/v1/items", gin.H{"id": "gr-1", "type": "true_false", "answer_key": "true"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "answer_key")

	w = ts.do(http.MethodGet, "/api/v1/items?type=true_false&active_only=true&min_difficulty=-1.5&limit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[services.ItemListResponse](t, w).Total)

	w = ts.do(http.MethodGet, "/api/v1/items?type=essay", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.items.AssertExpectations(t)
}

func TestItemHandler_GetItemNotFound(t *testing.T) {
	ts := newTestServer(nil)
	ts.items.On("GetItem", mock.Anything, "missing").Return(nil, services.ErrItemNotFound)

	w := ts.do(http.MethodGet, "/api/v1/items/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemHandler_ImportItems(t *testing.T) {
	ts := newTestServer(nil)
	ts.files.On("ImportItems", mock.Anything, mock.Anything, "bank.csv").
		Return(&models.ImportSummary{FileName: "bank.csv", Status: models.ImportCompleted, SuccessCount: 3}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "bank.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("id,difficulty,discrimination,type,answer_key\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.ImportSummary](t, w)
	assert.Equal(t, 3, summary.SuccessCount)

	w = ts.do(http.MethodPost, "/api/v1/items/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItemHandler_Exports(t *testing.T) {
	ts := newTestServer(nil)
	ts.files.On("ExportItemsToExcel", mock.Anything, mock.Anything).Return([]byte("items"), nil)
	ts.files.On("ExportSubjectResults", mock.Anything, "learner-1").Return([]byte("results"), nil)

	w := ts.do(http.MethodGet, "/api/v1/items/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "items", w.Body.String())

	w = ts.do(http.MethodGet, "/api/v1/results/learner-1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "results-learner-1.xlsx")
}

func TestAuthMiddleware(t *testing.T) {
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	claims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "user-42", Name: "ana"}}

	t.Run("missing token", func(t *testing.T) {
		ts := newTestServer(AuthMiddleware(stubParser{claims: claims}, logger))

		w := ts.do(http.MethodGet, "/api/v1/items/gr-1", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		ts.items.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		ts := newTestServer(AuthMiddleware(stubParser{err: errors.New("bad signature")}, logger))

		w := ts.do(http.MethodGet, "/api/v1/items/gr-1", nil, "Authorization", "Bearer abc")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("subject defaults to caller", func(t *testing.T) {
		ts := newTestServer(AuthMiddleware(stubParser{claims: claims}, logger))
		ts.sessions.On("Start", mock.Anything, &services.StartSessionRequest{SubjectID: "user-42", TestType: models.TestDiagnostic}).
			Return(&services.StartSessionResponse{SessionID: "s-9"}, nil)

		w := ts.do(http.MethodPost, "/api/v1/assessment/irt/start", gin.H{"test_type": "diagnostic"},
			"Authorization", "Bearer good")

		assert.Equal(t, http.StatusCreated, w.Code)
		ts.sessions.AssertExpectations(t)
	})

	t.Run("caller forwarded and refusal mapped to 403", func(t *testing.T) {
		ts := newTestServer(AuthMiddleware(stubParser{claims: claims}, logger))
		asLearner := mock.MatchedBy(func(ctx context.Context) bool {
			caller, ok := services.CallerFrom(ctx)
			return ok && caller == services.Caller{UserID: "user-42"}
		})
		ts.sessions.On("Get", asLearner, "s-other").Return(nil, services.ErrForbidden)
		ts.files.On("ExportSubjectResults", asLearner, "user-7").Return(nil, services.ErrForbidden)

		w := ts.do(http.MethodGet, "/api/v1/assessment/irt/s-other", nil, "Authorization", "Bearer good")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decode[ErrorResponse](t, w).Code)

		w = ts.do(http.MethodGet, "/api/v1/results/user-7/export", nil, "Authorization", "Bearer good")
		assert.Equal(t, http.StatusForbidden, w.Code)

		ts.sessions.AssertExpectations(t)
		ts.files.AssertExpectations(t)
	})

	t.Run("admin flag forwarded", func(t *testing.T) {
		adminClaims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "proctor-1", Name: "root", IsAdmin: true}}
		ts := newTestServer(AuthMiddleware(stubParser{claims: adminClaims}, logger))
		asAdmin := mock.MatchedBy(func(ctx context.Context) bool {
			caller, ok := services.CallerFrom(ctx)
			return ok && caller.Admin && caller.UserID == "proctor-1"
		})
		ts.sessions.On("Get", asAdmin, "s-1").
			Return(&services.SessionResponse{Session: &models.Session{ID: "s-1", SubjectID: "user-42"}}, nil)

		w := ts.do(http.MethodGet, "/api/v1/assessment/irt/s-1", nil, "Authorization", "Bearer good")

		assert.Equal(t, http.StatusOK, w.Code)
		ts.sessions.AssertExpectations(t)
	})

	t.Run("health stays public", func(t *testing.T) {
		ts := newTestServer(AuthMiddleware(stubParser{err: errors.New("unused")}, logger))

		w := ts.do(http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
