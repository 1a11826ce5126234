package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/middleware"
	"github.com/noah-isme/dept-slot-api/internal/models"
	"github.com/noah-isme/dept-slot-api/internal/service"
	appErrors "github.com/noah-isme/dept-slot-api/pkg/errors"
	"github.com/noah-isme/dept-slot-api/pkg/middleware/requestid"
)

type fakeSlotSrv struct {
	slots     []models.Slot
	initResp  *dto.InitializeSlotsResponse
	lastQuery dto.TeacherSlotQuery
	lastPref  dto.TeacherSlotPreferenceRequest
	lastBatch dto.BatchAssignmentsRequest
	batchResp *dto.BatchResult
	err       error
}

func (f *fakeSlotSrv) List(context.Context) ([]models.Slot, error) {
	return f.slots, f.err
}

func (f *fakeSlotSrv) InitializeDefaults(context.Context) (*dto.InitializeSlotsResponse, error) {
	return f.initResp, f.err
}

func (f *fakeSlotSrv) TeacherSlots(_ context.Context, q dto.TeacherSlotQuery) (*dto.TeacherSlotsResponse, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &dto.TeacherSlotsResponse{Assignments: []models.TeacherSlotAssignmentDetail{}}, nil
}

func (f *fakeSlotSrv) SaveTeacherPreference(_ context.Context, req dto.TeacherSlotPreferenceRequest) (*dto.BatchResult, error) {
	f.lastPref = req
	return f.batchResp, f.err
}

func (f *fakeSlotSrv) SaveBatch(_ context.Context, req dto.BatchAssignmentsRequest) (*dto.BatchResult, error) {
	f.lastBatch = req
	return f.batchResp, f.err
}

type fakeSummarySrv struct {
	summary *models.DepartmentSummary
	hit     bool
	deptID  string
}

func (f *fakeSummarySrv) DepartmentSummary(_ context.Context, deptID string) (*models.DepartmentSummary, bool, error) {
	f.deptID = deptID
	return f.summary, f.hit, nil
}

type fakeExportSrv struct {
	format models.ExportFormat
}

func (f *fakeExportSrv) DepartmentSummary(_ context.Context, deptID string, format models.ExportFormat) (*service.ExportFile, error) {
	f.format = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "slot-summary-" + deptID + ".csv", ContentType: "text/csv", Data: []byte("Slot\n")}, nil
}

type slotEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newSlotRouter(slots *fakeSlotSrv, summaries *fakeSummarySrv, exports *fakeExportSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware(), middleware.WithResponseMeta())
	Register(router.Group("/api"), Handlers{Slots: NewSlotHandler(slots, summaries, exports)})
	return router
}

func doRequest(router http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, slotEnvelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var envelope slotEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return rec, envelope
}

func TestSlotHandlerList(t *testing.T) {
	router := newSlotRouter(&fakeSlotSrv{slots: []models.Slot{{ID: "slot-a", Type: models.SlotTypeA}}}, nil, nil)

	rec, envelope := doRequest(router, http.MethodGet, "/api/slots/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var slots []models.Slot
	require.NoError(t, json.Unmarshal(envelope.Data, &slots))
	assert.Equal(t, "slot-a", slots[0].ID)
	assert.NotEmpty(t, envelope.Meta["request_id"])
}

func TestSlotHandlerInitializeDefaults(t *testing.T) {
	srv := &fakeSlotSrv{initResp: &dto.InitializeSlotsResponse{Created: 3}}
	router := newSlotRouter(srv, nil, nil)

	rec, _ := doRequest(router, http.MethodPost, "/api/slots/initialize-default-slots/", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	srv.initResp = &dto.InitializeSlotsResponse{Created: 0}
	rec, _ = doRequest(router, http.MethodPost, "/api/slots/initialize-default-slots/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSlotHandlerTeacherSlotsParsesQuery(t *testing.T) {
	srv := &fakeSlotSrv{}
	router := newSlotRouter(srv, nil, nil)

	rec, _ := doRequest(router, http.MethodGet, "/api/slots/teacher-slots/?day_of_week=wed&dept_id=dept-1&slot_type=b&include_stats=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastQuery.DayOfWeek)
	assert.Equal(t, models.Wednesday, *srv.lastQuery.DayOfWeek)
	assert.Equal(t, "dept-1", srv.lastQuery.DeptID)
	assert.Equal(t, models.SlotTypeB, srv.lastQuery.SlotType)
	assert.True(t, srv.lastQuery.IncludeStats)
}

func TestSlotHandlerTeacherSlotsRejectsBadQuery(t *testing.T) {
	router := newSlotRouter(&fakeSlotSrv{}, nil, nil)

	rec, envelope := doRequest(router, http.MethodGet, "/api/slots/teacher-slots/?day_of_week=sunday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)

	rec, _ = doRequest(router, http.MethodGet, "/api/slots/teacher-slots/?include_stats=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotHandlerSaveBatch(t *testing.T) {
	srv := &fakeSlotSrv{batchResp: &dto.BatchResult{
		SuccessCount:    1,
		TotalOperations: 2,
		Results: []dto.OperationResult{
			{Action: dto.ActionCreate, TeacherID: "t1", Success: true},
			{Action: dto.ActionCreate, TeacherID: "t2", Reason: "CAPACITY_CEILING", Error: "full"},
		},
	}}
	router := newSlotRouter(srv, nil, nil)

	rec, envelope := doRequest(router, http.MethodPost, "/api/slots/batch-assignments/", dto.BatchAssignmentsRequest{
		Assignments: []dto.BatchAssignment{
			{TeacherID: "t1", SlotID: "slot-a", DayOfWeek: models.Monday, Action: dto.ActionCreate},
			{TeacherID: "t2", SlotID: "slot-a", DayOfWeek: models.Monday, Action: dto.ActionCreate},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, srv.lastBatch.Assignments, 2)
	var result dto.BatchResult
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, "CAPACITY_CEILING", result.Results[1].Reason)
}

func TestSlotHandlerSaveBatchAllRejected(t *testing.T) {
	srv := &fakeSlotSrv{batchResp: &dto.BatchResult{
		TotalOperations: 1,
		Results:         []dto.OperationResult{{Action: dto.ActionCreate, TeacherID: "t1", Reason: "SAME_DAY_CONFLICT", Error: "already placed"}},
	}}
	router := newSlotRouter(srv, nil, nil)

	rec, envelope := doRequest(router, http.MethodPost, "/api/slots/batch-assignments/", dto.BatchAssignmentsRequest{
		Assignments: []dto.BatchAssignment{{TeacherID: "t1", SlotID: "slot-a", Action: dto.ActionCreate}},
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrRuleViolation.Code, envelope.Error.Code)
	assert.Equal(t, "already placed", envelope.Error.Message)
}

func TestSlotHandlerSaveBatchMalformedBody(t *testing.T) {
	router := newSlotRouter(&fakeSlotSrv{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/slots/batch-assignments/", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotHandlerSaveTeacherPreferencePropagatesNotFound(t *testing.T) {
	srv := &fakeSlotSrv{err: appErrors.Clone(appErrors.ErrNotFound, "teacher not found")}
	router := newSlotRouter(srv, nil, nil)

	rec, _ := doRequest(router, http.MethodPost, "/api/slots/teacher-slot-preference/", dto.TeacherSlotPreferenceRequest{
		TeacherID:  "ghost",
		Operations: []dto.SlotOperation{{Action: dto.ActionDelete, SlotID: "slot-a"}},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ghost", srv.lastPref.TeacherID)
}

func TestSlotHandlerDepartmentSummaryReportsCacheHit(t *testing.T) {
	summaries := &fakeSummarySrv{summary: &models.DepartmentSummary{DeptID: "dept-1"}, hit: true}
	router := newSlotRouter(&fakeSlotSrv{}, summaries, nil)

	rec, envelope := doRequest(router, http.MethodGet, "/api/slots/department-summary/?dept_id=dept-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dept-1", summaries.deptID)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestSlotHandlerExport(t *testing.T) {
	exports := &fakeExportSrv{}
	router := newSlotRouter(&fakeSlotSrv{}, &fakeSummarySrv{}, exports)

	rec, _ := doRequest(router, http.MethodGet, "/api/slots/department-summary/export?dept_id=dept-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportCSV, exports.format)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "slot-summary-dept-1.csv")

	rec, _ = doRequest(router, http.MethodGet, "/api/slots/department-summary/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
