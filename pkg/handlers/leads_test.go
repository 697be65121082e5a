package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
	"github.com/relaycrm/outreach-engine/pkg/auth"
	"github.com/relaycrm/outreach-engine/pkg/models"
	"github.com/relaycrm/outreach-engine/pkg/services"
)

// authedRequest builds a request with a signed-in member in context.
func authedRequest(method, target string, body []byte) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	user := &models.User{ID: uuid.New(), Name: "Test User", Role: models.RoleMember, IsActive: true}
	return r.WithContext(auth.WithUser(r.Context(), user))
}

func testLead() *models.Lead {
	return &models.Lead{
		ID:          uuid.New(),
		ExternalKey: "linkedin:jane-doe",
		DisplayName: "Jane Doe",
		Stage:       models.StageNew,
		DataQuality: models.QualityNeedsEnrichment,
	}
}

func TestLeadsHandler_Create(t *testing.T) {
	lead := testLead()
	svc := &mockLeadService{lead: lead}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	body, _ := json.Marshal(models.LeadRecord{ExternalKey: "linkedin:jane-doe", DisplayName: "Jane Doe"})
	r := authedRequest(http.MethodPost, "/api/leads", body)
	w := httptest.NewRecorder()

	h.Create(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp ApiResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestLeadsHandler_Create_Conflict(t *testing.T) {
	svc := &mockLeadService{err: fmt.Errorf("lead exists: %w", apperrors.ErrConflict)}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	body, _ := json.Marshal(models.LeadRecord{ExternalKey: "linkedin:jane-doe", DisplayName: "Jane Doe"})
	r := authedRequest(http.MethodPost, "/api/leads", body)
	w := httptest.NewRecorder()

	h.Create(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLeadsHandler_Get_NotFound(t *testing.T) {
	svc := &mockLeadService{err: fmt.Errorf("lead: %w", apperrors.ErrNotFound)}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	id := uuid.New()
	r := authedRequest(http.MethodGet, "/api/leads/"+id.String(), nil)
	r.SetPathValue("lid", id.String())
	w := httptest.NewRecorder()

	h.Get(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeadsHandler_Get_InvalidID(t *testing.T) {
	h := NewLeadsHandler(&mockLeadService{}, &mockIngestService{}, zap.NewNop())

	r := authedRequest(http.MethodGet, "/api/leads/not-a-uuid", nil)
	r.SetPathValue("lid", "not-a-uuid")
	w := httptest.NewRecorder()

	h.Get(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadsHandler_List(t *testing.T) {
	svc := &mockLeadService{leads: []*models.Lead{testLead(), testLead()}, total: 2}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	r := authedRequest(http.MethodGet, "/api/leads?stage=Connected&page=1&limit=10", nil)
	w := httptest.NewRecorder()

	h.List(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool             `json:"success"`
		Data    LeadListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.Total)
	assert.Len(t, resp.Data.Leads, 2)
}

func TestLeadsHandler_List_UnknownStage(t *testing.T) {
	h := NewLeadsHandler(&mockLeadService{}, &mockIngestService{}, zap.NewNop())

	r := authedRequest(http.MethodGet, "/api/leads?stage=Nonsense", nil)
	w := httptest.NewRecorder()

	h.List(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadsHandler_GetByKey_RequiresKey(t *testing.T) {
	h := NewLeadsHandler(&mockLeadService{}, &mockIngestService{}, zap.NewNop())

	r := authedRequest(http.MethodGet, "/api/leads/by-key", nil)
	w := httptest.NewRecorder()

	h.GetByKey(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadsHandler_GetByKey(t *testing.T) {
	lead := testLead()
	svc := &mockLeadService{leadWithTasks: &services.LeadWithTasks{Lead: lead, Tasks: []*models.Task{}}}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	r := authedRequest(http.MethodGet, "/api/leads/by-key?key=linkedin:jane-doe", nil)
	w := httptest.NewRecorder()

	h.GetByKey(w, r)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestLeadsHandler_Update_PassesPointerFields(t *testing.T) {
	lead := testLead()
	svc := &mockLeadService{lead: lead}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	// role_title present but empty should arrive as a non-nil pointer so
	// the service can clear the stored value.
	body := []byte(`{"role_title": "", "organization": "Acme"}`)
	r := authedRequest(http.MethodPatch, "/api/leads/"+lead.ID.String(), body)
	r.SetPathValue("lid", lead.ID.String())
	w := httptest.NewRecorder()

	h.Update(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastUpdate.RoleTitle)
	assert.Equal(t, "", *svc.lastUpdate.RoleTitle)
	require.NotNil(t, svc.lastUpdate.Organization)
	assert.Equal(t, "Acme", *svc.lastUpdate.Organization)
	assert.Nil(t, svc.lastUpdate.DisplayName)
}

func TestLeadsHandler_OverrideStage(t *testing.T) {
	lead := testLead()
	svc := &mockLeadService{lead: lead}
	h := NewLeadsHandler(svc, &mockIngestService{}, zap.NewNop())

	body, _ := json.Marshal(OverrideStageRequest{Stage: "Replied", Reason: "manual correction"})
	r := authedRequest(http.MethodPut, "/api/leads/"+lead.ID.String()+"/stage", body)
	r.SetPathValue("lid", lead.ID.String())
	w := httptest.NewRecorder()

	h.OverrideStage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StageReplied, svc.lastStage)
	assert.Equal(t, "manual correction", svc.lastReason)
}

func TestLeadsHandler_OverrideStage_UnknownStage(t *testing.T) {
	h := NewLeadsHandler(&mockLeadService{}, &mockIngestService{}, zap.NewNop())

	body, _ := json.Marshal(OverrideStageRequest{Stage: "vanished", Reason: "x"})
	id := uuid.New()
	r := authedRequest(http.MethodPut, "/api/leads/"+id.String()+"/stage", body)
	r.SetPathValue("lid", id.String())
	w := httptest.NewRecorder()

	h.OverrideStage(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadsHandler_BulkIngest(t *testing.T) {
	ingest := &mockIngestService{summary: services.IngestSummary{Created: 2, Updated: 1, Total: 3}}
	h := NewLeadsHandler(&mockLeadService{}, ingest, zap.NewNop())

	body, _ := json.Marshal(BulkIngestRequest{Records: []models.LeadRecord{
		{ExternalKey: "linkedin:a", DisplayName: "A"},
		{ExternalKey: "linkedin:b", DisplayName: "B"},
		{ExternalKey: "linkedin:a", DisplayName: "A Again"},
	}})
	r := authedRequest(http.MethodPost, "/api/leads/bulk", body)
	w := httptest.NewRecorder()

	h.BulkIngest(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ingest.lastRecords, 3)

	var resp struct {
		Success bool                   `json:"success"`
		Data    services.IngestSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.Created)
	assert.Equal(t, 1, resp.Data.Updated)
}

func TestLeadsHandler_BulkIngest_EmptyBatch(t *testing.T) {
	h := NewLeadsHandler(&mockLeadService{}, &mockIngestService{}, zap.NewNop())

	body := []byte(`{"records": []}`)
	r := authedRequest(http.MethodPost, "/api/leads/bulk", body)
	w := httptest.NewRecorder()

	h.BulkIngest(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
