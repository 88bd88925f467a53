package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragsql/ragsql/internal/rag"
)

type stubService struct {
	response rag.QueryResponse
	health   rag.HealthReport
}

func (s *stubService) Answer(ctx context.Context, req rag.QueryRequest) rag.QueryResponse {
	resp := s.response
	resp.NaturalLanguageQuery = req.NaturalLanguageQuery
	return resp
}

func (s *stubService) Health(ctx context.Context) rag.HealthReport {
	return s.health
}

func sp(s string) *string { return &s }

func TestQueryEndpoint(t *testing.T) {
	svc := &stubService{response: rag.QueryResponse{
		SQLQuery:    sp("SELECT 1"),
		Result:      sp(`{"columns":[],"rows":[]}`),
		ContextUsed: "Table: contracts (Schema: sales)",
	}}
	router := NewRouter(svc, nil, nil)

	body := strings.NewReader(`{"natural_language_query": "how many contracts are active?"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp rag.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "how many contracts are active?", resp.NaturalLanguageQuery)
	require.NotNil(t, resp.SQLQuery)
	assert.Equal(t, "SELECT 1", *resp.SQLQuery)
	assert.Nil(t, resp.Error)
}

func TestQueryEndpointBadJSON(t *testing.T) {
	router := NewRouter(&stubService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointMethodNotAllowed(t *testing.T) {
	router := NewRouter(&stubService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// Agent failures are carried in the response body, not as HTTP errors.
func TestQueryEndpointAgentFailureStill200(t *testing.T) {
	svc := &stubService{response: rag.QueryResponse{
		Error: sp("sql execution failed after 3 attempts"),
	}}
	router := NewRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"natural_language_query": "q"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp rag.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Result)
}

func TestHealthEndpoint(t *testing.T) {
	svc := &stubService{health: rag.HealthReport{
		Status:   "ok",
		Services: map[string]string{"postgresql_connection": "OK"},
	}}
	router := NewRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report rag.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "OK", report.Services["postgresql_connection"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	svc := &stubService{health: rag.HealthReport{
		Status:   "degraded",
		Services: map[string]string{"vector_store_connection": "Error: unreachable"},
	}}
	router := NewRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLandingPage(t *testing.T) {
	router := NewRouter(&stubService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragsql")

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
