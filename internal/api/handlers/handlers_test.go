package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a4way/report-agent-workflow/internal/agents"
	"github.com/a4way/report-agent-workflow/internal/api"
	"github.com/a4way/report-agent-workflow/internal/orchestrator"
	"github.com/a4way/report-agent-workflow/internal/querytool"
	"github.com/a4way/report-agent-workflow/internal/tools"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

type runnerFunc func(ctx context.Context, request string) orchestrator.State

func (f runnerFunc) Run(ctx context.Context, request string) orchestrator.State { return f(ctx, request) }

type summarizerFunc func(ctx context.Context, report string) agents.Result

func (f summarizerFunc) Summarize(ctx context.Context, report string) agents.Result {
	return f(ctx, report)
}

type exporterFunc func(rec workflow.Record) (string, []byte, error)

func (f exporterFunc) Export(rec workflow.Record) (string, []byte, error) { return f(rec) }

func okRunner() runnerFunc {
	return func(_ context.Context, request string) orchestrator.State {
		return orchestrator.State{
			Request:     request,
			Step:        orchestrator.StepCompleted,
			Analysis:    agents.Succeeded(agents.DataAnalystName, "analysis"),
			Report:      agents.Succeeded(agents.ReportGeneratorName, "the report"),
			FinalOutput: "# Business Intelligence Report",
		}
	}
}

func newRouter(m *workflow.Manager, exporter Exporter) *mux.Router {
	h := NewWorkflowHandler(m, exporter, zerolog.Nop())
	r := mux.NewRouter()
	r.HandleFunc("/api/workflow/start", h.Start).Methods("POST")
	r.HandleFunc("/api/workflow/{id}/status", h.Status).Methods("GET")
	r.HandleFunc("/api/workflow/{id}/logs", h.Logs).Methods("GET")
	r.HandleFunc("/api/workflow/{id}/report/download", h.Download).Methods("GET")
	r.HandleFunc("/api/workflow/{id}/summary", h.Summary).Methods("POST")
	r.HandleFunc("/api/workflow/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/workflows", h.List).Methods("GET")
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func startWorkflow(t *testing.T, h http.Handler, query string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/workflow/start", api.StartWorkflowRequest{Query: query, DemoID: "demo1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp api.StartWorkflowResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.WorkflowID)
	return resp.WorkflowID
}

func TestStartValidation(t *testing.T) {
	m := workflow.NewManager(workflow.NewStore(), okRunner())
	r := newRouter(m, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty query", `{"query": "  "}`, http.StatusBadRequest},
		{"missing query", `{}`, http.StatusBadRequest},
		{"invalid json", `{"query":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/workflow/start", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.code, rr.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusText(tt.code), resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Empty(t, m.List())
}

func TestWorkflowLifecycle(t *testing.T) {
	m := workflow.NewManager(workflow.NewStore(), okRunner(), workflow.WithPDFAvailable(true))
	r := newRouter(m, exporterFunc(func(rec workflow.Record) (string, []byte, error) {
		return "report_demo1.pdf", []byte("%PDF-1.3 " + rec.ID), nil
	}))

	id := startWorkflow(t, r, "total revenue")
	m.Wait()

	rr := do(t, r, http.MethodGet, "/api/workflow/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec workflow.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, workflow.StatusCompleted, rec.Status)
	assert.Equal(t, "total revenue", rec.Query)
	assert.Equal(t, "demo1", rec.DemoID)
	assert.True(t, rec.PDFAvailable)

	rr = do(t, r, http.MethodGet, "/api/workflow/"+id+"/logs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logs api.LogsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logs))
	require.NotEmpty(t, logs.Logs)
	assert.Equal(t, "Starting workflow: "+id, logs.Logs[0].Message)

	rr = do(t, r, http.MethodGet, "/api/workflows", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list api.ListWorkflowsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, []string{id}, list.Workflows)

	rr = do(t, r, http.MethodGet, "/api/workflow/"+id+"/report/download", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_demo1.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 "+id, rr.Body.String())

	rr = do(t, r, http.MethodDelete, "/api/workflow/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var msg api.MessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	assert.Contains(t, msg.Message, id)

	for _, path := range []string{"/status", "/logs", "/report/download"} {
		rr = do(t, r, http.MethodGet, "/api/workflow/"+id+path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
	rr = do(t, r, http.MethodDelete, "/api/workflow/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownloadErrors(t *testing.T) {
	release := make(chan struct{})
	blocking := runnerFunc(func(ctx context.Context, request string) orchestrator.State {
		<-release
		return okRunner()(ctx, request)
	})

	t.Run("not completed", func(t *testing.T) {
		m := workflow.NewManager(workflow.NewStore(), blocking)
		r := newRouter(m, exporterFunc(func(workflow.Record) (string, []byte, error) { return "x.pdf", nil, nil }))
		id := startWorkflow(t, r, "q")

		rr := do(t, r, http.MethodGet, "/api/workflow/"+id+"/report/download", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		close(release)
		m.Wait()
	})

	t.Run("renderer disabled", func(t *testing.T) {
		m := workflow.NewManager(workflow.NewStore(), okRunner())
		r := newRouter(m, nil)
		id := startWorkflow(t, r, "q")
		m.Wait()

		rr := do(t, r, http.MethodGet, "/api/workflow/"+id+"/report/download", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("render failure", func(t *testing.T) {
		m := workflow.NewManager(workflow.NewStore(), okRunner())
		r := newRouter(m, exporterFunc(func(workflow.Record) (string, []byte, error) {
			return "", nil, errors.New("font missing")
		}))
		id := startWorkflow(t, r, "q")
		m.Wait()

		rr := do(t, r, http.MethodGet, "/api/workflow/"+id+"/report/download", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "font missing")
	})
}

func TestSummaryEndpoint(t *testing.T) {
	t.Run("unknown workflow", func(t *testing.T) {
		m := workflow.NewManager(workflow.NewStore(), okRunner())
		rr := do(t, newRouter(m, nil), http.MethodPost, "/api/workflow/nope/summary", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("no summarizer", func(t *testing.T) {
		m := workflow.NewManager(workflow.NewStore(), okRunner())
		r := newRouter(m, nil)
		id := startWorkflow(t, r, "q")
		m.Wait()

		rr := do(t, r, http.MethodPost, "/api/workflow/"+id+"/summary", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("summarized", func(t *testing.T) {
		summarizer := summarizerFunc(func(_ context.Context, report string) agents.Result {
			return agents.Succeeded(agents.ReportGeneratorName, "short: "+report)
		})
		m := workflow.NewManager(workflow.NewStore(), okRunner(), workflow.WithSummarizer(summarizer))
		r := newRouter(m, nil)
		id := startWorkflow(t, r, "q")
		m.Wait()

		rr := do(t, r, http.MethodPost, "/api/workflow/"+id+"/summary", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.SummaryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.WorkflowID)
		assert.Equal(t, "short: the report", resp.Summary)
	})

	t.Run("summarizer failure", func(t *testing.T) {
		summarizer := summarizerFunc(func(context.Context, string) agents.Result {
			return agents.Failed(agents.ReportGeneratorName, errors.New("quota"))
		})
		m := workflow.NewManager(workflow.NewStore(), okRunner(), workflow.WithSummarizer(summarizer))
		r := newRouter(m, nil)
		id := startWorkflow(t, r, "q")
		m.Wait()

		rr := do(t, r, http.MethodPost, "/api/workflow/"+id+"/summary", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func newToolRouter(t *testing.T) *mux.Router {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte("order_id,order_status\n1,paid\n2,paid\n3,refunded\n"), 0o644))

	registry := tools.NewRegistry()
	registry.Register(querytool.New(map[string]string{"orders": path}))

	h := NewToolHandler(registry)
	r := mux.NewRouter()
	r.HandleFunc("/api/tools", h.ListTools).Methods("GET")
	r.HandleFunc("/api/tools/{name}", h.ExecuteTool).Methods("POST")
	return r
}

func TestListTools(t *testing.T) {
	rr := do(t, newToolRouter(t), http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Tools []api.ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Tools, 1)
	assert.Equal(t, querytool.ToolName, resp.Tools[0].Name)
	assert.Equal(t, querytool.Description, resp.Tools[0].Description)
}

func TestExecuteTool(t *testing.T) {
	r := newToolRouter(t)

	tests := []struct {
		name    string
		tool    string
		body    any
		code    int
		success bool
		output  string
		errText string
	}{
		{
			name:    "count paid orders",
			tool:    querytool.ToolName,
			body:    map[string]any{"input": map[string]any{"query": "SELECT COUNT(*) AS paid FROM orders WHERE order_status = 'paid'"}},
			code:    http.StatusOK,
			success: true,
			output:  "paid\n   2",
		},
		{
			name:    "bad sql",
			tool:    querytool.ToolName,
			body:    map[string]any{"input": map[string]any{"query": "SELECT * FROM nowhere"}},
			code:    http.StatusOK,
			errText: querytool.ErrorPrefix,
		},
		{
			name: "missing input",
			tool: querytool.ToolName,
			body: map[string]any{},
			code: http.StatusBadRequest,
		},
		{
			name: "missing query",
			tool: querytool.ToolName,
			body: map[string]any{"input": map[string]any{}},
			code: http.StatusBadRequest,
		},
		{
			name: "unknown tool",
			tool: "web_search",
			body: map[string]any{"input": map[string]any{"query": "x"}},
			code: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, "/api/tools/"+tt.tool, tt.body)
			require.Equal(t, tt.code, rr.Code, rr.Body.String())
			if tt.code != http.StatusOK {
				return
			}

			var resp struct {
				Success bool           `json:"success"`
				Output  map[string]any `json:"output"`
				Error   string         `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.success, resp.Success)
			if tt.output != "" {
				assert.Equal(t, tt.output, resp.Output["output"])
			}
			if tt.errText != "" {
				assert.Contains(t, resp.Error, tt.errText)
			}
		})
	}
}

func TestHealthAndInfo(t *testing.T) {
	m := workflow.NewManager(workflow.NewStore(), nil, workflow.WithPDFAvailable(true))
	h := NewHealthHandler(m)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.SimulationMode)
	assert.False(t, health.OrchestratorReady)
	assert.True(t, health.PDFAvailable)
	assert.NotEmpty(t, health.Timestamp)

	rr = httptest.NewRecorder()
	h.Info(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var info api.InfoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.Endpoints, "POST /api/workflow/start")
}
