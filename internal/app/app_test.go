package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a4way/report-agent-workflow/internal/config"
	"github.com/a4way/report-agent-workflow/internal/llm/factory"
	"github.com/a4way/report-agent-workflow/internal/llm/llmtest"
	"github.com/a4way/report-agent-workflow/internal/querytool"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"),
		[]byte("order_id,customer_id,order_status\n1,1,paid\n2,2,paid\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.LLM.APIKey = ""
	cfg.PDF.Enabled = false
	return cfg
}

func TestNewWithoutCredentialsSimulates(t *testing.T) {
	a, err := New(testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, a.Ready())
	assert.Nil(t, a.Reporter)
	assert.Nil(t, a.PDF)
	assert.True(t, a.Manager.Simulated())

	tool, err := a.Tools.Get(querytool.ToolName)
	require.NoError(t, err)
	assert.Equal(t, querytool.ToolName, tool.Name())
	assert.Equal(t, "COUNT(*)\n       2", a.QueryTool.Run(context.Background(), "SELECT COUNT(*) FROM orders"))
}

func TestNewWithCompleters(t *testing.T) {
	fake := llmtest.NewFake()
	cfg := testConfig(t)
	cfg.PDF.Enabled = true
	cfg.PDF.OutputDir = t.TempDir()

	a, err := New(cfg, zerolog.Nop(), WithCompleters(&factory.Completers{Analysis: fake, Report: fake, Model: "fake"}))
	require.NoError(t, err)

	require.True(t, a.Ready())
	assert.False(t, a.Manager.Simulated())
	assert.True(t, a.Manager.PDFAvailable())
	require.NotNil(t, a.PDF)

	id, err := a.Manager.Start(context.Background(), "How many orders were paid?", "demo1")
	require.NoError(t, err)
	a.Manager.Wait()

	rec, err := a.Manager.Get(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, rec.Status, rec.Error)
	assert.Contains(t, rec.FinalResult, "# Business Intelligence Report")

	summary, err := a.Manager.Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}

func TestSimulateFlagOverridesCompleters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Simulate = true
	fake := llmtest.NewFake()

	a, err := New(cfg, zerolog.Nop(), WithCompleters(&factory.Completers{Analysis: fake, Report: fake}), WithSimulationStep(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, a.Ready())
	assert.True(t, a.Manager.Simulated())
}

func TestNewServerServesHealth(t *testing.T) {
	a, err := New(testConfig(t), zerolog.Nop(), WithSimulationStep(time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := a.NewServer(ctx)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"simulation_mode":true`)

	assert.Equal(t, 30*time.Second, a.ShutdownTimeout())
}
