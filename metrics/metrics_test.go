package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/execution"
)

func TestMetrics_Observers(t *testing.T) {
	m := New()

	m.ObserveToolCall("calculator", true, 10*time.Millisecond)
	m.ObserveToolCall("calculator", false, time.Millisecond)
	m.ObserveToolCall("calculator", true, time.Millisecond)
	m.ObserveModelCall("openai", "gpt-4o-mini", true, time.Second)
	m.ObserveExecution(execution.KindWorkflow, execution.StatusFailed, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("calculator", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("calculator", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("openai", "gpt-4o-mini", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("workflow", "failed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveExecution(execution.KindAgent, execution.StatusCompleted, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agentstudio_executions_total{kind="agent",status="completed"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
