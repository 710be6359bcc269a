package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttempt_CountsByKind(t *testing.T) {
	before := testutil.ToFloat64(callAttempts.WithLabelValues("query", "TIMEOUT"))
	RecordAttempt("query", "TIMEOUT")
	RecordAttempt("query", "TIMEOUT")
	after := testutil.ToFloat64(callAttempts.WithLabelValues("query", "TIMEOUT"))
	assert.Equal(t, before+2, after)

	okBefore := testutil.ToFloat64(callAttempts.WithLabelValues("query", "ok"))
	RecordAttempt("query", "")
	assert.Equal(t, okBefore+1, testutil.ToFloat64(callAttempts.WithLabelValues("query", "ok")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	RecordRefresh(true)
	RecordCall("mutation", "ok", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "bizdash_auth_refreshes_total"))
	assert.True(t, strings.Contains(body, "bizdash_orchestrator_call_duration_seconds"))
}

func TestStartSpan_LogsOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: false}, logger)
	require.NoError(t, err)
	_, end := StartSpan(context.Background(), "auth", "login")
	end(nil)
	assert.NotContains(t, buf.String(), "span start")

	_, err = Setup(context.Background(), Config{Enabled: true}, logger)
	require.NoError(t, err)
	assert.True(t, Enabled())
	_, end = StartSpan(context.Background(), "auth", "refresh")
	end(errors.New("boom"))
	assert.Contains(t, buf.String(), "span end")
	assert.Contains(t, buf.String(), "boom")

	require.NoError(t, shutdown(context.Background()))
	assert.False(t, Enabled())
}
