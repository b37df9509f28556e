package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConnectionState(t *testing.T) {
	states := []string{"connecting", "connected", "reconnecting"}

	SetConnectionState("connected", states)

	assert.Equal(t, 1.0, testutil.ToFloat64(ConnectionState.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ConnectionState.WithLabelValues("connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ConnectionState.WithLabelValues("reconnecting")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	Flushes.Inc()
	TextUpdates.WithLabelValues(ResultThrottled).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "gpuhot_frame_flushes_total")
	assert.Contains(t, body, `gpuhot_text_updates_total{result="throttled"}`)
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done, err := Serve(ctx, "127.0.0.1:0", logger.Noop())
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not shut down")
	}
}

func TestServe_BadAddress(t *testing.T) {
	_, err := Serve(context.Background(), "256.0.0.1:bad", logger.Noop())
	assert.Error(t, err)
}

func TestHandler_UnknownPath(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
