package metric

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Defaults(t *testing.T) {
	s := NewServer(0, "", NewRegistry())
	assert.Equal(t, "http://localhost:9090/metrics", s.Address())
}

func TestServer_ServesMetricsAndHealth(t *testing.T) {
	registry := NewRegistry()
	registry.CoreMetrics().RecordPipelineStatus("bench", PipelineRunning)

	port := freePort(t)
	s := NewServer(port, "/metrics", registry)

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Start() }()
	defer func() {
		require.NoError(t, s.Stop())
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	// Wait for the listener to come up
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(base + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "metrics server never came up")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "current_pipeline_status"),
		"exposition should contain core pipeline metrics")

	select {
	case err := <-serveErr:
		t.Fatalf("server exited early: %v", err)
	default:
	}
}

func TestServer_DoubleStart(t *testing.T) {
	port := freePort(t)
	s := NewServer(port, "/metrics", NewRegistry())

	go func() { _ = s.Start() }()
	defer func() { _ = s.Stop() }()

	// Wait until the first Start has installed the server
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port)); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
