package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubStreamsBroadcasts(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(h)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	h.Broadcast(map[string]string{"type": "topology_updated"})

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = line
			break
		}
	}
	assert.Equal(t, "data: {\"type\":\"topology_updated\"}\n", data)

	cancel()
	<-stopped
	resp.Body.Close()
	srv.Close()
	srv.Client().CloseIdleConnections()
}

func TestHubRejectsAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(nil)
	cancel()
	h.Run(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, h.ClientCount())
}
