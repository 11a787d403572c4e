package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localassist/pkg/types"
)

// readEvent returns the data payload of the next "status" event.
func readEvent(t *testing.T, rd *bufio.Reader) types.Status {
	t.Helper()
	var event string
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "status":
			var st types.Status
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st))
			return st
		}
	}
}

func TestEventsStreamsStatus(t *testing.T) {
	svc := &mockService{updates: make(chan types.Status, 1)}
	svc.updates <- types.Status{Phase: "idle", LoadPhase: "idle"}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	assert.Equal(t, "idle", readEvent(t, rd).Phase)

	svc.updates <- types.Status{Phase: "downloading", LoadPhase: "downloading", Progress: 0.5}
	st := readEvent(t, rd)
	assert.Equal(t, "downloading", st.Phase)
	assert.InDelta(t, 0.5, st.Progress, 1e-9)
}

func TestEventsKeepAlive(t *testing.T) {
	SetEventsKeepAlive(10 * time.Millisecond)
	defer SetEventsKeepAlive(0)
	srv := httptest.NewServer(NewMux(&mockService{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": keep-alive\n", line)
}
