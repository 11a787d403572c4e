package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localassist/pkg/types"
)

func sseServer(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if stream, _ := req["stream"].(bool); !stream {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"plain answer"},"finish_reason":"stop"}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, d := range deltas {
			b, _ := json.Marshal(d)
			fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", b)
			if fl != nil {
				fl.Flush()
			}
		}
		fmt.Fprint(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamChat_DeliversDeltasInOrder(t *testing.T) {
	srv := sseServer(t, []string{"Hel", "lo", "!"})
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL + "/v1", APIKey: "k"})

	var got []string
	finish, err := c.StreamChat(context.Background(), "m", []types.PromptTurn{{Role: types.RoleUser, Content: "hi"}}, ChatOptions{MaxTokens: 8}, func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
	assert.Equal(t, "stop", finish)
}

func TestStreamChat_CallbackErrorStops(t *testing.T) {
	srv := sseServer(t, []string{"a", "b", "c"})
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL + "/v1"})

	stop := errors.New("stop")
	n := 0
	_, err := c.StreamChat(context.Background(), "m", nil, ChatOptions{}, func(string) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestComplete(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL + "/v1"})
	out, err := c.Complete(context.Background(), "be brief", "why?")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", out)
}

func TestDescribeImage_RejectsNonImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("just text"), 0o644))
	c := New(Config{BaseURL: "http://127.0.0.1:1/v1"})
	_, err := c.DescribeImage(context.Background(), p, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not an image"))
}

func TestToMessages_MapsToolToUser(t *testing.T) {
	msgs := toMessages([]types.PromptTurn{
		{Role: types.RoleSystem, Content: "s"},
		{Role: types.RoleTool, Content: "out"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "[tool result]\nout", msgs[1].Content)
}
