package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"repolens/internal/identity"
	"repolens/internal/repo"
	"repolens/internal/review"
)

type wsStubRepo struct{}

func (wsStubRepo) Exists(string) bool { return true }
func (wsStubRepo) ReadFile(_, _ string) ([]byte, error) {
	return []byte("package x\n"), nil
}

// wsStubAnalyzer blocks every call until its context is canceled.
type wsStubAnalyzer struct {
	inFlight atomic.Int64
}

func (a *wsStubAnalyzer) AnalyzeFile(ctx context.Context, path string, _ []byte, _ string) (review.FileResult, error) {
	a.inFlight.Add(1)
	defer a.inFlight.Add(-1)
	<-ctx.Done()
	return review.FileResult{}, ctx.Err()
}

func TestAnalyzeWSClientDisconnectCancelsBatch(t *testing.T) {
	root := t.TempDir()
	repos, err := repo.NewManager(filepath.Join(root, "repos"), identity.Open(filepath.Join(root, "identity.json")))
	require.NoError(t, err)

	analyzer := &wsStubAnalyzer{}
	s := newAPIServer(repos, review.New(wsStubRepo{}, analyzer), nil, nil)
	srv := httptest.NewServer(buildMux(s))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/analyze/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	files := make([]map[string]any, 8)
	for i := range files {
		files[i] = map[string]any{"path": "f" + string(rune('a'+i)) + ".go"}
	}
	require.NoError(t, conn.WriteJSON(map[string]any{
		"repoId": "123e4567-e89b-42d3-a456-426614174000",
		"model":  "m",
		"files":  files,
	}))

	// First progress frame proves the batch is running.
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return analyzer.inFlight.Load() > 0 },
		2*time.Second, 10*time.Millisecond)

	// Hard-close the peer: the server must cancel the batch instead of
	// wedging the per-file goroutines on progress writes.
	require.NoError(t, conn.UnderlyingConn().Close())

	require.Eventually(t, func() bool { return analyzer.inFlight.Load() == 0 },
		5*time.Second, 10*time.Millisecond)
}

func TestPushAnalyzeWSDropsOldestWhenFull(t *testing.T) {
	ch := make(chan analyzeWSOutbound, 1)
	pushAnalyzeWS(ch, analyzeWSOutbound{Type: "progress", Message: "old"})

	done := make(chan struct{})
	go func() {
		pushAnalyzeWS(ch, analyzeWSOutbound{Type: "progress", Message: "new"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full buffer")
	}

	got := <-ch
	if got.Message != "new" {
		t.Fatalf("message=%q want newest frame retained", got.Message)
	}
}
