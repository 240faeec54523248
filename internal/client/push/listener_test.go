package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

func TestListener_DispatchesAllShapes(t *testing.T) {
	upgrader := websocket.Upgrader{}

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		notifications := []wire.Notification{
			{Kind: wire.NotifyQuery, Query: &wire.QueryNotification{
				RecordName: "p1", Scope: wire.ScopePrivate, Change: wire.ChangeUpdated}},
			{Kind: wire.NotifyDatabase, Database: &wire.DatabaseNotification{Scope: wire.ScopeShared}},
			{Kind: wire.NotifyShare, Share: &wire.ShareMetadata{RootRecordName: "p2"}},
		}
		for _, n := range notifications {
			require.NoError(t, conn.WriteJSON(n))
		}
		// Keep the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	var mu sync.Mutex
	var queries []wire.QueryNotification
	var databases []wire.DatabaseNotification
	var shares []wire.ShareMetadata
	connects := 0
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewListener("ws"+strings.TrimPrefix(srv.URL, "http"), "tok-123", Handlers{
		Query: func(ctx context.Context, n wire.QueryNotification) {
			mu.Lock()
			queries = append(queries, n)
			mu.Unlock()
		},
		Database: func(ctx context.Context, n wire.DatabaseNotification) {
			mu.Lock()
			databases = append(databases, n)
			mu.Unlock()
		},
		Share: func(ctx context.Context, n wire.ShareMetadata) {
			mu.Lock()
			shares = append(shares, n)
			mu.Unlock()
			close(done)
		},
		OnConnect: func(ctx context.Context) {
			mu.Lock()
			connects++
			mu.Unlock()
		},
	}, logging.NewNopLogger())

	go func() { _ = l.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notifications")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.GreaterOrEqual(t, connects, 1)
	require.Equal(t, []wire.QueryNotification{{RecordName: "p1", Scope: wire.ScopePrivate, Change: wire.ChangeUpdated}}, queries)
	require.Equal(t, []wire.DatabaseNotification{{Scope: wire.ScopeShared}}, databases)
	require.Equal(t, []wire.ShareMetadata{{RootRecordName: "p2"}}, shares)
}

func TestListener_StopsWhenContextCanceled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener("ws"+strings.TrimPrefix(srv.URL, "http"), "tok", Handlers{}, logging.NewNopLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
