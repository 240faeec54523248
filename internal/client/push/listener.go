// Package push maintains the websocket notification channel to the server
// and dispatches the three notification shapes to the sync core. The
// connection reconnects with backoff for as long as the context lives.
package push

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"github.com/vterekhov/recordsync/internal/logging"
	"github.com/vterekhov/recordsync/internal/wire"
)

// Handlers receives decoded notifications. OnConnect fires after every
// successful (re)connect so the owner can run a catch-up delta sync for
// notifications missed while offline.
type Handlers struct {
	Query     func(ctx context.Context, n wire.QueryNotification)
	Database  func(ctx context.Context, n wire.DatabaseNotification)
	Share     func(ctx context.Context, n wire.ShareMetadata)
	OnConnect func(ctx context.Context)
}

// Listener is the websocket push client.
type Listener struct {
	url        string
	actorToken string
	handlers   Handlers
	log        logging.Logger
}

func NewListener(url, actorToken string, h Handlers, log logging.Logger) *Listener {
	return &Listener{
		url:        url,
		actorToken: actorToken,
		handlers:   h,
		log:        log.With("module", "push"),
	}
}

// Run connects and reads notifications until ctx is canceled. Connection
// drops are retried with capped fibonacci backoff.
func (l *Listener) Run(ctx context.Context) error {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewFibonacci(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn(ctx, "push connection lost, reconnecting", "error", err)
		return retry.RetryableError(err)
	})
}

func (l *Listener) listen(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.actorToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadJSON when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	l.log.Info(ctx, "push channel connected")
	if l.handlers.OnConnect != nil {
		l.handlers.OnConnect(ctx)
	}

	for {
		var n wire.Notification
		if err := conn.ReadJSON(&n); err != nil {
			return err
		}
		l.dispatch(ctx, n)
	}
}

func (l *Listener) dispatch(ctx context.Context, n wire.Notification) {
	switch n.Kind {
	case wire.NotifyQuery:
		if n.Query != nil && l.handlers.Query != nil {
			l.handlers.Query(ctx, *n.Query)
		}
	case wire.NotifyDatabase:
		if n.Database != nil && l.handlers.Database != nil {
			l.handlers.Database(ctx, *n.Database)
		}
	case wire.NotifyShare:
		if n.Share != nil && l.handlers.Share != nil {
			l.handlers.Share(ctx, *n.Share)
		}
	default:
		l.log.Warn(ctx, "unknown notification kind", "kind", n.Kind)
	}
}
