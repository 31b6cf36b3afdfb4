// Package notify receives live FlowX notifications over a WebSocket.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the pause between a dropped connection and the
// next dial.
const DefaultReconnectDelay = 5 * time.Second

// Option configures a Listener.
type Option func(*Listener)

// WithReconnectDelay sets the pause between a dropped connection and the next dial.
func WithReconnectDelay(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.delay = d
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(l *Listener) {
		if d != nil {
			l.dialer = d
		}
	}
}

// WithLogger sets the listener logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Listener keeps a WebSocket open to the notification feed and hands every
// decoded notification to its callback.
type Listener struct {
	url    string
	tokens api.TokenSource
	dialer *websocket.Dialer
	delay  time.Duration
	logger *slog.Logger

	mu        sync.RWMutex
	handler   func(model.Notification)
	connected bool
}

// New returns a Listener for the socket at url. Nothing is dialed until Run
// or Listen.
func New(url string, tokens api.TokenSource, opts ...Option) *Listener {
	l := &Listener{
		url:    url,
		tokens: tokens,
		dialer: websocket.DefaultDialer,
		delay:  DefaultReconnectDelay,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnNotification sets the callback, replacing any previous one.
func (l *Listener) OnNotification(fn func(model.Notification)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = fn
}

// Connected reports whether the socket is currently open.
func (l *Listener) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Run listens until ctx ends, redialing after every dropped connection. It
// returns ErrMissingAuth without dialing when there is no token.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.Listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, api.ErrMissingAuth) {
			return err
		}
		l.logger.Warn("notification feed disconnected", "error", err, "retry_in", l.delay)

		timer := time.NewTimer(l.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Listen runs a single connection until it drops or ctx ends.
func (l *Listener) Listen(ctx context.Context) error {
	token, err := l.token(ctx)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.setConnected(true)
	defer l.setConnected(false)
	l.logger.Info("notification feed connected", "url", l.url)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var n model.Notification
		if err := json.Unmarshal(data, &n); err != nil || n.ID == 0 {
			l.logger.Warn("skipping malformed notification frame", "error", err, "bytes", len(data))
			continue
		}
		l.dispatch(n)
	}
}

func (l *Listener) token(ctx context.Context) (string, error) {
	if l.tokens == nil {
		return "", api.ErrMissingAuth
	}
	token, err := l.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", api.ErrMissingAuth
	}
	return token, nil
}

func (l *Listener) dispatch(n model.Notification) {
	l.mu.RLock()
	fn := l.handler
	l.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

func (l *Listener) setConnected(v bool) {
	l.mu.Lock()
	l.connected = v
	l.mu.Unlock()
}
