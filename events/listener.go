package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Connection-establishment wait: Connect polls the state flag at
// connectPollInterval, at most connectPollLimit times (~5s ceiling).
const (
	connectPollInterval = 500 * time.Millisecond
	connectPollLimit    = 10
)

// handshakeTimeout bounds the WebSocket dial. Slightly beyond the connect
// wait ceiling, so a stalled handshake ends shortly after Connect gives up.
const handshakeTimeout = 6 * time.Second

// State is the connection lifecycle of a Listener.
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// channelRequest is the client-to-server control envelope.
type channelRequest struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
}

// Listener owns the push channel. Exactly one background goroutine dials and
// then receives until error, close, or cancellation; parsed events land on an
// internal queue that the main flow drains after the run. No automatic
// reconnection: one connection per run.
type Listener struct {
	url    string
	logger *slog.Logger

	state atomic.Int32
	queue queue

	// mu guards conn, cancel and done, and serializes socket writes.
	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener for the push channel at wsURL. Nothing is
// dialed until Connect.
func NewListener(wsURL string, opts ...ListenerOption) *Listener {
	l := &Listener{
		url:    wsURL,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// State reports the connection state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
}

// Connect starts the listener goroutine and waits for the connection to
// become established, polling the state flag at connectPollInterval up to
// connectPollLimit times. A false return means this run gets no real-time
// updates; callers continue without them rather than failing.
func (l *Listener) Connect(ctx context.Context) bool {
	if !l.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnecting)) {
		l.logger.Warn("Connect called more than once", "state", l.State().String())
		return l.State() == StateConnected
	}

	actorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go l.run(actorCtx, done)

	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for i := 0; i < connectPollLimit; i++ {
		switch l.State() {
		case StateConnected:
			return true
		case StateDisconnected:
			// The dial already failed; no point waiting out the ceiling.
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}

	if l.State() == StateConnected {
		return true
	}
	l.logger.Warn("Connection not established within wait ceiling", "url", l.url)
	return false
}

// run is the listener goroutine: it owns the connection end to end.
func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.setState(StateDisconnected)

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		l.logger.Warn("WebSocket connect failed", "url", l.url, "error", err)
		return
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	l.mu.Lock()
	if ctx.Err() != nil || !l.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		// Disconnect won the race while the dial was in flight.
		l.mu.Unlock()
		return
	}
	l.conn = conn
	l.mu.Unlock()
	l.logger.Debug("WebSocket connected", "url", l.url)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Quiet exit when Disconnect already flipped the state; anything
			// else is an unsolicited close.
			if l.State() == StateConnected {
				l.logger.Warn("WebSocket connection lost", "error", err)
			}
			return
		}

		ev, err := Decode(raw)
		if err != nil {
			// Parse failures are reported and skipped; the connection stays open.
			l.logger.Warn("Undecodable push message", "error", err)
			continue
		}

		l.queue.append(ev)
		l.classify(ev)
	}
}

// classify logs the variants the tool narrates in real time. Acks and
// unknown types are deliberately ignored here; they still reach the queue.
func (l *Listener) classify(ev Event) {
	switch e := ev.(type) {
	case *ProgressEvent:
		attrs := []any{
			"phase", e.Phase,
			"percent", e.Progress,
			"files", fmt.Sprintf("%d/%d", e.FilesProcessed, e.TotalFiles),
		}
		if e.CurrentFile != "" {
			attrs = append(attrs, "file", e.CurrentFile)
		}
		l.logger.Info("Progress", attrs...)
	case *LogEvent:
		switch e.Level {
		case "error":
			l.logger.Error(e.Message, "source", "server")
		case "warn":
			l.logger.Warn(e.Message, "source", "server")
		default:
			l.logger.Info(e.Message, "source", "server")
		}
	case *DiffEvent:
		l.logger.Info("Diff generated", "file", e.File, "changes", len(e.Changes))
	case *SubscribeAckEvent, *UnknownEvent:
		// Deliberately no output.
	}
}

// Subscribe asks the server to route a project's analysis events to this
// connection. It fails when no connection is established.
func (l *Listener) Subscribe(projectID string) error {
	if l.State() != StateConnected {
		return fmt.Errorf("not connected")
	}
	return l.send(channelRequest{Type: "subscribe", ProjectID: projectID})
}

// Unsubscribe stops a project's event routing. Without a live connection it
// is a no-op, never an error.
func (l *Listener) Unsubscribe(projectID string) error {
	if l.State() != StateConnected {
		return nil
	}
	return l.send(channelRequest{Type: "unsubscribe", ProjectID: projectID})
}

func (l *Listener) send(req channelRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := l.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", req.Type, err)
	}
	return nil
}

// Disconnect requests channel closure and waits briefly for the listener
// goroutine to exit. Idempotent, and safe on a listener that never
// connected.
func (l *Listener) Disconnect() {
	if l.State() != StateUnconnected {
		l.setState(StateDisconnected)
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	conn := l.conn
	l.conn = nil
	done := l.done
	if conn != nil {
		// Best-effort close frame, then tear the socket down so the blocked
		// read returns.
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	l.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			l.logger.Warn("Listener did not shut down cleanly")
		}
	}
}

// Drain atomically removes and returns every buffered event in arrival
// order. An immediate second call returns nothing.
func (l *Listener) Drain() []Event {
	return l.queue.drain()
}

// Pending reports how many events are buffered without draining them.
func (l *Listener) Pending() int {
	return l.queue.len()
}
