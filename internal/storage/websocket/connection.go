package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/mapmotion/mapmotion/pkg/streaming"
)

const (
	outboxSize   = 4096
	ackChSize    = 8
	maxRedial    = 8
	initialRetry = time.Second
	maxRetry     = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// link owns one WebSocket connection and the pair of goroutines that
// service it. All writes funnel through the outbox channel so only the
// pump goroutine ever touches the socket for writing.
type link struct {
	mu   sync.Mutex
	sock *ws.Conn

	outbox    chan []byte
	acks      chan streaming.AckMessage
	done      chan struct{}
	closed    bool
	redialing bool

	endpoint string // URL with secret already encoded

	// Replayed after a redial so the server can re-associate the stream
	// with its session.
	sessionGreeting []byte

	log *slog.Logger
}

func newLink(log *slog.Logger) *link {
	return &link{
		outbox: make(chan []byte, outboxSize),
		acks:   make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

// open resolves the endpoint, dials it and starts the pump and reader.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.endpoint = u.String()

	sock, _, err := ws.DefaultDialer.Dial(l.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	l.mu.Lock()
	l.sock = sock
	l.mu.Unlock()

	go l.pump()
	go l.reader()
	return nil
}

func (l *link) socket() *ws.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sock
}

// pump drains the outbox onto the socket. It exits on shutdown or on the
// first write error, handing off to redial.
func (l *link) pump() {
	for {
		select {
		case <-l.done:
			return
		case frame := <-l.outbox:
			sock := l.socket()
			if sock == nil {
				continue
			}
			_ = sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sock.WriteMessage(ws.TextMessage, frame); err != nil {
				l.log.Warn("websocket write failed", "error", err)
				go l.redial()
				return
			}
		}
	}
}

// reader consumes server frames, forwarding acks to the acks channel.
// Anything that does not decode as an ack is logged and dropped.
func (l *link) reader() {
	for {
		sock := l.socket()
		if sock == nil {
			return
		}

		_, frame, err := sock.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.log.Warn("websocket read failed", "error", err)
				go l.redial()
			}
			return
		}

		var ack streaming.AckMessage
		if json.Unmarshal(frame, &ack) != nil || ack.Type != "ack" {
			l.log.Debug("ignoring non-ack frame", "raw", string(frame))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.log.Debug("ack channel full, dropping", "for", ack.For)
		}
	}
}

// redial re-establishes the connection with doubling backoff, replaying
// the cached session greeting before restarting the pump and reader.
// The pump and the reader can both notice the same broken connection;
// the redialing flag lets only one of them run the redial.
func (l *link) redial() {
	l.mu.Lock()
	if l.closed || l.redialing {
		l.mu.Unlock()
		return
	}
	l.redialing = true
	if l.sock != nil {
		_ = l.sock.Close()
		l.sock = nil
	}
	l.mu.Unlock()

	wait := initialRetry
	for attempt := 1; attempt <= maxRedial; attempt++ {
		select {
		case <-l.done:
			l.clearRedialing()
			return
		case <-time.After(wait):
		}

		l.log.Info("redialing websocket", "attempt", attempt)
		sock, _, err := ws.DefaultDialer.Dial(l.endpoint, nil)
		if err != nil {
			l.log.Warn("redial failed", "attempt", attempt, "error", err)
			if wait *= 2; wait > maxRetry {
				wait = maxRetry
			}
			continue
		}

		l.mu.Lock()
		l.sock = sock
		greeting := l.sessionGreeting
		l.mu.Unlock()

		if greeting != nil {
			_ = sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sock.WriteMessage(ws.TextMessage, greeting); err != nil {
				l.log.Warn("session replay after redial failed", "error", err)
				_ = sock.Close()
				continue
			}
		}

		l.log.Info("websocket reconnected", "attempt", attempt)
		// Cleared before the goroutines start so a failure on the fresh
		// connection can redial again.
		l.clearRedialing()
		go l.pump()
		go l.reader()
		return
	}

	l.clearRedialing()
	l.log.Error("giving up on websocket redial", "attempts", maxRedial)
}

func (l *link) clearRedialing() {
	l.mu.Lock()
	l.redialing = false
	l.mu.Unlock()
}

// enqueue hands a frame to the pump. Non-blocking; drops when the outbox
// is full so a stalled server cannot back-pressure the animation loop.
func (l *link) enqueue(frame []byte) {
	select {
	case l.outbox <- frame:
	default:
		l.log.Warn("websocket outbox full, dropping frame")
	}
}

// enqueueAndWait sends a frame and blocks until the server acknowledges
// the given message type or the timeout expires.
func (l *link) enqueueAndWait(frame []byte, ackFor string, timeout time.Duration) error {
	l.enqueue(frame)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// shutdown sends a close frame and stops both goroutines. Idempotent.
func (l *link) shutdown() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	sock := l.sock
	l.sock = nil
	l.mu.Unlock()

	if sock != nil {
		_ = sock.WriteMessage(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		return sock.Close()
	}
	return nil
}
