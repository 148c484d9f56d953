package notifications

import (
	"log/slog"
	"sync"
	"time"

	"engagement/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Watchers only receive; the peer sends control frames and little else.
	maxMessageSize = 1024

	watcherBuffer = 64
)

var dropNotice = []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`)

// Watcher streams the events of one post to a websocket connection.
type Watcher struct {
	Conn   *websocket.Conn
	PostID uint

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher for conn. Run WritePump and ReadPump to serve it.
func NewWatcher(conn *websocket.Conn, postID uint) *Watcher {
	return &Watcher{
		Conn:   conn,
		PostID: postID,
		send:   make(chan []byte, watcherBuffer),
		done:   make(chan struct{}),
	}
}

// Close stops both pumps. It is safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

// TrySend queues message without blocking. When the buffer is full the
// message and the oldest queued event are dropped and a drop notice takes
// their place, so the peer knows to re-fetch the post.
func (w *Watcher) TrySend(message []byte) {
	select {
	case <-w.done:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return
	default:
	}

	select {
	case w.send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		observability.GlobalLogger.Warn("post watcher buffer full, dropped event",
			slog.Uint64("post_id", uint64(w.PostID)))
		select {
		case <-w.send:
		default:
		}
		select {
		case w.send <- dropNotice:
		default:
		}
	}
}

// ReadPump consumes control frames until the peer goes away, then closes
// the watcher. It blocks and belongs on the handler goroutine.
func (w *Watcher) ReadPump() {
	defer w.Close()

	w.Conn.SetReadLimit(maxMessageSize)
	_ = w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error { return w.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				observability.GlobalLogger.Info("post watcher read ended",
					slog.Uint64("post_id", uint64(w.PostID)), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump writes queued events and keepalive pings until the watcher is
// closed or a write fails.
func (w *Watcher) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = w.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-w.send:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				w.fail()
				return
			}

		case <-ticker.C:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.fail()
				return
			}
		}
	}
}

// fail stops the watcher and closes the connection so ReadPump returns.
func (w *Watcher) fail() {
	w.Close()
	_ = w.Conn.Close()
}
