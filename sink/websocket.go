package sink

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"poll-simul/report"
)

const (
	sendBuffer       = 100
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Message is the JSON document pushed for each report.
type Message struct {
	Source string `json:"source"`
	report.Report
}

// WebSocket pushes reports to a monitoring endpoint. Reports are queued and
// written by a single pump goroutine; a full queue or a dead connection drops
// reports instead of blocking.
type WebSocket struct {
	conn   *websocket.Conn
	source string
	log    *zap.SugaredLogger

	send      chan report.Report
	done      chan struct{}
	pumpDone  chan struct{}
	failed    atomic.Bool
	closeOnce sync.Once
}

// DialWebSocket connects to url and starts the write pump.
func DialWebSocket(ctx context.Context, url, source string, log *zap.SugaredLogger) (*WebSocket, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	log.Infof("Connected to report endpoint %s", url)

	ws := &WebSocket{
		conn:     conn,
		source:   source,
		log:      log,
		send:     make(chan report.Report, sendBuffer),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go ws.readPump()
	go ws.writePump()
	return ws, nil
}

// Publish queues r (non-blocking)
func (ws *WebSocket) Publish(r report.Report) {
	if ws.failed.Load() {
		return
	}
	select {
	case <-ws.done:
		return
	default:
	}
	select {
	case ws.send <- r:
	default:
		ws.log.Warnf("Report send queue full, dropping report")
	}
}

// readPump consumes control frames until the connection closes.
func (ws *WebSocket) readPump() {
	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Debugf("report endpoint read: %v", err)
			}
			return
		}
	}
}

func (ws *WebSocket) writePump() {
	defer close(ws.pumpDone)
	for {
		select {
		case r := <-ws.send:
			if !ws.write(r) {
				return
			}
		case <-ws.done:
			// flush what was queued before Close
			for {
				select {
				case r := <-ws.send:
					if !ws.write(r) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (ws *WebSocket) write(r report.Report) bool {
	data, err := json.Marshal(Message{Source: ws.source, Report: r.Sanitized()})
	if err != nil {
		ws.log.Warnf("Encoding report: %v", err)
		return true
	}
	ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		ws.log.Warnf("Sending report failed, push disabled: %v", err)
		ws.failed.Store(true)
		return false
	}
	return true
}

// Close flushes queued reports, sends a close frame and closes the connection.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)
		<-ws.pumpDone
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = ws.conn.Close()
	})
	return err
}
