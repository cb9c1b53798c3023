package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	"github.com/AnotherRiz/BitX-Sessions/internal/metrics"
)

const writeTimeout = 5 * time.Second

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdAttach struct {
	conn *websocket.Conn
}

func (cmdAttach) hubCmd() {}

type cmdDetach struct {
	conn *websocket.Conn
}

func (cmdDetach) hubCmd() {}

type cmdSend struct {
	id      string
	payload []byte
	replyCh chan domain.AgentResponse
	errCh   chan error
}

func (cmdSend) hubCmd() {}

type cmdDeliver struct {
	resp domain.AgentResponse
}

func (cmdDeliver) hubCmd() {}

type cmdCancel struct {
	id string
}

func (cmdCancel) hubCmd() {}

type cmdConnected struct {
	replyCh chan bool
}

func (cmdConnected) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type agentWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newAgentWriter(conn *websocket.Conn) *agentWriter {
	aw := &agentWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go aw.run()
	return aw
}

func (aw *agentWriter) run() {
	for {
		select {
		case msg, ok := <-aw.sendCh:
			if !ok {
				return
			}
			aw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := aw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-aw.done:
			return
		}
	}
}

func (aw *agentWriter) stop() {
	close(aw.done)
	aw.conn.Close()
}

// --- Hub ---

// Hub owns the agent connection and correlates requests with responses.
// All connection bookkeeping runs on a single goroutine fed by cmdCh.
type Hub struct {
	cmdCh chan hubCmd
}

func NewHub() *Hub {
	hub := &Hub{
		cmdCh: make(chan hubCmd, 64),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	var (
		conn    *websocket.Conn
		writer  *agentWriter
		pending = make(map[string]chan domain.AgentResponse)
	)

	failPending := func() {
		for id, ch := range pending {
			close(ch)
			delete(pending, id)
		}
	}

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdAttach:
			if writer != nil {
				// A reconnecting agent replaces the previous one.
				writer.stop()
				failPending()
			}
			conn = c.conn
			writer = newAgentWriter(c.conn)
			metrics.AgentConnected.Set(1)
			slog.Info("Background agent connected")

		case cmdDetach:
			if conn != c.conn {
				continue
			}
			writer.stop()
			conn = nil
			writer = nil
			failPending()
			metrics.AgentConnected.Set(0)
			slog.Info("Background agent disconnected")

		case cmdSend:
			if writer == nil {
				c.errCh <- domain.ErrAgentUnavailable
				continue
			}
			pending[c.id] = c.replyCh
			select {
			case writer.sendCh <- c.payload:
			default:
				delete(pending, c.id)
				c.errCh <- fmt.Errorf("agent send queue full")
			}

		case cmdDeliver:
			if ch, ok := pending[c.resp.RequestID]; ok {
				delete(pending, c.resp.RequestID)
				ch <- c.resp
			}

		case cmdCancel:
			delete(pending, c.id)

		case cmdConnected:
			c.replyCh <- writer != nil

		case cmdStop:
			if writer != nil {
				writer.stop()
			}
			failPending()
			return
		}
	}
}

// HandleConn attaches an upgraded websocket as the current agent and reads
// responses until the connection drops. It blocks for the connection's
// lifetime; callers run it from the websocket handler goroutine.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	h.cmdCh <- cmdAttach{conn: conn}
	defer func() {
		h.cmdCh <- cmdDetach{conn: conn}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var resp domain.AgentResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			slog.Warn("Dropping malformed agent message", "error", err)
			continue
		}
		h.cmdCh <- cmdDeliver{resp: resp}
	}
}

// Connected reports whether a background agent is currently attached.
func (h *Hub) Connected() bool {
	replyCh := make(chan bool, 1)
	h.cmdCh <- cmdConnected{replyCh: replyCh}
	return <-replyCh
}

// Stop shuts the hub down and fails all in-flight requests.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}

// request sends one envelope to the agent and waits for the correlated
// response. No timeout of its own; the caller's context bounds the wait.
func (h *Hub) request(ctx context.Context, req domain.AgentRequest) (domain.AgentResponse, error) {
	req.RequestID = uuid.NewString()

	payload, err := json.Marshal(req)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("failed to marshal agent request: %w", err)
	}

	replyCh := make(chan domain.AgentResponse, 1)
	errCh := make(chan error, 1)

	start := time.Now()
	defer func() {
		metrics.BridgeRequestDuration.WithLabelValues(string(req.Action)).Observe(time.Since(start).Seconds())
	}()

	h.cmdCh <- cmdSend{id: req.RequestID, payload: payload, replyCh: replyCh, errCh: errCh}

	select {
	case err := <-errCh:
		metrics.BridgeRequestsTotal.WithLabelValues(string(req.Action), "error").Inc()
		return domain.AgentResponse{}, err
	case resp, ok := <-replyCh:
		if !ok {
			metrics.BridgeRequestsTotal.WithLabelValues(string(req.Action), "error").Inc()
			return domain.AgentResponse{}, domain.ErrAgentUnavailable
		}
		status := "success"
		if !resp.Success {
			status = "error"
		}
		metrics.BridgeRequestsTotal.WithLabelValues(string(req.Action), status).Inc()
		return resp, nil
	case <-ctx.Done():
		h.cmdCh <- cmdCancel{id: req.RequestID}
		metrics.BridgeRequestsTotal.WithLabelValues(string(req.Action), "timeout").Inc()
		return domain.AgentResponse{}, ctx.Err()
	}
}
