// Package api holds the pieces of the HTTP surface that do not fit a
// plain chi handler closure: the websocket event feed for live UIs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"reachwatch/internal/monitor"
)

// eventDTO is the wire shape pushed to websocket clients.
type eventDTO struct {
	Kind       string `json:"kind"` // host_updated | stability_changed | aggregate_changed
	At         string `json:"at"`
	Host       string `json:"host,omitempty"`
	Up         *bool  `json:"up,omitempty"`
	Aggregate  string `json:"aggregate,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func toDTO(ev monitor.Event) eventDTO {
	dto := eventDTO{
		At:         ev.At.UTC().Format(time.RFC3339Nano),
		Host:       ev.Host,
		StatusCode: ev.StatusCode,
		Reason:     ev.Reason,
	}
	switch ev.Kind {
	case monitor.EventHostUpdated:
		dto.Kind = "host_updated"
	case monitor.EventStabilityChanged:
		dto.Kind = "stability_changed"
		up := ev.Up
		dto.Up = &up
	case monitor.EventAggregateChanged:
		dto.Kind = "aggregate_changed"
		dto.Aggregate = ev.Aggregate
	}
	return dto
}

// EventHub fans engine events out to connected websocket clients.
type EventHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// StartEventHub subscribes to the engine and broadcasts until ctx ends.
func StartEventHub(ctx context.Context, engine *monitor.Engine, logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same trusted-LAN posture as the rest of the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}

	ch := make(chan monitor.Event, 64)
	engine.Subscribe(ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				h.closeAll()
				return
			case ev := <-ch:
				h.broadcast(toDTO(ev))
			}
		}
	}()
	return h
}

// Handle upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *EventHub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain control frames; a read error means the client left.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *EventHub) broadcast(dto eventDTO) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(dto); err != nil {
			h.logger.Debug("websocket write failed; dropping client", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.conns, conn)
}

func (h *EventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
