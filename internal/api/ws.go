// internal/api/ws.go
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tamzrod/erv-bridge/internal/poller"
)

const wsBuffer = 64

// handleWebSocket streams service events as JSON. The current snapshot
// and link state are sent first.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := s.log.With().Str("request_id", RequestID(r.Context())).Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("websocket client connected")

	events, cancel := s.svc.Subscribe(wsBuffer)
	defer cancel()

	// readPump: only close frames and pongs are expected.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	link := s.svc.Link()
	snap := s.svc.Snapshot()
	if s.send(conn, poller.Event{Kind: poller.LinkEvent, Link: &link}) != nil ||
		s.send(conn, poller.Event{Kind: poller.SnapshotEvent, Snapshot: &snap}) != nil {
		return
	}

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			log.Debug().Msg("websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(s.cfg.WriteTimeout))
				return
			}
			if err := s.send(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, ev poller.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteJSON(ev)
}
