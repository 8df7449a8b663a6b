/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// frame is one hot-reload message pushed to clients.
type frame struct {
	Type string `json:"type"` // "define" or "reload"
	ID   string `json:"id,omitempty"`
	Code string `json:"code,omitempty"`
}

// hub fans hot-reload frames out to every connected page.
type hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		log: log,
		upgrader: websocket.Upgrader{
			// The dev server is same-origin by construction
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

func (h *hub) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	clients := len(h.conns)
	h.mu.Unlock()
	h.log.Debug().Int("clients", clients).Msg("client connected")

	// Reader loop: the client sends nothing meaningful, but reading is
	// what notices the close handshake.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// broadcast sends one frame to every connected client. Send failures drop
// the client.
func (h *hub) broadcast(f frame) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(f); err != nil {
			h.log.Debug().Err(err).Msg("dropping client")
			h.drop(conn)
		}
	}
}
