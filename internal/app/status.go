// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/thruster_manager/internal/control"
	"github.com/relabs-tech/thruster_manager/internal/health"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // status page may be served from another host on the vehicle LAN
	},
}

// statusStore keeps the latest diagnostics status and pushes every update
// to connected websocket clients. Set never waits on a client.
type statusStore struct {
	mu      sync.RWMutex
	last    health.Status
	have    bool
	clients map[*websocket.Conn]*wsClient
}

const wsWriteTimeout = time.Second

// wsClient holds at most one pending status; a newer one replaces it.
type wsClient struct {
	conn *websocket.Conn
	send chan health.Status
}

func newStatusStore() *statusStore {
	return &statusStore{clients: make(map[*websocket.Conn]*wsClient)}
}

// Set records st and queues it for every client.
func (s *statusStore) Set(st health.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = st
	s.have = true
	for _, c := range s.clients {
		c.offer(st)
	}
}

// Get returns the latest status, if any has arrived.
func (s *statusStore) Get() (health.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

// offer must be called with the store lock held.
func (c *wsClient) offer(st health.Status) {
	for {
		select {
		case c.send <- st:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// writeLoop is the only writer on c.conn.
func (s *statusStore) writeLoop(c *wsClient) {
	for st := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(st); err != nil {
			log.Printf("web: websocket write error: %v", err)
			s.drop(c.conn)
			return
		}
	}
}

func (s *statusStore) drop(conn *websocket.Conn) {
	s.mu.Lock()
	c, ok := s.clients[conn]
	delete(s.clients, conn)
	if ok {
		close(c.send)
	}
	s.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// recordingSink keeps a copy of every published status in a store.
type recordingSink struct {
	store *statusStore
	next  control.DiagnosticsSink
}

func (r *recordingSink) PublishDiagnostics(st health.Status) error {
	r.store.Set(st)
	if r.next == nil {
		return nil
	}
	return r.next.PublishDiagnostics(st)
}

// handleStatus serves the latest status as JSON, 503 until one arrives.
func (s *statusStore) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Get()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleHealthz answers 200 while thrusters are OK and 503 otherwise.
func (s *statusStore) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Get()
	switch {
	case !ok:
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
	case st.Level != health.OK:
		http.Error(w, st.Message, http.StatusServiceUnavailable)
	default:
		w.Write([]byte("ok\n"))
	}
}

// handleWS streams every status update to the client until it disconnects.
func (s *statusStore) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan health.Status, 1)}
	s.mu.Lock()
	s.clients[conn] = c
	if s.have {
		c.offer(s.last)
	}
	s.mu.Unlock()
	go s.writeLoop(c)

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}
	s.drop(conn)
}

// routes registers the status endpoints on r.
func (s *statusStore) routes(r *mux.Router) {
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
}
