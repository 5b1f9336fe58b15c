// Package web serves a read-only view of the running scene over HTTP and a
// websocket.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/olivier-w/pulse/internal/params"
	"github.com/olivier-w/pulse/internal/playback"
	"github.com/olivier-w/pulse/internal/spectrum"
)

// BroadcastInterval caps websocket pushes at 10 per second.
const BroadcastInterval = 100 * time.Millisecond

//go:embed static/index.html
var indexHTML []byte

// Snapshot is one frame of scene state.
type Snapshot struct {
	Track     string             `json:"track"`
	Transport playback.Transport `json:"transport"`
	Bands     spectrum.Bands     `json:"bands"`
	Uniforms  params.Uniforms    `json:"uniforms"`
	Scale     float64            `json:"scale"`
}

type Server struct {
	mu       sync.RWMutex
	latest   Snapshot
	dirty    bool
	clients  map[*websocketClient]bool
	upgrader websocket.Upgrader
	log      *log.Logger
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		clients: make(map[*websocketClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger,
	}
}

// Publish records the latest snapshot. It never waits on the network; the
// broadcast loop picks the value up on its next tick.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.dirty = true
	s.mu.Unlock()
}

// Latest returns the most recently published snapshot.
func (s *Server) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go s.broadcastLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Printf("[web] serving on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Latest())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case <-ticker.C:
			s.broadcast()
		}
	}
}

// broadcast sends the latest snapshot to every client if it changed since the
// last tick. Clients that cannot keep up are dropped.
func (s *Server) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || len(s.clients) == 0 {
		return
	}
	data, err := json.Marshal(s.latest)
	if err != nil {
		s.log.Printf("[web] marshal error: %v", err)
		return
	}
	s.dirty = false

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(s.clients, client)
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		close(client.send)
		delete(s.clients, client)
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.mu.Lock()
		if c.server.clients[c] {
			delete(c.server.clients, c)
			close(c.send)
		}
		c.server.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
