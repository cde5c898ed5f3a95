package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/keewee/gamepadctl/internal/logging"
	"github.com/keewee/gamepadctl/internal/session"
)

const (
	// DefaultListen keeps the feed on the loopback interface
	DefaultListen = "127.0.0.1:7321"

	// DefaultRefreshInterval matches the dashboard refresh
	DefaultRefreshInterval = 10 * time.Second

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Pending statuses per client before it is dropped as too slow
	sendBuffer = 4
)

// Loader reads the current device lists.
type Loader interface {
	LoadDevices(ctx context.Context) (session.Snapshot, error)
}

// Config holds the server configuration
type Config struct {
	Listen          string
	RefreshInterval time.Duration
}

// Status is the document served on both endpoints.
type Status struct {
	session.Snapshot
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type client struct {
	conn *websocket.Conn
	send chan Status
}

// Server serves the device status feed
type Server struct {
	config   Config
	loader   Loader
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	latest  *Status
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

// New creates a server. Zero config fields take their defaults.
func New(config Config, loader Loader) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	return &Server{
		config:  config,
		loader:  loader,
		now:     time.Now,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the HTTP handler for both endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices", s.handleDevices)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Refresh loads the device lists, stores the result and pushes it to every
// WebSocket client.
func (s *Server) Refresh(ctx context.Context) Status {
	snap, err := s.loader.LoadDevices(ctx)

	s.mu.Lock()
	status := Status{Snapshot: snap, UpdatedAt: s.now()}
	if err != nil {
		logging.Warn("Status refresh failed", zap.Error(err))
		status.Error = err.Error()
		if s.latest != nil {
			status.Snapshot = s.latest.Snapshot
		}
	}
	s.latest = &status

	for c := range s.clients {
		select {
		case c.send <- status:
		default:
			logging.Warn("Dropping slow status client",
				zap.String("remote_addr", c.conn.RemoteAddr().String()),
			)
			s.dropLocked(c)
		}
	}
	s.mu.Unlock()

	logging.Debug("Status refreshed",
		zap.Int("connected", len(status.Connected)),
		zap.Int("paired", len(status.Paired)),
		zap.Bool("failed", err != nil),
	)
	return status
}

// current returns the stored status, loading it on first use
func (s *Server) current(ctx context.Context) Status {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if latest != nil {
		return *latest
	}
	return s.Refresh(ctx)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	status := s.current(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Error != "" {
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Warn("Failed to write status",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{conn: conn, send: make(chan Status, sendBuffer)}
	initial := s.current(r.Context())

	s.mu.Lock()
	if s.latest != nil {
		// A refresh may have landed since current returned
		initial = *s.latest
	}
	s.clients[c] = struct{}{}
	c.send <- initial
	s.mu.Unlock()

	logging.Info("Status client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	s.wg.Add(2)
	go s.writePump(c)
	go s.readPump(c)
}

// readPump discards client messages and notices when the peer goes away.
func (s *Server) readPump(c *client) {
	defer func() {
		s.wg.Done()
		s.drop(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Status client closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends statuses and keepalive pings until the client is dropped.
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case status, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(status); err != nil {
				logging.Debug("Status write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	s.dropLocked(c)
	s.mu.Unlock()
}

func (s *Server) dropLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
	logging.Info("Status client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
}

// ClientCount returns the number of connected WebSocket clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run listens on the configured address, refreshes on the configured
// interval and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logging.Info("Status server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Duration("refresh", s.config.RefreshInterval),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	s.Refresh(ctx)
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Refresh(ctx)
		case err := <-errChan:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("status server failed: %w", err)
		case <-ctx.Done():
			return s.shutdown(httpServer)
		}
	}
}

func (s *Server) shutdown(httpServer *http.Server) error {
	logging.Info("Shutting down status server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(ctx)

	// Hijacked WebSocket connections are not closed by Shutdown
	s.mu.Lock()
	for c := range s.clients {
		s.dropLocked(c)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	if err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}
	return nil
}
