package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/womperr"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 1 << 20
	sendBuffer   = 256

	// DefaultAddr binds an ephemeral loopback port.
	DefaultAddr = "127.0.0.1:0"

	// TokenParam is the query parameter carrying the per-run token.
	TokenParam = "token"
)

// Server accepts window connections on /ws.
type Server struct {
	addr     string
	token    string
	d        ipc.Dispatcher
	bus      *eventbus.Bus
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	conns    map[*conn]struct{}
}

// NewServer creates a bridge with a fresh random token. An empty addr means
// DefaultAddr.
func NewServer(addr string, d ipc.Dispatcher, bus *eventbus.Bus, logger *zap.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:   addr,
		token:  uuid.NewString(),
		d:      d,
		bus:    bus,
		logger: logger,
		conns:  make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// originAllowed accepts requests without an Origin (non-browser clients),
// the app webview and loopback dev servers. Opaque origins such as "null",
// file:// and extension pages are rejected.
func originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.User != nil || u.Opaque != "" {
		return false
	}
	host := u.Hostname()
	switch u.Scheme {
	case "tauri":
		return host == "localhost" && u.Port() == ""
	case "http", "https":
		switch host {
		case "localhost", "127.0.0.1", "::1", "tauri.localhost":
			return true
		}
	}
	return false
}

// Token returns the secret clients must pass as the token query parameter.
func (s *Server) Token() string {
	return s.token
}

func (s *Server) authorized(r *http.Request) bool {
	got := r.URL.Query().Get(TokenParam)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	s.mu.Lock()
	s.listener = ln
	s.http = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("bridge server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("window bridge listening", zap.String("url", s.URL()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the websocket endpoint windows connect to.
func (s *Server) URL() string {
	return "ws://" + s.Addr() + "/ws"
}

// ClientCount returns the number of connected windows.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Stop closes the listener and every connection.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	for _, c := range conns {
		c.close()
	}
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.logger.Warn("rejected bridge connection without a valid token",
			zap.String("origin", r.Header.Get("Origin")))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	window := r.URL.Query().Get("window")

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		server: s,
		ws:     ws,
		window: window,
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		sub:    s.bus.Subscribe(window, eventbus.WithContext(ctx)),
		logger: s.logger.With(zap.String("window", window)),
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	c.logger.Debug("window connected")
	go c.writePump()
	go c.readPump()
}

func (s *Server) remove(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// conn is one window connection. writePump is the only writer.
type conn struct {
	server *Server
	ws     *websocket.Conn
	window string
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	sub    *eventbus.Subscription
	logger *zap.Logger

	closeOnce sync.Once
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.sub.Close()
		c.ws.Close()
		c.server.remove(c)
		c.logger.Debug("window disconnected")
	})
}

func (c *conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.enqueue(newReply("", nil, fmt.Errorf("%w: malformed request: %v", womperr.ErrInvalidArgument, err)))
			continue
		}
		go c.handle(req)
	}
}

// handle runs one command. Commands run concurrently so a long apply does
// not hold up other requests from the same window.
func (c *conn) handle(req Request) {
	data, err := c.server.d.Call(c.ctx, req.Command, req.Args)
	if err != nil {
		c.logger.Debug("bridge command failed",
			zap.String("command", req.Command), zap.Error(err))
	}
	c.enqueue(newReply(req.ID, data, err))
}

func (c *conn) enqueue(r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(newReply(r.ID, nil, fmt.Errorf("failed to encode reply: %w", err)))
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}

		case ev, ok := <-c.sub.C():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				c.logger.Warn("dropping unencodable event", zap.String("event", ev.Name), zap.Error(err))
				continue
			}
			data, _ := json.Marshal(Push{Event: ev.Name, Payload: payload})
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) write(msgType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(msgType, data)
}
