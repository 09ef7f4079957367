package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/womperr"
)

// ErrUnknownCommand is returned for command names no handler serves.
var ErrUnknownCommand = fmt.Errorf("%w: unknown command", womperr.ErrInvalidArgument)

// Dispatcher executes a named command with JSON arguments.
type Dispatcher interface {
	Call(ctx context.Context, command string, args json.RawMessage) (any, error)
}

// requestTimeout bounds a single command; applying a layout with hooks is
// the slowest path.
const requestTimeout = 2 * time.Minute

// Server accepts one JSON request per connection on a unix socket.
type Server struct {
	socketPath string
	listener   net.Listener
	dispatcher Dispatcher
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownMu   sync.Mutex
	shuttingDown bool
}

// NewServer creates a server bound to socketPath. A stale socket file at
// that path is removed.
func NewServer(socketPath string, d Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		dispatcher: d,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the listening path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", zap.String("socket", s.socketPath))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", zap.Error(err))
		return
	}

	resp := s.Handle(data)

	out, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", zap.Error(err))
		return
	}
	out = append(out, '\n')
	if _, err := conn.Write(out); err != nil {
		s.logger.Debug("failed to send IPC response", zap.Error(err))
	}
}

// Handle parses one request line and dispatches it.
func (s *Server) Handle(data []byte) *Response {
	req, err := ParseRequest(data)
	if err != nil {
		return NewErrorResponse("", err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	s.logger.Debug("IPC request", zap.String("command", req.Command), zap.String("id", req.ID))
	result, err := s.dispatcher.Call(ctx, req.Command, req.Args)
	if err != nil {
		return NewErrorResponse(req.ID, err)
	}
	resp, err := NewOKResponse(req.ID, result)
	if err != nil {
		return NewErrorResponse(req.ID, err)
	}
	return resp
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.wg.Wait()
	os.Remove(s.socketPath)
}
