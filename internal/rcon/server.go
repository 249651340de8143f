// Package rcon serves a WebRCON-style websocket console. Each text frame is a
// chat command run on the tick goroutine as the sending user.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/dispatcher"
	"github.com/rustmods/custombradley/pkg/host"
	"github.com/rustmods/custombradley/pkg/streaming"
)

const (
	outboxSize      = 64
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Dispatcher runs a parsed command.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// PlayerFinder resolves a connected user to their in-game player. It is only
// called on the tick goroutine.
type PlayerFinder func(userID string) (host.Player, bool)

// Dependencies wires the console to the server.
type Dependencies struct {
	Scheduler host.Scheduler
	Commands  Dispatcher
	Players   PlayerFinder
	Logger    *slog.Logger
}

// Server is the console endpoint.
type Server struct {
	cfg      config.RconConfig
	deps     Dependencies
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]*client
}

// New creates a console server. The password is required.
func New(cfg config.RconConfig, deps Dependencies) (*Server, error) {
	if cfg.Password == "" {
		return nil, errors.New("rcon password required")
	}
	if deps.Scheduler == nil || deps.Commands == nil {
		return nil, errors.New("rcon needs a scheduler and a command dispatcher")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "rcon"),
		conns:  make(map[string]*client),
	}, nil
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("WebRCON listening", "address", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("rcon listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rcon shutdown: %w", err)
	}
	return nil
}

// Handler upgrades requests for /<password> and rejects everything else.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") != s.cfg.Password {
			s.logger.Warn("Rejected console connection", "remote", r.RemoteAddr)
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.logger.Debug("Upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		c := newClient(uuid.NewString(), conn, s.logger)
		s.track(c)
		defer s.untrack(c)

		s.logger.Info("Console connected", "connection", c.id, "remote", r.RemoteAddr)
		go c.writeLoop()
		s.readLoop(c)
		s.logger.Info("Console disconnected", "connection", c.id)
	})
}

// Connections returns the number of open console connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *client) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
}

func (s *Server) untrack(c *client) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	c.close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*client, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

func (s *Server) readLoop(c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := streaming.DecodeRequest(msg)
		if err != nil {
			s.logger.Debug("Ignoring console frame", "connection", c.id, "error", err)
			continue
		}
		s.submit(c, req)
	}
}

// submit hands the command to the tick goroutine, where the player is resolved.
func (s *Server) submit(c *client, req streaming.Request) {
	s.deps.Scheduler.NextTick(func() {
		player := s.playerFor(c, req)
		ev, ok := dispatcher.Parse(req.Message, player)
		if !ok {
			return
		}
		_, err := s.deps.Commands.Dispatch(ev)
		switch {
		case errors.Is(err, dispatcher.ErrUnknownCommand):
			c.reply(req.Identifier, streaming.TypeError, fmt.Sprintf("Unknown command: %s", ev.Command))
		case errors.Is(err, dispatcher.ErrPermissionDenied):
		case err != nil:
			c.reply(req.Identifier, streaming.TypeError, err.Error())
		}
	})
}

func (s *Server) playerFor(c *client, req streaming.Request) host.Player {
	p := &consolePlayer{client: c, identifier: req.Identifier, userID: req.UserID, name: req.Name}
	if s.deps.Players != nil && req.UserID != "" {
		if online, ok := s.deps.Players(req.UserID); ok {
			p.online = online
		}
	}
	if p.name == "" {
		p.name = "WebRcon"
	}
	return p
}
