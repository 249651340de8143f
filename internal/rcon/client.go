package rcon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
	"github.com/rustmods/custombradley/pkg/streaming"
)

// client is one console connection with a single writer goroutine.
type client struct {
	id     string
	conn   *websocket.Conn
	outbox chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(id string, conn *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbox:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Console write error", "connection", c.id, "error", err)
				c.close()
				return
			}
		}
	}
}

// reply queues a response. It never blocks the tick goroutine; replies to a
// slow or closed client are dropped.
func (c *client) reply(identifier int, typ, message string) {
	data, err := streaming.Response{Identifier: identifier, Message: message, Type: typ}.Encode()
	if err != nil {
		c.logger.Error("Failed to encode console reply", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.outbox <- data:
	default:
		c.logger.Warn("Console outbox full, dropping reply", "connection", c.id)
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()
	})
}

// consolePlayer runs commands as the console user. Position and rotation come
// from the matching in-game player when they are online; otherwise the console
// user has no position at all.
type consolePlayer struct {
	client     *client
	identifier int
	userID     string
	name       string
	online     host.Player
}

var (
	_ host.Player     = (*consolePlayer)(nil)
	_ host.Positioned = (*consolePlayer)(nil)
)

func (p *consolePlayer) UserID() string      { return p.userID }
func (p *consolePlayer) DisplayName() string { return p.name }

func (p *consolePlayer) HasPosition() bool { return p.online != nil }

func (p *consolePlayer) Position() core.Vector3 {
	if p.online == nil {
		return core.Vector3{}
	}
	return p.online.Position()
}

func (p *consolePlayer) Rotation() core.Vector3 {
	if p.online == nil {
		return core.Vector3{}
	}
	return p.online.Rotation()
}

func (p *consolePlayer) Reply(message string) {
	p.client.reply(p.identifier, streaming.TypeGeneric, message)
}
