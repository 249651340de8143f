package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustmods/custombradley/pkg/host"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DenialMessage is replied to players lacking a command's permission.
const DenialMessage = "You don't have permission to use this command."

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoPlayer         = errors.New("command has no player")
)

// Event represents an incoming chat command.
type Event struct {
	Command   string
	Args      []string
	Player    host.Player
	Timestamp time.Time
}

// Parse splits a console line into a command event. Commands may be prefixed with "/".
func Parse(line string, player host.Player) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	return Event{
		Command:   strings.ToLower(strings.TrimPrefix(fields[0], "/")),
		Args:      fields[1:],
		Player:    player,
		Timestamp: time.Now(),
	}, true
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged     bool
	checker    host.Permissions
	permission string
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// RequirePermission denies players without permission. Denied players get
// DenialMessage and the handler does not run.
func RequirePermission(checker host.Permissions, permission string) Option {
	return func(c *config) {
		c.checker = checker
		c.permission = permission
	}
}

// Dispatcher routes chat commands to registered handlers. It is not safe for
// concurrent use; dispatch from the tick goroutine.
type Dispatcher struct {
	handlers    map[string]HandlerFunc
	logger      Logger
	permissions host.Permissions

	// OTEL metrics
	processed metric.Int64Counter
	denied    metric.Int64Counter
	failed    metric.Int64Counter
}

var _ host.Commands = (*Dispatcher)(nil)

// New creates a new Dispatcher with the given logger. Commands registered through
// AddChatCommand are checked against permissions.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, permissions host.Permissions) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:    make(map[string]HandlerFunc),
		logger:      logger,
		permissions: permissions,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Total chat commands processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.denied, err = m.Int64Counter(
		"dispatcher.commands.denied",
		metric.WithDescription("Total chat commands denied for missing permission"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating denied counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Total chat commands whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.checker != nil && cfg.permission != "" {
		handler = d.withPermission(command, cfg.checker, cfg.permission, handler)
	}

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[strings.ToLower(command)] = handler
}

// AddChatCommand implements host.Commands.
func (d *Dispatcher) AddChatCommand(name, permission string, fn host.CommandFunc) {
	opts := []Option{Logged()}
	if permission != "" {
		opts = append(opts, RequirePermission(d.permissions, permission))
	}
	d.Register(name, func(e Event) (any, error) {
		fn(e.Player, e.Command, e.Args)
		return nil, nil
	}, opts...)
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[strings.ToLower(e.Command)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Player == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPlayer, e.Command)
	}

	cmdAttr := metric.WithAttributes(attribute.String("command", e.Command))
	result, err := h(e)
	switch {
	case errors.Is(err, ErrPermissionDenied):
	case err != nil:
		d.failed.Add(context.Background(), 1, cmdAttr)
	default:
		d.processed.Add(context.Background(), 1, cmdAttr)
	}
	return result, err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[strings.ToLower(command)]
	return ok
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) withPermission(command string, checker host.Permissions, permission string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)

	return func(e Event) (any, error) {
		if !checker.UserHasPermission(e.Player.UserID(), permission) {
			d.denied.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			e.Player.Reply(DenialMessage)
			return nil, fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, command, permission)
		}
		return h(e)
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args), "player", e.Player.UserID())

		result, err := h(e)

		switch {
		case errors.Is(err, ErrPermissionDenied):
			d.logger.Info("command denied", "command", command, "player", e.Player.UserID())
		case err != nil:
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		default:
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
