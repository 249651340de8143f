package rcon

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/dispatcher"
	"github.com/rustmods/custombradley/internal/engine"
	"github.com/rustmods/custombradley/internal/logging"
	"github.com/rustmods/custombradley/internal/permission"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
	"github.com/rustmods/custombradley/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const password = "hunter2"

type fixture struct {
	server *Server
	http   *httptest.Server
	sched  *engine.Scheduler
	perms  *permission.Registry
	engine *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sched:  engine.NewScheduler(nil),
		perms:  permission.New(nil),
		engine: engine.New(engine.Config{}),
	}
	f.perms.RegisterPermission("custombradley.use", "CustomBradley")

	cmds, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()), f.perms)
	require.NoError(t, err)
	cmds.AddChatCommand("echo", "", func(p host.Player, _ string, args []string) {
		p.Reply(strings.Join(args, " "))
	})
	cmds.AddChatCommand("whereami", "", func(p host.Player, _ string, _ []string) {
		p.Reply(p.DisplayName() + " " + p.Position().String())
	})
	cmds.AddChatCommand("custombradley.remove", "custombradley.use", func(p host.Player, _ string, _ []string) {
		p.Reply("removed")
	})

	f.server, err = New(config.RconConfig{Enabled: true, Password: password}, Dependencies{
		Scheduler: f.sched,
		Commands:  cmds,
		Players: func(id string) (host.Player, bool) {
			p, ok := f.engine.FindPlayer(id)
			if !ok {
				return nil, false
			}
			return p, true
		},
	})
	require.NoError(t, err)

	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) dial(t *testing.T, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + path
	return websocket.DefaultDialer.Dial(url, nil)
}

func (f *fixture) connect(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := f.dial(t, "/"+password)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return f.server.Connections() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

// roundTrip sends a request, runs the tick that executes it and reads the reply.
func (f *fixture) roundTrip(t *testing.T, conn *websocket.Conn, req streaming.Request) streaming.Response {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))

	require.Eventually(t, func() bool {
		next, _ := f.sched.Pending()
		return next == 1
	}, time.Second, 5*time.Millisecond)
	f.sched.Tick(100 * time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp streaming.Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestNew_RequiresPassword(t *testing.T) {
	_, err := New(config.RconConfig{}, Dependencies{})
	assert.Error(t, err)

	_, err = New(config.RconConfig{Password: password}, Dependencies{})
	assert.Error(t, err)
}

func TestHandler_RejectsWrongPassword(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/wrong", "/" + password + "/extra"} {
		_, resp, err := f.dial(t, path)
		require.Error(t, err, path)
		require.NotNil(t, resp, path)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	assert.Zero(t, f.server.Connections())
}

func TestHandler_RunsCommandsOnTick(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	resp := f.roundTrip(t, conn, streaming.Request{Identifier: 42, Message: "echo hello world", UserID: "76561198000000001"})
	assert.Equal(t, streaming.Response{Identifier: 42, Message: "hello world", Type: streaming.TypeGeneric}, resp)
}

func TestHandler_UsesOnlinePlayerPosition(t *testing.T) {
	f := newFixture(t)
	f.engine.AddPlayer("76561198000000001", "admin", core.Vector3{X: 1, Y: 2, Z: 3}, core.Vector3{})
	conn := f.connect(t)

	online := f.roundTrip(t, conn, streaming.Request{Identifier: 1, Message: "whereami", Name: "ops", UserID: "76561198000000001"})
	assert.Equal(t, "ops (1.00, 2.00, 3.00)", online.Message)

	offline := f.roundTrip(t, conn, streaming.Request{Identifier: 2, Message: "whereami", UserID: "nobody"})
	assert.Equal(t, "WebRcon (0.00, 0.00, 0.00)", offline.Message)
}

func TestHandler_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	resp := f.roundTrip(t, conn, streaming.Request{Identifier: 3, Message: "custombradley.remove", UserID: "stranger"})
	assert.Equal(t, dispatcher.DenialMessage, resp.Message)
	assert.Equal(t, streaming.TypeGeneric, resp.Type)

	f.perms.Grant("admin", "custombradley.use")
	resp = f.roundTrip(t, conn, streaming.Request{Identifier: 4, Message: "custombradley.remove", UserID: "admin"})
	assert.Equal(t, "removed", resp.Message)
}

func TestHandler_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	resp := f.roundTrip(t, conn, streaming.Request{Identifier: 9, Message: "/nope now", UserID: "admin"})
	assert.Equal(t, streaming.Response{Identifier: 9, Message: "Unknown command: nope", Type: streaming.TypeError}, resp)
}

func TestHandler_IgnoresMalformedFrames(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(streaming.Request{Identifier: 1, Message: "  "}))

	resp := f.roundTrip(t, conn, streaming.Request{Identifier: 2, Message: "echo still here"})
	assert.Equal(t, "still here", resp.Message)
	_, timers := f.sched.Pending()
	assert.Zero(t, timers)
}

func TestHandler_DisconnectUntracks(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.server.Connections() == 0 }, time.Second, 5*time.Millisecond)
}
