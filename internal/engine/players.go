package engine

import (
	"sync"

	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

// Player is a connected player. It implements host.Player.
type Player struct {
	mu       sync.Mutex
	id       string
	name     string
	position core.Vector3
	rotation core.Vector3
	replies  []string
	sink     func(string)
}

var _ host.Player = (*Player)(nil)

// AddPlayer connects a player, replacing any player with the same ID.
func (e *Engine) AddPlayer(id, name string, position, rotation core.Vector3) *Player {
	p := &Player{id: id, name: name, position: position, rotation: rotation}
	e.players[id] = p
	return p
}

// RemovePlayer disconnects a player.
func (e *Engine) RemovePlayer(id string) {
	delete(e.players, id)
}

// FindPlayer looks up a connected player by user ID. Like the rest of the
// engine it belongs to the tick goroutine.
func (e *Engine) FindPlayer(id string) (*Player, bool) {
	p, ok := e.players[id]
	return p, ok
}

func (p *Player) UserID() string      { return p.id }
func (p *Player) DisplayName() string { return p.name }

func (p *Player) Position() core.Vector3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Player) Rotation() core.Vector3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotation
}

// Teleport moves the player.
func (p *Player) Teleport(position, rotation core.Vector3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.rotation = rotation
}

// Reply records a chat reply and forwards it to the reply sink, if any.
func (p *Player) Reply(message string) {
	p.mu.Lock()
	p.replies = append(p.replies, message)
	sink := p.sink
	p.mu.Unlock()

	if sink != nil {
		sink(message)
	}
}

// SetReplySink forwards future replies to fn. A nil fn stops forwarding.
func (p *Player) SetReplySink(fn func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = fn
}

// Replies returns every reply the player received.
func (p *Player) Replies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.replies))
	copy(out, p.replies)
	return out
}

// LastReply returns the most recent reply or "".
func (p *Player) LastReply() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.replies) == 0 {
		return ""
	}
	return p.replies[len(p.replies)-1]
}
