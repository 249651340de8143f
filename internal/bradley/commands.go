package bradley

import (
	"fmt"

	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

// Chat command names.
const (
	CommandSpawn       = "custombradley.spawn"
	CommandRemove      = "custombradley.remove"
	CommandAddLocation = "custombradley.addlocation"
)

func (c *Controller) registerCommands(cmds host.Commands) {
	cmds.AddChatCommand(CommandSpawn, Permission, c.spawnCommand)
	cmds.AddChatCommand(CommandRemove, Permission, c.removeCommand)
	cmds.AddChatCommand(CommandAddLocation, Permission, c.addLocationCommand)
}

func (c *Controller) spawnCommand(player host.Player, _ string, _ []string) {
	c.SpawnAll()
	player.Reply(fmt.Sprintf("Spawned %d custom Bradley(s)!", len(c.cfg.SpawnLocations)))
}

func (c *Controller) removeCommand(player host.Player, _ string, _ []string) {
	count, killed := c.killManaged()
	c.record(func(j storage.Backend) error {
		return j.RecordRemoval(&core.RemovalEvent{Time: c.now(), Reason: core.RemovalCommand, Count: killed})
	})
	player.Reply(fmt.Sprintf("Removed %d custom Bradley(s)!", count))
}

// NoPositionMessage is replied when the caller is not in the world.
const NoPositionMessage = "You must be in-game to add a location."

// addLocationCommand stores the player's position with their yaw only.
func (c *Controller) addLocationCommand(player host.Player, _ string, _ []string) {
	if !host.HasPosition(player) {
		player.Reply(NoPositionMessage)
		return
	}
	pos := player.Position()
	loc := core.SpawnLocation{
		Position: pos,
		Rotation: core.Vector3{Y: player.Rotation().Y},
	}
	c.cfg.SpawnLocations = append(c.cfg.SpawnLocations, loc)
	if err := c.store.Save(c.cfg); err != nil {
		c.logger.Error("Failed to save config", "error", err)
	}
	player.Reply(fmt.Sprintf("Added spawn location at your position: %s", pos))
}
