package bradley

import (
	"context"
	"fmt"

	"github.com/rustmods/custombradley/internal/storage"
	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OnEntityDeath drops the member from the managed set, swaps the default loot
// for the configured items on the next tick, and schedules a full respawn.
// The respawn covers every location, not only the one that died.
func (c *Controller) OnEntityDeath(h host.Handle, info host.HitInfo) {
	if !c.filter.accept(h) {
		return
	}

	pos, ok := c.engine.Position(h)
	if !ok {
		pos = info.Position
	}
	c.managed.Remove(h)

	c.metrics.deaths.Add(context.Background(), 1)
	c.logger.Info("Bradley destroyed", "entity", h.ID(), "position", pos.String(), "initiator", info.Initiator)
	c.record(func(j storage.Backend) error {
		return j.RecordDeath(&core.DeathEvent{
			Time:     c.now(),
			EntityID: h.ID(),
			Position: pos,
			Killer:   info.Initiator,
			Weapon:   info.Weapon,
		})
	})

	c.scheduler.NextTick(func() {
		c.clearCrates(pos)
		c.dropLoot(pos)
	})

	c.scheduler.Once(RespawnDelay, func() {
		c.SpawnAll()
	})
}

// clearCrates kills loot containers strictly within CrateRadius of pos.
func (c *Controller) clearCrates(pos core.Vector3) {
	removed := 0
	for _, crate := range c.engine.FindEntities(pos, CrateRadius, host.KindLootContainer) {
		if crate == (host.Handle{}) || c.engine.IsDestroyed(crate) {
			continue
		}
		c.engine.Kill(crate)
		removed++
	}

	c.logger.Debug("Removed default crates", "count", removed)
	c.record(func(j storage.Backend) error {
		return j.RecordCrateCleanup(&core.CrateCleanupEvent{Time: c.now(), Position: pos, Removed: removed})
	})
}

// dropLoot creates and drops each configured item above pos. A failed item is
// logged and skipped.
func (c *Controller) dropLoot(pos core.Vector3) {
	at := pos.Add(lootOffset)
	for _, drop := range c.cfg.DropItems {
		ev := core.LootDropEvent{
			Time:      c.now(),
			Position:  at,
			ShortName: drop.ShortName,
			Amount:    drop.Amount,
		}

		if err := c.drop(drop, at); err != nil {
			ev.Error = err.Error()
			c.logger.Error(fmt.Sprintf("Failed to create item: %s", drop.ShortName), "error", err)
		} else {
			ev.Success = true
			c.metrics.lootDropped.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("item", drop.ShortName)))
		}

		c.record(func(j storage.Backend) error { return j.RecordLootDrop(&ev) })
	}
}

func (c *Controller) drop(drop core.DropItem, at core.Vector3) error {
	item, err := c.engine.CreateItem(drop.ShortName, drop.Amount)
	if err != nil {
		return err
	}
	if _, err := c.engine.DropItem(item, at, lootVelocity); err != nil {
		return fmt.Errorf("drop %s: %w", drop.ShortName, err)
	}
	return nil
}
