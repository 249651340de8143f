package bradley

import (
	"strings"

	"github.com/rustmods/custombradley/pkg/core"
	"github.com/rustmods/custombradley/pkg/host"
)

// OnEntitySpawned customizes managed vehicles one tick after they spawn.
func (c *Controller) OnEntitySpawned(h host.Handle) {
	if !c.filter.accept(h) {
		return
	}
	c.scheduler.NextTick(func() {
		if c.engine.IsDestroyed(h) {
			return
		}
		c.Customize(h)
	})
}

// Customize applies the configured scale, health, damage and suppressions to h.
// Missing subcomponents are skipped. Applying it twice changes nothing.
func (c *Controller) Customize(h host.Handle) {
	if c.engine.IsDestroyed(h) {
		return
	}
	cfg := c.cfg

	c.engine.SetLocalScale(h, core.Uniform(cfg.BradleyScale))

	c.engine.InitializeHealth(h, cfg.BradleyHealth, cfg.BradleyHealth)
	c.engine.SetHealth(h, cfg.BradleyHealth)

	if turret := c.engine.Turret(h); turret != nil {
		turret.SetBulletDamage(cfg.BradleyDamage)
	}

	if cfg.DisableNPCs {
		c.engine.CancelInvoke(h, SpawnScientistsInvoke)
	}

	if cfg.DisableSmoke {
		for _, ps := range c.engine.ParticleSystems(h) {
			if ps == nil || !isSmoke(ps.Name()) {
				continue
			}
			ps.Stop()
			ps.SetActive(false)
		}
	}
}

func isSmoke(name string) bool {
	return strings.Contains(strings.ToLower(name), "smoke")
}
