package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/engine"
	"github.com/rustmods/custombradley/internal/storage/memory"
)

// validate checks a plugin document the way the plugin would load it, and
// flags drop items the item catalog does not know.
func validate(out io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("validate needs exactly one file")
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	store, err := config.NewStore(filepath.Dir(path), name, nil)
	if err != nil {
		return err
	}
	cfg, err := store.Parse(data)
	if err != nil {
		return err
	}

	catalog := engine.DefaultCatalog()
	var unknown []string
	for _, item := range cfg.DropItems {
		if _, ok := catalog.Find(item.ShortName); !ok {
			unknown = append(unknown, item.ShortName)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown drop items: %s", strings.Join(unknown, ", "))
	}

	fmt.Fprintf(out, "%s: OK (%d spawn locations, %d drop items)\n", path, len(cfg.SpawnLocations), len(cfg.DropItems))
	return nil
}

// summarizeJournal prints the event counts of an exported journal.
func summarizeJournal(out io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("journal needs exactly one file")
	}

	export, err := memory.ReadExport(args[0])
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	failedSpawns, failedDrops := 0, 0
	for _, s := range export.Spawns {
		if !s.Success {
			failedSpawns++
		}
	}
	for _, d := range export.LootDrops {
		if !d.Success {
			failedDrops++
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session\t%s\n", export.Session)
	fmt.Fprintf(tw, "started\t%s\n", export.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "ended\t%s\n", export.EndedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "spawns\t%d\t(%d failed)\n", len(export.Spawns), failedSpawns)
	fmt.Fprintf(tw, "deaths\t%d\n", len(export.Deaths))
	fmt.Fprintf(tw, "loot drops\t%d\t(%d failed)\n", len(export.LootDrops), failedDrops)
	fmt.Fprintf(tw, "crate cleanups\t%d\n", len(export.CrateCleanups))
	fmt.Fprintf(tw, "removals\t%d\n", len(export.Removals))
	return tw.Flush()
}
