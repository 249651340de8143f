package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rustmods/custombradley/internal/bradley"
	"github.com/rustmods/custombradley/internal/config"
	"github.com/rustmods/custombradley/internal/dispatcher"
	"github.com/rustmods/custombradley/internal/engine"
	"github.com/rustmods/custombradley/internal/logging"
	intOtel "github.com/rustmods/custombradley/internal/otel"
	"github.com/rustmods/custombradley/internal/permission"
	"github.com/rustmods/custombradley/internal/rcon"
	"github.com/rustmods/custombradley/pkg/host"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTickInterval = 100 * time.Millisecond

	// managedGaugeInterval is how often the log context refreshes the managed count.
	managedGaugeInterval = time.Second
)

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding custombradley.cfg.json and CustomBradley.json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessionStart := time.Now()
	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config")
	}
	level := viper.GetString("logLevel")

	logFile, err := openLogFile(viper.GetString("logsDir"), sessionStart)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err)
	}
	var logOut io.Writer = os.Stdout
	if logFile != nil {
		defer logFile.Close()
		logOut = logFile
	}

	otelProvider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), logOut))
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider, _ = intOtel.New(intOtel.Config{})
	}
	// before the dispatcher and controller create their counters
	otelProvider.InstallGlobal()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown:", err)
		}
	}()

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, ExtensionName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			slogManager.SetGraylog(w)
		}
	}

	var managed atomic.Int64
	slogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.Int64("managed", managed.Load())}
	})

	var logProvider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		logProvider = otelProvider.LoggerProvider()
	}
	if logFile != nil {
		slogManager.Setup(logFile, level, logProvider)
	} else {
		slogManager.Setup(nil, level, logProvider)
	}
	logger = slogManager.Logger()
	logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate, "configDir", *configDir)
	defer func() { _ = slogManager.Flush(context.Background()) }()

	zlog := logging.NewZerolog(logOut, level, "storage")

	perms := permission.New(slogManager.Component("permission"))
	perms.GrantAll(config.GetPermissionGrants())

	commands, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(logOut, level, "dispatcher")), perms)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	eng := engine.New(engine.Config{Logger: slogManager.Component("engine")})
	sched := engine.NewScheduler(slogManager.Component("scheduler"))

	journal := openJournal(config.GetStorageConfig(), config.GetInfluxConfig(), zlog, slogManager.Component("journal"), sessionStart)

	ctrl := bradley.New(bradley.Dependencies{Journal: journal})
	registry := host.NewRegistry(&host.Host{
		Engine:      eng,
		Scheduler:   sched,
		Permissions: perms,
		Commands:    commands,
		ConfigDir:   *configDir,
		Logger:      logger,
	})
	eng.Subscribe(registry)
	if err := registry.Load(ctrl); err != nil {
		_ = journal.Close()
		return err
	}

	sched.NextTick(registry.ServerInitialized)
	var trackManaged func()
	trackManaged = func() {
		managed.Store(int64(ctrl.ManagedCount()))
		sched.Once(managedGaugeInterval, trackManaged)
	}
	sched.NextTick(trackManaged)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	tick := viper.GetDuration("tickInterval")
	if tick <= 0 {
		tick = defaultTickInterval
	}
	g.Go(func() error {
		return sched.Run(gctx, tick)
	})

	if rc := config.GetRconConfig(); rc.Enabled {
		console, err := rcon.New(rc, rcon.Dependencies{
			Scheduler: sched,
			Commands:  commands,
			Players: func(id string) (host.Player, bool) {
				p, ok := eng.FindPlayer(id)
				if !ok {
					return nil, false
				}
				return p, true
			},
			Logger: logger,
		})
		if err != nil {
			logger.Error("WebRCON disabled", "error", err)
		} else {
			g.Go(func() error { return console.Run(gctx) })
		}
	}

	err = g.Wait()
	logger.Info("Shutting down...")

	// the tick loop has stopped; unload on this goroutine
	registry.UnloadAll()
	if cerr := journal.Close(); cerr != nil {
		logger.Error("Failed to close journal", "error", cerr)
	}
	if path := exportedPath(journal); path != "" {
		logger.Info("Journal written", "path", path)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openLogFile(logsDir string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, ExtensionName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
}
