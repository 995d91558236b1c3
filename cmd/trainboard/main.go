package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/trainboard/internal/adapters/backend"
	"github.com/samirrijal/trainboard/internal/adapters/device"
	"github.com/samirrijal/trainboard/internal/adapters/filestore"
	"github.com/samirrijal/trainboard/internal/adapters/gtfsrt"
	"github.com/samirrijal/trainboard/internal/adapters/http"
	"github.com/samirrijal/trainboard/internal/adapters/ipgeo"
	natsadapter "github.com/samirrijal/trainboard/internal/adapters/nats"
	"github.com/samirrijal/trainboard/internal/adapters/postgres"
	"github.com/samirrijal/trainboard/internal/adapters/terminal"
	"github.com/samirrijal/trainboard/internal/adapters/valkey"
	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
	"github.com/samirrijal/trainboard/internal/core/usecases"
	"github.com/samirrijal/trainboard/internal/pkg/config"
	"github.com/samirrijal/trainboard/internal/pkg/logging"
	"github.com/samirrijal/trainboard/internal/pkg/telemetry"
)

var version = "dev"

const usage = "usage: trainboard [run | watch [session-id]]"

func main() {
	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load("trainboard")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Logs go to stderr; stdout belongs to the board.
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		err = run(ctx, cfg)
	case "watch":
		session := ""
		if len(os.Args) > 2 {
			session = os.Args[2]
		}
		err = watch(ctx, cfg, session)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("trainboard exited", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	radius, err := cfg.Radius()
	if err != nil {
		return err
	}

	// Location cache
	store, pinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Locators
	geo, err := device.New(cfg.Device.Driver, device.Options{
		GPSDAddr: cfg.Device.GPSDAddr,
		Location: domain.Coordinate{Lat: cfg.Device.Lat, Lng: cfg.Device.Lng},
		Timeout:  cfg.Device.Timeout,
	})
	if err != nil {
		return err
	}
	ip := ipgeo.New(cfg.IPGeo.URL, cfg.IPGeo.Timeout)

	// Stations and arrivals
	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	var arrivals ports.ArrivalLookup = api
	if cfg.Arrivals.Source == "gtfsrt" {
		arrivals = gtfsrt.New(cfg.GTFSRT.Feeds, cfg.GTFSRT.Timeout, nil)
	}

	deps := usecases.TrackerDeps{
		Resolver: usecases.NewLocationResolver(store, geo, ip, nil),
		Finder:   usecases.NewStationFinder(api),
		Poller:   usecases.NewArrivalPoller(arrivals),
		Radius:   radius,
	}

	// NATS (optional)
	var pub *natsadapter.Publisher
	if cfg.NATS.URL != "" {
		pub, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, snapshots stay local", "error", err)
		} else {
			defer pub.Close()
			deps.Publisher = pub
		}
	}

	tracker := usecases.NewTracker(deps)
	defer tracker.Close()

	board := terminal.NewStdout()
	tracker.Subscribe(board.Update)

	slog.Info("tracker starting",
		"session", tracker.SessionID(),
		"radius", radius.String(),
		"arrivals", cfg.Arrivals.Source,
		"store", cfg.Store.Driver,
	)
	tracker.Start(ctx)

	var app *fiber.App
	if cfg.Server.Port > 0 {
		httpDeps := &http.Dependencies{
			Tracker: tracker,
			Store:   pinger,
			Version: version,
		}
		if pub != nil {
			httpDeps.NATS = pub.Conn()
		}
		app = newServer(cfg, httpDeps)

		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			slog.Info("status server starting", "addr", addr)
			if err := app.Listen(addr); err != nil {
				slog.Error("listen", "error", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutdown signal received")

	tracker.Close()
	if app != nil {
		// Give in-flight requests up to 10s to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("forced shutdown", "error", err)
		}
	}

	slog.Info("stopped")
	return nil
}

func newServer(cfg *config.Config, deps *http.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             64 * 1024,
		AppName:               "trainboard",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)
	return app
}

// openStore returns the configured location store, the same store as a
// readiness check, and a cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (ports.LocationStore, http.Pinger, func(), error) {
	switch cfg.Store.Driver {
	case "valkey":
		s, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s.Close, nil

	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewLocationRepo(db), db, db.Close, nil

	default:
		s := filestore.New(cfg.Store.Dir)
		slog.Debug("file location store", "path", s.Path())
		return s, s, func() {}, nil
	}
}
