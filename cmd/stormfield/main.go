// Command stormfield runs a resource-gathering team on a stormy grid and
// reports what each agent brought home.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/stormfield/internal/agents"
	"github.com/talgya/stormfield/internal/api"
	"github.com/talgya/stormfield/internal/config"
	"github.com/talgya/stormfield/internal/engine"
	"github.com/talgya/stormfield/internal/persistence"
	"github.com/talgya/stormfield/internal/weather"
	"github.com/talgya/stormfield/internal/world"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults when empty)")
	seed := flag.Int64("seed", 0, "world and agent seed (overrides the config when non-zero)")
	ticks := flag.Uint64("ticks", 0, "stop after this many ticks (overrides engine.max_ticks when non-zero)")
	fast := flag.Bool("fast", false, "run ticks back to back without waiting")
	noAPI := flag.Bool("no-api", false, "do not start the HTTP API")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stormfield:", err)
		os.Exit(2)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *ticks != 0 {
		cfg.Engine.MaxTicks = *ticks
	}
	if *fast {
		cfg.Engine.TickInterval = 0
	}
	if *noAPI {
		cfg.API.Addr = ""
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	started := time.Now()
	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	runID := uuid.NewString()
	slog.Info("Stormfield starting", "run", runID, "seed", cfg.Seed)

	// ── World ────────────────────────────────────────────────────────
	gen, err := cfg.GenConfig()
	if err != nil {
		return err
	}
	grid, err := world.Generate(gen)
	if err != nil {
		return err
	}
	remaining := grid.Remaining()
	slog.Info("world generated",
		"size", fmt.Sprintf("%dx%d", grid.Bounds.Width, grid.Bounds.Height),
		"cells", grid.Bounds.Cells(),
		"base", grid.Base.String(),
		"obstacles", len(grid.Obstacles),
		"crystal", remaining[world.KindCrystal],
		"metal", remaining[world.KindMetal],
		"structure", remaining[world.KindStructure],
	)

	// ── Team ─────────────────────────────────────────────────────────
	variants, err := cfg.Variants()
	if err != nil {
		return err
	}
	team := agents.NewSpawner(cfg.Seed).SpawnTeam(variants, grid.Base)
	for _, a := range team {
		slog.Info("agent registered", "id", a.ID, "name", a.Name, "variant", a.Variant.String())
	}

	sim := engine.NewSimulation(grid, team,
		weather.NewStorm(cfg.Storm.CalmTicks, cfg.Storm.StormTicks),
		engine.Options{
			RunID:          runID,
			SightRadius:    cfg.Agents.SightRadius,
			PartnerTimeout: cfg.Agents.PartnerTimeout,
		})

	// ── Sinks ────────────────────────────────────────────────────────
	var trace *persistence.TraceWriter
	if cfg.Archive.TraceDir != "" {
		trace, err = persistence.NewTraceWriter(cfg.Archive.TraceDir, runID)
		if err != nil {
			return err
		}
		sim.AddSink(trace)
		slog.Info("tick trace enabled", "path", trace.Path())
	}

	var db *persistence.DB
	if cfg.Archive.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Archive.Path), 0o755); err != nil {
			return fmt.Errorf("archive dir: %w", err)
		}
		db, err = persistence.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("run archive opened", "path", cfg.Archive.Path)
	}

	var srv *api.Server
	if cfg.API.Addr != "" {
		hub := api.NewHub()
		sim.AddSink(hub)
		srv = &api.Server{
			Sim:            sim,
			DB:             db,
			Hub:            hub,
			Addr:           cfg.API.Addr,
			AdminKey:       cfg.API.AdminKey,
			MaxStreamConns: cfg.API.MaxStreamConns,
		}
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.Engine.TickInterval
	eng.MaxTicks = cfg.Engine.MaxTicks
	eng.ReportEvery = cfg.Engine.ReportEvery
	eng.OnTick = func(tick uint64) {
		sim.Step()
		if cfg.Engine.StopWhenDone && sim.Finished() {
			slog.Info("every resource delivered", "tick", tick)
			eng.Stop()
		}
	}
	eng.OnReport = sim.Report
	if srv != nil {
		srv.Eng = eng
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return eng.Run(runCtx)
	})

	if srv != nil {
		g.Go(func() error {
			return srv.Serve(runCtx)
		})
	}

	runErr := g.Wait()
	if err := sim.Close(); err != nil {
		slog.Warn("closing sinks", "error", err)
	}

	writeReport(os.Stdout, sim.Snapshot(), time.Since(started))
	if trace != nil {
		if fi, err := os.Stat(trace.Path()); err == nil {
			slog.Info("tick trace written", "path", trace.Path(), "size", humanBytes(fi.Size()))
		}
	}

	if db != nil {
		run, totals := persistence.Summarize(sim.Snapshot(), cfg.Seed, started, sim.Finished())
		if err := db.SaveRun(run, sim.Deliveries(), totals); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
	}
	return runErr
}
