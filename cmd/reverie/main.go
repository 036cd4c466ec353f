package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/agent"
	"github.com/hollowbrook/reverie/internal/api"
	"github.com/hollowbrook/reverie/internal/archive"
	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/engine"
	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/feed"
	"github.com/hollowbrook/reverie/internal/gateway"
	"github.com/hollowbrook/reverie/internal/llm"
	"github.com/hollowbrook/reverie/internal/memory"
	"github.com/hollowbrook/reverie/internal/provider"
	"github.com/hollowbrook/reverie/internal/relation"
	"github.com/hollowbrook/reverie/internal/store"
	"github.com/hollowbrook/reverie/internal/vectorstore"
	"github.com/hollowbrook/reverie/internal/world"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Reverie...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/reverie.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	ctx := context.Background()

	// Narrative client: live through the provider router, or the offline
	// static client for dry runs.
	var client llm.Client
	var narrationGen llm.NarrationGenerator
	if cfg.LLM.Static {
		static := llm.NewStaticClient()
		client, narrationGen = static, static
		logger.Info("Using static narrative client")
	} else {
		router, err := provider.BuildRouter(cfg.Providers, logger)
		if err != nil {
			logger.Fatal("failed to build provider router", zap.Error(err))
		}
		live := llm.NewLiveClient(router, cfg.LLM, logger)
		client, narrationGen = live, live
	}

	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		logger.Fatal("failed to build embedding provider", zap.Error(err))
	}

	// Simulated world.
	clock, err := world.NewClock(cfg.Clock, logger)
	if err != nil {
		logger.Fatal("failed to build clock", zap.Error(err))
	}
	queue := event.NewQueue()

	mgr, err := agent.NewManager(cfg.Agents.Count, queue, logger)
	if err != nil {
		logger.Fatal("failed to build agent manager", zap.Error(err))
	}

	// Population.
	personas := loadPersonas(cfg.Agents.PersonaDir, cfg.Agents.Count, logger)
	if len(personas) == 0 {
		logger.Fatal("no personas found", zap.String("dir", cfg.Agents.PersonaDir))
	}
	seq := agent.NewSequence()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i, p := range personas {
		longMem := memory.NewLongTermMemory(embedder, logger)
		retriever := memory.NewRetriever(longMem, embedder, cfg.Retrieval, logger)
		a := agent.NewAgent(i, p, client, longMem, retriever, clock, seq,
			rand.New(rand.NewSource(rng.Int63())), logger)
		if err := mgr.Register(a); err != nil {
			logger.Fatal("failed to register agent", zap.String("agent", p.Name), zap.Error(err))
		}
	}

	if cfg.Agents.SharedMemoryFile != "" {
		facts, err := world.LoadSharedMemories(cfg.Agents.SharedMemoryFile)
		if err != nil {
			logger.Warn("shared memory seed unavailable", zap.Error(err))
		} else {
			for _, a := range mgr.Agents() {
				a.SeedMemories(ctx, facts)
			}
			logger.Info("Seeded shared memories", zap.Int("facts", len(facts)))
		}
	}

	// Optional backends. Each degrades to a warning when unreachable; the
	// simulation itself never depends on them.
	svcs := engine.Services{}

	if cfg.Database.Neo4j.URI != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Database.Neo4j.URI,
			neo4j.BasicAuth(cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, ""))
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
		}
		if err != nil {
			logger.Warn("Neo4j unavailable, running without relation graph", zap.Error(err))
		} else {
			svcs.Relations = relation.NewGraph(driver, 0.001, logger)
			for _, p := range personas {
				if err := svcs.Relations.Seed(ctx, p.Name, p.Relationships); err != nil {
					logger.Warn("seeding relations failed", zap.String("agent", p.Name), zap.Error(err))
				}
			}
			logger.Info("Relation graph initialized")
		}
	}

	if cfg.Database.Qdrant.Host != "" {
		qdrant, err := vectorstore.NewClient(cfg.Database.Qdrant)
		if err != nil {
			logger.Warn("Qdrant unavailable, running without archive", zap.Error(err))
		} else {
			ar := archive.New(embedder, qdrant, logger)
			if err := ar.Init(ctx); err != nil {
				logger.Warn("archive init failed, running without archive", zap.Error(err))
				qdrant.Close()
			} else {
				svcs.Archive = ar
				logger.Info("Archive initialized")
			}
		}
	}

	if cfg.Database.Postgres.DSN != "" {
		pg, err := store.New(cfg.Database.Postgres.DSN, logger)
		if err != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(err))
		} else if err := pg.Migrate(ctx, "migrations"); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		} else {
			runID, err := pg.CreateRun(ctx, mgr.Size())
			if err != nil {
				logger.Warn("creating run record failed", zap.Error(err))
			}
			svcs.Store, svcs.RunID = pg, runID
		}
	}

	if cfg.Database.Redis.URL != "" {
		f, err := feed.New(cfg.Database.Redis.URL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without event feed", zap.Error(err))
		} else {
			svcs.Feed = f
		}
	}

	broadcaster := gateway.NewBroadcaster(logger)
	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		broadcaster.Register(gateway.NewSlackMirror(cfg.Gateway.Slack, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		broadcaster.Register(gateway.NewDiscordMirror(cfg.Gateway.Discord, logger))
	}
	if len(broadcaster.Platforms()) > 0 {
		if err := broadcaster.ConnectAll(ctx); err != nil {
			logger.Warn("gateway mirrors failed to connect, running without them", zap.Error(err))
		} else {
			svcs.Broadcaster = broadcaster
		}
	}

	// Engine, API and console.
	var narrator *engine.Narrator
	if cfg.Narrator.Enabled {
		narrator = engine.NewNarrator(narrationGen, "", logger)
	}
	eng := engine.New(cfg, clock, mgr, queue, narrator, svcs, logger)
	eng.Start(ctx)

	handler := api.NewHandler(mgr, clock, eng, api.Backends{
		Archive:   svcs.Archive,
		Relations: svcs.Relations,
		Store:     svcs.Store,
		RunID:     svcs.RunID,
	}, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}
	go func() {
		logger.Info("Reverie listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	console := engine.NewConsole(eng, os.Stdin, os.Stdout, logger)
	go console.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-eng.Done():
	}

	logger.Info("Shutting down Reverie...")
	eng.Stop()
	srv.Shutdown(ctx)
	if svcs.Store != nil {
		if svcs.RunID != "" {
			if err := svcs.Store.FinishRun(ctx, svcs.RunID, mgr.CycleCount(), clock.DayCount()); err != nil {
				logger.Warn("finishing run record failed", zap.Error(err))
			}
		}
		svcs.Store.Close()
	}
	if svcs.Relations != nil {
		svcs.Relations.Close(ctx)
	}
	if svcs.Archive != nil {
		svcs.Archive.Close()
	}
	if svcs.Feed != nil {
		svcs.Feed.Close()
	}
	if svcs.Broadcaster != nil {
		svcs.Broadcaster.Close()
	}
	mgr.Close()
}

// loadPersonas reads up to count persona files from dir in name order.
// Unparseable files are skipped with a warning.
func loadPersonas(dir string, count int, logger *zap.Logger) []*agent.Persona {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(paths) == 0 {
		return nil
	}
	sort.Strings(paths)

	var personas []*agent.Persona
	for _, path := range paths {
		if count > 0 && len(personas) >= count {
			break
		}
		p, err := agent.LoadPersona(path)
		if err != nil {
			logger.Warn("skipping persona", zap.String("path", path), zap.Error(err))
			continue
		}
		personas = append(personas, p)
		logger.Info("Loaded persona", zap.String("agent", p.Name), zap.String("path", path))
	}
	return personas
}
