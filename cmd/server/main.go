package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/seatplanner/internal/config"
	"github.com/mkarlsen/seatplanner/internal/database"
	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/handler"
	"github.com/mkarlsen/seatplanner/internal/lock"
	"github.com/mkarlsen/seatplanner/internal/queue"
	"github.com/mkarlsen/seatplanner/internal/repository"
	"github.com/mkarlsen/seatplanner/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	rdb := config.NewRedisClient() // may be nil, callers degrade gracefully

	var plans handler.PlanStore
	var snapshots handler.SnapshotStore
	switch cfg.StorageDriver {
	case "memory":
		mem := repository.NewMemoryStore()
		plans, snapshots = mem, mem
		log.Printf("storage: in-memory (data is lost on restart)")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := database.EnsureSchema(context.Background(), db); err != nil {
			log.Fatalf("database: %v", err)
		}
		plans = repository.NewPlanRepo(db)
		snapshots = repository.NewSnapshotRepo(db)
	}

	// Prefer the distributed lock when Redis is reachable so several
	// replicas agree on the current editor.
	var locks lock.Manager = lock.NewMemoryManager()
	if rdb != nil {
		locks = lock.NewRedisManager(rdb)
	}

	scheduler := engine.NewSnapshotScheduler(cfg.SnapshotEveryOps, cfg.SnapshotEvery)
	h := handler.NewPlanHandler(plans, snapshots, locks, scheduler, cfg.LockTTL)

	if cfg.AuditConsumer {
		go func() {
			if err := queue.StartAuditConsumer(); err != nil {
				log.Printf("audit consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPlans(e, h, cfg, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
