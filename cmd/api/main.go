package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"keydesk/internal/config"
	"keydesk/internal/httpserver"
	"keydesk/internal/jobs"
	"keydesk/internal/kv"
	"keydesk/internal/logger"
	"keydesk/internal/models"
	"keydesk/internal/presence"
	"keydesk/internal/roster"
	"keydesk/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.License{},
		&models.ActivityLog{},
		&models.DeletedLicense{},
		&models.BannedDevice{},
		&models.OnlineDevice{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	ctx := context.Background()
	store, err := openKV(ctx, cfg)
	if err != nil {
		lg.Fatalw("kv store open failed", "error", err)
	}
	defer store.Close()

	rst := roster.New(store)
	if err := rst.Load(ctx); err != nil {
		lg.Fatalw("roster load failed", "error", err)
	}

	gate := session.NewGate(session.Config{
		AdminSecret:    cfg.AdminSecret,
		MaxAttempts:    cfg.MaxLoginAttempts,
		SessionTimeout: cfg.SessionTimeout(),
		BlockTime:      cfg.BlockTime(),
	}, store, rst)
	if gate.RestoreSession(ctx) {
		lg.Infow("session restored", "status", gate.Status())
	}
	go gate.Run(ctx)

	sched := jobs.NewScheduler(db, lg)
	sched.Start()
	defer sched.Stop()

	hub := presence.NewHub()
	router := httpserver.NewRouter(db, gate, rst, hub, cfg, lg)
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

func openKV(ctx context.Context, cfg config.Config) (kv.Store, error) {
	if cfg.RedisAddr != "" {
		return kv.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	}
	return kv.OpenSQLite(cfg.KVPath)
}
