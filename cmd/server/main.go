package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/settingskit/settingskit/internal/api"
	"github.com/settingskit/settingskit/internal/config"
	"github.com/settingskit/settingskit/internal/settings"
	"github.com/settingskit/settingskit/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	// Value cache. Disabled means every read goes to the database.
	var cache settings.Cache
	if cfg.Cache.Enabled {
		ttlCache := settings.NewTTLCache(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
		defer ttlCache.Stop()
		cache = ttlCache
	} else {
		slog.Warn("settings cache disabled, all reads hit the database")
		cache = settings.NopCache{}
	}

	svc := settings.New(store, cache, settings.Options{
		CacheTTL:       time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		CachePrefix:    cfg.Cache.Prefix,
		DefaultLocale:  cfg.Locale.Default,
		FallbackLocale: cfg.Locale.Fallback,
	})

	router := api.NewRouter(svc, cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("starting server", "addr", addr, "auth_disabled", cfg.Server.DisableAuth)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
