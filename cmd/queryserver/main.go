// Command queryserver runs the HTTP/WebSocket front end: POST
// /api/query for synchronous queries and GET /api/ws for live
// cache-invalidation subscriptions.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/colsql/queryserver/internal/cache"
	"github.com/colsql/queryserver/internal/catalog"
	"github.com/colsql/queryserver/internal/config"
	"github.com/colsql/queryserver/internal/httpapi"
	"github.com/colsql/queryserver/internal/live"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine's YAML config file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := config.NewStore(*configPath, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if stop, err := store.Watch(); err == nil {
		defer stop()
	} else {
		log.Warn("config hot-reload disabled", zap.Error(err))
	}

	cfg := store.Get()
	var cat catalog.Catalog
	if cfg.CatalogBackend == "postgres" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open postgres catalog backend", zap.Error(err))
		}
		cat = catalog.NewPostgresCatalog(db, cfg.PostgresSchemas)
	} else {
		cat = catalog.NewParquetCatalog(cfg.DataDir)
	}

	eng := &httpapi.Engine{
		Store: store,
		Cat:   cat,
		Cache: cache.New(cfg.RedisAddr, cfg.CacheExpirySeconds),
		Live:  live.New(),
		Log:   log,
	}

	log.Info("listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, httpapi.NewRouter(eng)); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
