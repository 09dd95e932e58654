package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"

	"tmts_oracle/pkg/api/catalog"
	apimetrics "tmts_oracle/pkg/api/metrics"
	"tmts_oracle/pkg/core/config"
	"tmts_oracle/pkg/core/logging"
	"tmts_oracle/pkg/core/metrics"
	"tmts_oracle/pkg/core/store"
)

func main() {
	configPath := "config/oracle.yaml"
	if p := os.Getenv("ORACLE_CONFIG"); p != "" {
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	cat, err := cfg.LoadCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := store.Open(ctx, cfg.Database.URL, cfg.Data.Dir, cfg.Company, cat.PeriodField)
	defer store.Close()
	engine, err := metrics.NewEngine(src, cat, cfg.EngineConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}

	mux := http.NewServeMux()
	apimetrics.NewHandler(engine).Register(mux)
	mux.HandleFunc("GET /api/catalog", catalog.NewHandler(cat).HandleCatalog)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("company", cat.Company).Int("metrics", len(cat.Metrics)).Msg("API server starting")
	log.Info().Msg("  - GET  /api/metrics/{name}?timescale=QoQ|YoY|TTM&format=json|markdown|html")
	log.Info().Msg("  - GET  /api/forecast")
	log.Info().Msg("  - GET  /api/catalog")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
