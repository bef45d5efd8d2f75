package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"studyhub/internal/retention"
	"studyhub/pkg/api"
	"studyhub/pkg/auth"
	"studyhub/pkg/banner"
	"studyhub/pkg/config"
	"studyhub/pkg/content"
	"studyhub/pkg/logger"
	"studyhub/pkg/responder"
	"studyhub/pkg/store"
	"studyhub/pkg/viewer"
)

// build metadata - set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseConfigFlags()

	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	envCfg, envRes := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		log.Fatalf("failed to resolve config: %v", err)
	}
	cfg := eff.Config

	logger.InitWithLevel(cfg.Logging.Level)

	dbPath := eff.DBPath
	if dbPath == "" {
		dbPath = flags.DB
	}
	if err := store.Open(dbPath); err != nil {
		log.Fatalf("failed to open pebble at %s: %v", dbPath, err)
	}

	if cfg.Chat.Fallback != "" {
		responder.SetFallback(cfg.Chat.Fallback)
	}

	agg, err := content.NewAggregator()
	if err != nil {
		log.Fatalf("failed to start content aggregator: %v", err)
	}

	retCancel, err := retention.Start(context.Background(), cfg.Retention)
	if err != nil {
		log.Fatalf("failed to start retention: %v", err)
	}
	retention.SetConfig(cfg.Retention)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		log.Printf("signal received: %v, shutting down", s)
		retCancel()
		agg.Close()
		if err := store.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
		os.Exit(0)
	}()

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}
	banner.PrintWithEff(eff, verStr)

	timeout := time.Duration(cfg.Viewer.Timeout)
	probe := viewer.New(timeout)

	mux := http.NewServeMux()

	// Liveness and readiness probes used by deployment systems
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API handler (catch-all under /)
	mux.Handle("/", api.Handler(api.Deps{
		Agg:      agg,
		Viewer:   probe,
		Greeting: cfg.Chat.Greeting,
	}))

	// Swagger UI at /docs and the OpenAPI spec at /openapi.yaml
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())

	secCfg := auth.SecConfig{
		FrontendKeys: map[string]struct{}{},
		BackendKeys:  map[string]struct{}{},
		AdminKeys:    map[string]struct{}{},
	}
	secCfg.AllowedOrigins = append(secCfg.AllowedOrigins, cfg.Security.CORS.AllowedOrigins...)
	if cfg.Security.RateLimit.RPS > 0 {
		secCfg.RPS = cfg.Security.RateLimit.RPS
	}
	if cfg.Security.RateLimit.Burst > 0 {
		secCfg.Burst = cfg.Security.RateLimit.Burst
	}
	secCfg.IPWhitelist = append(secCfg.IPWhitelist, cfg.Security.IPWhitelist...)
	for _, k := range cfg.Security.APIKeys.Frontend {
		secCfg.FrontendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Backend {
		secCfg.BackendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Security.APIKeys.Admin {
		secCfg.AdminKeys[k] = struct{}{}
	}
	// env-supplied keys merge on top of the config file
	for k := range envRes.FrontendKeys {
		secCfg.FrontendKeys[k] = struct{}{}
	}
	for k := range envRes.BackendKeys {
		secCfg.BackendKeys[k] = struct{}{}
	}
	for k := range envRes.AdminKeys {
		secCfg.AdminKeys[k] = struct{}{}
	}

	config.SetRuntime(&config.RuntimeConfig{
		FrontendKeys: secCfg.FrontendKeys,
		BackendKeys:  secCfg.BackendKeys,
		AdminKeys:    secCfg.AdminKeys,
	})

	wrapped := auth.AuthenticateRequestMiddleware(secCfg)(mux)

	addr := eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	var errServe error
	if cert != "" && key != "" {
		errServe = http.ListenAndServeTLS(addr, cert, key, wrapped)
	} else {
		errServe = http.ListenAndServe(addr, wrapped)
	}
	if errServe != nil {
		log.Fatal(errServe)
	}
}
