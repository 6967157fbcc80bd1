// Package main is the entry point for the PatternForge server: it wires
// run configuration, session storage, the solve/evaluate REST API, and
// the OTLP ingestion receivers into one process.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patternforge/patternforge/internal/api"
	"github.com/patternforge/patternforge/internal/config"
	"github.com/patternforge/patternforge/internal/receiver"
	"github.com/patternforge/patternforge/internal/store"
)

func main() {
	log.Println("Starting PatternForge...")

	cfg := config.DefaultConfig()
	if path := getEnv("PATTERNFORGE_CONFIG", ""); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatalf("loading config %s: %v", path, err)
		}
		cfg = loaded
		log.Printf("loaded run configuration from %s", path)
	}

	storageCfg := store.DefaultFactoryConfig()
	storageCfg.Backend = getEnv("STORAGE_BACKEND", storageCfg.Backend)
	storageCfg.SQLitePath = getEnv("SQLITE_PATH", storageCfg.SQLitePath)
	storageCfg.ClickHouseAddr = getEnv("CLICKHOUSE_ADDR", storageCfg.ClickHouseAddr)

	st, err := store.NewStorage(storageCfg)
	if err != nil {
		log.Fatalf("creating session storage: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("error closing storage: %v", err)
		}
	}()

	buffer := receiver.NewAttributeBuffer(st, cfg.Solve, cfg.Receiver, nil)

	otlpHTTPAddr := getEnv("OTLP_HTTP_ADDR", "0.0.0.0:4318")
	otlpGRPCAddr := getEnv("OTLP_GRPC_ADDR", "0.0.0.0:4317")
	httpReceiver := receiver.NewHTTPReceiver(otlpHTTPAddr, buffer, cfg.Receiver)
	grpcReceiver := receiver.NewGRPCReceiver(otlpGRPCAddr, buffer, cfg.Receiver)

	apiAddr := getEnv("API_ADDR", "0.0.0.0:8080")
	apiServer := api.NewServer(apiAddr, st, cfg)

	pprofAddr := getEnv("PPROF_ADDR", "localhost:6060")
	go func() {
		log.Printf("starting pprof server on http://%s/debug/pprof", pprofAddr)
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	errChan := make(chan error, 3)

	go func() {
		log.Printf("starting OTLP HTTP receiver on %s", otlpHTTPAddr)
		if err := httpReceiver.Start(); err != nil {
			errChan <- fmt.Errorf("OTLP HTTP receiver error: %w", err)
		}
	}()

	go func() {
		log.Printf("starting OTLP gRPC receiver on %s", otlpGRPCAddr)
		if err := grpcReceiver.Start(); err != nil {
			errChan <- fmt.Errorf("OTLP gRPC receiver error: %w", err)
		}
	}()

	go func() {
		log.Printf("starting REST API server on %s", apiAddr)
		if err := apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	log.Println("all servers started successfully")
	log.Println("OTLP endpoints:")
	log.Printf("  - HTTP: http://%s/v1/metrics", otlpHTTPAddr)
	log.Printf("  - HTTP: http://%s/v1/traces", otlpHTTPAddr)
	log.Printf("  - HTTP: http://%s/v1/logs", otlpHTTPAddr)
	log.Printf("  - gRPC: %s", otlpGRPCAddr)
	log.Printf("mining attribute %q into solve sessions under %q", cfg.Receiver.AttributeKey, storageCfg.Backend)
	log.Println("API endpoints:")
	log.Printf("  - Solve: http://%s/v1/solve", apiAddr)
	log.Printf("  - Solve (structured): http://%s/v1/solve/structured", apiAddr)
	log.Printf("  - Evaluate: http://%s/v1/evaluate", apiAddr)
	log.Printf("  - Sessions: http://%s/v1/sessions", apiAddr)
	log.Printf("  - Health: http://%s/v1/health", apiAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("server error: %v", err)
	case sig := <-sigChan:
		log.Printf("received signal: %v, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("shutting down servers...")
	if err := httpReceiver.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down OTLP HTTP receiver: %v", err)
	}
	if err := grpcReceiver.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down OTLP gRPC receiver: %v", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down API server: %v", err)
	}
	if err := buffer.Close(shutdownCtx); err != nil {
		log.Printf("error flushing attribute buffer: %v", err)
	}

	log.Println("closing storage...")
	if err := st.Close(); err != nil {
		log.Printf("error closing storage: %v", err)
	}

	log.Println("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
