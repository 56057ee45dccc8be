package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kuanb/indoor-router/config"
	"kuanb/indoor-router/server"
)

func main() {
	configFile := flag.String("config", "config.yml", "YAML configuration file")
	buildingFile := flag.String("building", "", "building file, overrides building.path")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	config.InitLogging()
	log.Println("indoor-router starting...")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configFile, err)
	}
	if *buildingFile != "" {
		cfg.Building.Path = *buildingFile
		cfg.Building.Format = config.FormatFromPath(*buildingFile)
	}

	// Load building at startup
	building, err := cfg.Building.Load()
	if err != nil {
		log.Fatalf("Failed to load building: %v", err)
	}
	log.Printf("Loaded building: %d cells", building.Len())

	srv := server.New(building, server.Options{
		Matcher:        cfg.Matcher.Options(),
		MaxStep:        cfg.Routing.MaxStep,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestLog:     *verbose,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background metrics logging and session expiry
	srv.StartMetricsLogger(ctx, time.Duration(cfg.Server.MetricsIntervalS)*time.Second)
	srv.StartSessionReaper(ctx, time.Duration(cfg.Server.SessionTTLS)*time.Second)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("indoor-router stopped")
}
