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
	"path/filepath"
	"syscall"
	"time"

	"github.com/patcharin/perkstream/internal/auth"
	"github.com/patcharin/perkstream/internal/config"
	"github.com/patcharin/perkstream/internal/event"
	"github.com/patcharin/perkstream/internal/publish"
	"github.com/patcharin/perkstream/internal/registry"
	"github.com/patcharin/perkstream/internal/scheduler"
	"github.com/patcharin/perkstream/internal/store"
	"github.com/patcharin/perkstream/internal/web"
	"github.com/patcharin/perkstream/internal/web/api"
)

func main() {
	configPath := flag.String("config", "perkstream.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory %s: %v", cfg.DataDir, err)
	}

	// Open SQLite store.
	dbPath := filepath.Join(cfg.DataDir, "perkstream.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()
	log.Printf("store opened at %s", dbPath)

	heartbeat, err := cfg.Stream.ParseHeartbeatInterval()
	if err != nil {
		log.Fatalf("invalid heartbeat_interval %q: %v", cfg.Stream.HeartbeatInterval, err)
	}

	reg := registry.New(cfg.Stream.ChannelCapacity)
	pub := publish.New(reg)

	validator := auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Leeway())
	a := &api.API{
		Registry:   reg,
		Publisher:  pub,
		Store:      st,
		StreamAuth: auth.NewChain(validator.HeaderStrategy(), validator.QueryStrategy("token")),
		HeaderAuth: auth.NewChain(validator.HeaderStrategy()),
		Heartbeat:  heartbeat,
	}

	// Background maintenance.
	sched := scheduler.NewScheduler()
	err = sched.AddTask("notification-sweep", cfg.Maintenance.SweepSchedule, func() {
		deleted, err := st.DeleteExpired(context.Background(), time.Now())
		if err != nil {
			log.Printf("ERROR: notification sweep failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("notification sweep removed %d expired notification(s)", deleted)
		}
	})
	if err != nil {
		log.Fatalf("invalid sweep_schedule %q: %v", cfg.Maintenance.SweepSchedule, err)
	}
	if cfg.Maintenance.HeartbeatSchedule != "" {
		err = sched.AddTask("global-heartbeat", cfg.Maintenance.HeartbeatSchedule, func() {
			if _, err := reg.BroadcastGlobal(event.Heartbeat()); err != nil && !errors.Is(err, registry.ErrNoSubscribers) {
				log.Printf("ERROR: global heartbeat failed: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("invalid heartbeat_schedule %q: %v", cfg.Maintenance.HeartbeatSchedule, err)
		}
	}
	for _, name := range []string{"notification-sweep", "global-heartbeat"} {
		if next, ok := sched.NextRunTime(name); ok {
			log.Printf("scheduled task %q, next run at %s", name, next.Format(time.RFC3339))
		}
	}
	sched.Start()

	srv := web.NewServer(cfg.Listen, a)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	log.Printf("perkstream started, listening on %s", cfg.Listen)

	<-sigCh
	log.Println("shutting down...")

	sched.Stop()

	// Open event streams never drain on their own, so bound the graceful
	// phase and then close the remaining connections outright.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forcing close of open event streams: %v", err)
		if err := srv.Close(); err != nil {
			log.Printf("ERROR: http server close error: %v", err)
		}
	}

	log.Println("perkstream stopped")
}
