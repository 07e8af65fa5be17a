package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"questboard/internal/auth"
	"questboard/internal/bot"
	"questboard/internal/config"
	"questboard/internal/httpapi"
	"questboard/internal/repository"
	"questboard/internal/service"
	"questboard/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	svc := service.NewServices(
		repository.NewUserRepository(db),
		repository.NewTaskRepository(db),
		repository.NewPointsRepository(db),
		repository.NewActivityRepository(db),
		cfg.LeaderboardSize,
	)

	scheduler := service.NewScheduler(time.Local)

	var sessions session.Registry
	if cfg.RedisAddr != "" {
		rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisRegistry(rdb, session.TTL)
	} else {
		memory := session.NewMemoryRegistry(session.TTL)
		if _, err := scheduler.Every("purge-sessions", time.Hour, func() {
			if n := memory.Purge(); n > 0 {
				log.Printf("[info] purged %d expired sessions", n)
			}
		}); err != nil {
			log.Fatalf("schedule session purge: %v", err)
		}
		sessions = memory
	}

	var wg sync.WaitGroup

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg, svc, sessions)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}
		if _, err := scheduler.Daily("daily-digest", cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := telegramBot.SendDailyDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("digest: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule digest: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
				stop()
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		api := &httpapi.API{
			Services:    svc,
			Sessions:    sessions,
			Auth:        auth.NewManager(cfg.JWTSecret),
			Origins:     cfg.CORSOrigins,
			HistoryDays: cfg.HistoryDays,
		}
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("[info] http api listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server: %v", err)
				stop()
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				log.Printf("http shutdown: %v", err)
			}
		}()
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Quest board started.")
	<-ctx.Done()
	wg.Wait()
	log.Println("Shutdown complete.")
}
