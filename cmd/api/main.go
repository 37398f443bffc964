package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"locallibrary/internal/catalog"
	"locallibrary/internal/config"
	"locallibrary/internal/httpx"
	"locallibrary/internal/loan"
	"locallibrary/internal/manage"
	"locallibrary/internal/platform/weather"
	"locallibrary/internal/visit"

	"github.com/jackc/pgx/v5/pgxpool"
)

const visitCleanupInterval = time.Hour

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	catalogRepository := catalog.NewPostgresRepo(dbPool, cfg.DBTimeout)
	visitService := visit.NewService(visit.NewPostgresRepo(dbPool, cfg.DBTimeout), cfg.SessionTTL)

	// A nil interface, not a nil *weather.Client, turns the lookup off.
	var weatherSource catalog.WeatherSource
	if cfg.WeatherEnabled() {
		weatherSource = weather.NewClient(weather.Config{
			APIKey:   cfg.WeatherAPIKey,
			Location: cfg.WeatherLocation,
			BaseURL:  cfg.WeatherBaseURL,
			Timeout:  cfg.WeatherTimeout,
		})
	} else {
		log.Println("WEATHER_API_KEY not set; index page renders without weather")
	}

	srv := &server{
		catalog:     catalog.NewHTTPHandler(catalog.NewService(catalogRepository), visitService, weatherSource),
		loans:       loan.NewHTTPHandler(loan.NewService(catalogRepository)),
		manage:      manage.NewHTTPHandler(manage.NewService(catalogRepository)),
		jwtSecret:   cfg.JWTSecret,
		maxBody:     cfg.MaxBodyBytes,
		sessionTTL:  cfg.SessionTTL,
		cookieTLS:   cfg.CookieSecure,
		corsOrigins: cfg.CORSAllowedOrigins,
		writeLimit:  httpx.NewRateLimitMiddleware(ctx, cfg.WriteRPS, cfg.WriteBurst),
		ready: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()
			return dbPool.Ping(ctx)
		},
	}

	go cleanupVisits(ctx, visitService)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// cleanupVisits drops expired visit counters until ctx is done.
func cleanupVisits(ctx context.Context, svc *visit.Service) {
	ticker := time.NewTicker(visitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanupExpired(ctx)
			if err != nil {
				log.Printf("visit cleanup: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("visit cleanup: removed %d expired sessions", n)
			}
		}
	}
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
