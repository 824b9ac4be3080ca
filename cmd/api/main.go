package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinwell/checkin-api/internal/application"
	appanalysis "github.com/clinwell/checkin-api/internal/application/analysis"
	appcheckins "github.com/clinwell/checkin-api/internal/application/checkins"
	appinsights "github.com/clinwell/checkin-api/internal/application/insights"
	"github.com/clinwell/checkin-api/internal/config"
	domaincheckins "github.com/clinwell/checkin-api/internal/domain/checkins"
	domainfaults "github.com/clinwell/checkin-api/internal/domain/faults"
	"github.com/clinwell/checkin-api/internal/infra/ai/gemini"
	openaic "github.com/clinwell/checkin-api/internal/infra/ai/openai"
	"github.com/clinwell/checkin-api/internal/infra/ai/prompt"
	mysqlp "github.com/clinwell/checkin-api/internal/infra/db/mysql"
	postgresp "github.com/clinwell/checkin-api/internal/infra/db/postgres"
	"github.com/clinwell/checkin-api/internal/infra/httpserver"
	"github.com/clinwell/checkin-api/internal/infra/probe"
	"github.com/clinwell/checkin-api/internal/infra/storage"
	"github.com/clinwell/checkin-api/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (mysql atau postgres)
	var (
		repo       domaincheckins.Repository
		faultsRepo domainfaults.Repository
		dbChecker  middleware.HealthChecker
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		repo = postgresp.NewCheckInRepository(db)
		faultsRepo = postgresp.NewFaultRepository(db)
		dbChecker = &middleware.DatabaseHealthChecker{DB: db}
	case "mysql", "":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		repo = mysqlp.NewCheckInRepository(db)
		faultsRepo = mysqlp.NewFaultRepository(db)
		dbChecker = &middleware.DatabaseHealthChecker{DB: db}
	default:
		log.Fatalf("unknown database driver: %q", cfg.Database.Driver)
	}

	// init gemini provider
	provider, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("gemini init error: %v", err)
	}

	analyzer := &appanalysis.Service{
		Provider:        provider,
		Sleeper:         application.SystemSleeper{},
		PollInterval:    cfg.PollInterval(),
		MaxPollAttempts: cfg.Gemini.MaxPollAttempts,
		Instruction:     prompt.ClinicalInstruction(),
	}

	// init temp store
	tempDir := cfg.Upload.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	scratch, err := storage.NewTempStore(tempDir)
	if err != nil {
		log.Fatalf("temp store init error: %v", err)
	}

	// init minio (optional)
	var archive domaincheckins.ArchiveStore
	if cfg.Minio.Enabled {
		store, err := storage.NewArchive(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		archive = store
	}

	// init prober (optional, butuh ffprobe di PATH)
	var prober domaincheckins.Prober
	if cfg.Probe.Enabled {
		prober = probe.New()
	}

	// init service
	svc := &appcheckins.Service{
		Repo:               repo,
		Faults:             faultsRepo,
		Scratch:            scratch,
		Analyzer:           analyzer,
		Archive:            archive,
		Prober:             prober,
		Clock:              application.SystemClock{},
		MaxDurationSeconds: cfg.Probe.MaxDurationSeconds,
	}

	// init insights
	insights := &appinsights.Service{
		CheckIns: repo,
		Clock:    application.SystemClock{},
	}
	if cfg.OpenAI.Enabled {
		insights.Narrator = openaic.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	mux.Mount("/", httpserver.NewRouter(svc, insights, httpserver.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		HealthCheckers: map[string]middleware.HealthChecker{"database": dbChecker},
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Minute, // uploads video bisa besar
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
