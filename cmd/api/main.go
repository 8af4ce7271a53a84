package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wildvox/wildvox/internal/application"
	appaudio "github.com/wildvox/wildvox/internal/application/audio"
	"github.com/wildvox/wildvox/internal/config"
	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
	"github.com/wildvox/wildvox/internal/infra/crypto"
	memdb "github.com/wildvox/wildvox/internal/infra/db/memory"
	mysqldb "github.com/wildvox/wildvox/internal/infra/db/mysql"
	pgdb "github.com/wildvox/wildvox/internal/infra/db/postgres"
	"github.com/wildvox/wildvox/internal/infra/httpserver"
	openaiengine "github.com/wildvox/wildvox/internal/infra/inference/openai"
	minioStore "github.com/wildvox/wildvox/internal/infra/storage"
	"github.com/wildvox/wildvox/internal/logger"
	"github.com/wildvox/wildvox/internal/middleware"
	"github.com/wildvox/wildvox/internal/pipeline"
	"github.com/wildvox/wildvox/internal/quality"
)

func main() {
	// .env opsional, buat development lokal
	_ = godotenv.Load()

	log := logger.New()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}

	ctx := context.Background()

	var (
		artifactRepo artifacts.Repository
		jobRepo      analysis.JobRepository
		resultRepo   analysis.ResultRepository
		jobErrRepo   analysis.JobErrorRepository
		db           *sql.DB
		health       = map[string]middleware.HealthChecker{}
	)

	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.WithError(err).Fatal("mysql connect error")
		}
		artifactRepo = mysqldb.NewArtifactRepository(db)
		jobRepo = mysqldb.NewJobRepository(db)
		resultRepo = mysqldb.NewResultRepository(db)
		jobErrRepo = mysqldb.NewJobErrorRepository(db)
	case "postgres":
		db, err = pgdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.WithError(err).Fatal("postgres connect error")
		}
		artifactRepo = pgdb.NewArtifactRepository(db)
		jobRepo = pgdb.NewJobRepository(db)
		resultRepo = pgdb.NewResultRepository(db)
		jobErrRepo = pgdb.NewJobErrorRepository(db)
	case "memory":
		artifactRepo = memdb.NewArtifactRepository()
		jobRepo = memdb.NewJobRepository()
		resultRepo = memdb.NewResultRepository()
		jobErrRepo = memdb.NewJobErrorRepository()
	default:
		log.WithField("driver", cfg.Database.Driver).Fatal("unknown database driver")
	}
	if db != nil {
		defer db.Close()
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// jobs orphaned by a previous crash can never finish; fail them now
	if err := jobRepo.FailNonTerminal(ctx, "interrupted by restart"); err != nil {
		log.WithError(err).Fatal("startup job sweep error")
	}

	var blobs artifacts.BlobStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.WithError(err).Fatal("minio init error")
		}
		blobs = store
		health["storage"] = middleware.CheckerFunc(store.Check)
	} else {
		// dev mode tanpa MinIO
		blobs = memdb.NewBlobStore()
	}

	cipher, err := crypto.NewAESCipher([]byte(cfg.Encryption.Key))
	if err != nil {
		log.WithError(err).Fatal("encryption key error")
	}

	clock := application.SystemClock{}

	orch := &pipeline.Orchestrator{
		Jobs:           jobRepo,
		Results:        resultRepo,
		JobErrors:      jobErrRepo,
		Artifacts:      artifactRepo,
		Blobs:          blobs,
		Cipher:         cipher,
		QC:             quality.NewEngine(quality.DefaultConfig()),
		Engine:         openaiengine.NewClient(cfg.Inference.APIKey, cfg.Inference.Model),
		Agg:            pipeline.Aggregator{AccuracyFloor: cfg.Pipeline.AccuracyFloor},
		Clock:          clock,
		Log:            log,
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		JobTimeout:     cfg.JobTimeout(),
		InitialBackoff: cfg.InitialBackoff(),
	}

	sched := pipeline.NewScheduler(orch, cfg.Pipeline.Workers, log)
	sched.Start()

	audioSvc := &appaudio.Service{
		Repo:         artifactRepo,
		Blobs:        blobs,
		Cipher:       cipher,
		Clock:        clock,
		MaxSizeBytes: cfg.Audio.MaxSizeBytes,
		Species:      cfg.Audio.Species,
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		AudioSvc: audioSvc,
		Sched:    sched,
		Orch:     orch,
		Log:      log,
		AuthKeys: cfg.Auth.Keys,
		Health:   health,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}
	sched.Stop()
}
