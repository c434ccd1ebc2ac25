// Command server is the transcription API's entrypoint: it loads
// configuration, wires the storage/queue/pipeline collaborators, starts
// the worker pool, and serves the HTTP surface until an interrupt signal
// triggers a graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"transcribeapi/internal/api"
	"transcribeapi/internal/blobstore"
	"transcribeapi/internal/config"
	"transcribeapi/internal/database"
	"transcribeapi/internal/feedback"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/lexiconadmin"
	"transcribeapi/internal/metrics"
	"transcribeapi/internal/pipeline"
	"transcribeapi/internal/queue"
	"transcribeapi/internal/repository"
	"transcribeapi/internal/submission"
	"transcribeapi/internal/transcription"
	"transcribeapi/internal/webhook"
	"transcribeapi/internal/worker"
	"transcribeapi/pkg/logger"

	"github.com/gin-gonic/gin"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("transcribeapi %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.Load()

	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Info("starting transcription API", "version", version, "commit", commit)

	if err := database.Initialize(cfg.DatabasePath); err != nil {
		log.Fatal("failed to initialize database:", err)
	}
	defer database.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		log.Fatal("failed to create upload directory:", err)
	}
	blobs, err := blobstore.New(cfg.UploadDir)
	if err != nil {
		log.Fatal("failed to initialize blob store:", err)
	}

	redisClient := queue.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	q := queue.New(redisClient, cfg.VisibilityTimeout)

	jobRepo := repository.NewJobRepository(database.DB)
	lexiconRepo := repository.NewLexiconRepository(database.DB)
	feedbackRepo := repository.NewFeedbackRepository(database.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(database.DB)

	lexiconCache := lexicon.NewCache(lexiconRepo, cfg.CacheTTL)

	var polish *pipeline.PolishClient
	if cfg.EnableLargeModelPolish {
		polish = pipeline.NewPolishClient(cfg.PolishBaseURL, cfg.PolishAPIKey, cfg.PolishModel, cfg.PolishTimeout)
	}
	proc := pipeline.New(lexiconCache, polish)

	recognizer := transcription.New(cfg.RecognizerBaseURL, cfg.RecognizerAPIKey, "", cfg.RecognizerTimeout, transcription.RetryPolicy{
		MaxRetries: cfg.RetryMax,
		Initial:    cfg.RetryInitial,
		Multiplier: cfg.RetryMultiplier,
		Cap:        cfg.RetryCap,
	})

	appMetrics := metrics.New()
	notifier := webhook.NewNotifier(10 * time.Second)

	pool := worker.New(worker.Deps{
		Jobs:       jobRepo,
		Queue:      q,
		Blobs:      blobs,
		Recognizer: recognizer,
		Pipeline:   proc,
		Cache:      lexiconCache,
		Config:     cfg,
		Webhooks:   notifier,
		Metrics:    appMetrics,
	}, cfg.WorkerCount)
	pool.Start()
	defer pool.Stop()

	submissionSvc := submission.New(blobs, jobRepo, q, cfg.DefaultLexiconID, cfg.MaxAudioBytes)
	lexiconAdminSvc := lexiconadmin.New(lexiconRepo, lexiconCache)
	feedbackSvc := feedback.New(feedbackRepo, jobRepo)

	handler := api.NewHandler(submissionSvc, jobRepo, lexiconAdminSvc, feedbackSvc)

	if cfg.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}
	allowedOrigins := strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",")
	router := api.SetupRoutes(handler, apiKeyRepo, allowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
