/**
 * Extraction worker entry point.
 *
 * Wires the document extraction pipeline:
 * - Asynq consumer for the Redis-backed job queue
 * - Text-layer extraction with a per-page backend fallback
 * - Garbled-text detection with adaptive OCR fallback (Tesseract)
 * - Deterministic post-processing of all extracted text
 * - PostgreSQL persistence and a content-addressed Redis result cache
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/docforge/extract-worker/internal/config"
	"github.com/docforge/extract-worker/internal/extract"
	"github.com/docforge/extract-worker/internal/garble"
	"github.com/docforge/extract-worker/internal/logging"
	"github.com/docforge/extract-worker/internal/ocr"
	"github.com/docforge/extract-worker/internal/queue"
	"github.com/docforge/extract-worker/internal/raster"
	"github.com/docforge/extract-worker/internal/storage"
	"github.com/docforge/extract-worker/internal/textclean"
	"github.com/docforge/extract-worker/internal/textlayer"
)

const queueName = "extraction:jobs"

// statsFlushInterval paces best-effort persistence of worker counters.
const statsFlushInterval = time.Minute

func main() {
	log := logging.NewLogger("worker")

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	workerID := workerIdentity()
	log.Info("extraction worker starting", "worker", workerID,
		"concurrency", cfg.WorkerConcurrency, "redis", cfg.RedisURL)

	// Storage is optional infrastructure: without a database the worker
	// still extracts, it just does not persist job state.
	var store *storage.PostgresStore
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		cancel()
		log.Info("postgres connected")
	}

	var cache *storage.ResultCache
	if cfg.CacheTTLHours > 0 {
		cache, err = storage.NewResultCache(cfg.RedisURL, time.Duration(cfg.CacheTTLHours)*time.Hour)
		if err != nil {
			log.Warn("result cache disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			log.Info("result cache connected", "ttl_hours", cfg.CacheTTLHours)
		}
	}

	orchestrator, err := buildOrchestrator(cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	consumerCfg := &queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         queueName,
		Concurrency:       cfg.WorkerConcurrency,
		ProcessingTimeout: time.Duration(cfg.ProcessingTimeout) * time.Millisecond,
		Orchestrator:      orchestrator,
		Logger:            log,
	}
	if store != nil {
		consumerCfg.Store = store
	}
	if cache != nil {
		consumerCfg.Cache = cache
	}

	consumer, err := queue.NewConsumer(consumerCfg)
	if err != nil {
		log.Error("failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}
	if err := consumer.Start(); err != nil {
		log.Error("failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	log.Info("queue consumer started", "queue", queueName)

	stopFlush := make(chan struct{})
	if store != nil {
		go flushStats(store, orchestrator, workerID, log, stopFlush)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	log.Info("shutdown signal received", "signal", sig)

	close(stopFlush)
	consumer.Stop()

	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.SaveStats(ctx, workerID, orchestrator.Stats()); err != nil {
			log.Warn("final stats flush failed", "error", err)
		}
		cancel()
	}
	log.Info("shutdown complete")
}

// buildOrchestrator assembles the pipeline from configuration. A missing
// Tesseract installation is downgraded to a warning: the worker keeps
// serving text-layer extractions.
func buildOrchestrator(cfg *config.Config, log *logging.Logger) (*extract.Orchestrator, error) {
	textLayer, err := textlayer.NewExtractor(
		textlayer.NewLedongthucBackend(),
		textlayer.NewFitzBackend(),
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("text-layer extractor: %w", err)
	}

	engine := ocr.NewTesseractEngine()
	if err := engine.Available(); err != nil {
		log.Warn("ocr engine unavailable, pipeline degrades to text layer only", "error", err)
	}

	return extract.NewOrchestrator(
		extract.Config{
			MaxFileSize:    cfg.MaxFileSize,
			MaxTextPages:   cfg.MaxTextPages,
			OCRMaxPages:    cfg.OCRMaxPages,
			OCRRenderScale: cfg.OCRRenderScale,
			OCRLanguages:   cfg.OCRLanguages,
			OCRPageTimeout: time.Duration(cfg.OCRPageTimeout) * time.Millisecond,
			Scan: extract.ScanConfig{
				SamplePages:  cfg.ScanSamplePages,
				ImageRatio:   cfg.ScanImageRatio,
				MaxPageChars: cfg.ScanMaxPageChars,
			},
			SimpleModeThreshold: cfg.SimpleModeThreshold,
		},
		extract.Deps{
			TextLayer: textLayer,
			Raster: extract.RasterOpenerFunc(func(data []byte) (extract.RasterDocument, error) {
				return raster.Open(data)
			}),
			Engine: engine,
			Detector: garble.NewDetector(garble.Thresholds{
				SuspiciousRatio: cfg.GarbledSuspiciousRatio,
				MinTextLen:      cfg.GarbledMinTextLen,
				ScoreThreshold:  cfg.GarbledScoreThreshold,
			}),
			Cleaner: textclean.NewCleaner(),
			Logger:  log,
		},
	)
}

// flushStats periodically persists the worker's counters.
func flushStats(store *storage.PostgresStore, o *extract.Orchestrator, workerID string, log *logging.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(statsFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := store.SaveStats(ctx, workerID, o.Stats()); err != nil {
				log.Warn("stats flush failed", "error", err)
			}
			cancel()
		}
	}
}

// workerIdentity builds a stable-enough identity for the stats table:
// hostname plus a per-process suffix so restarted workers do not fight
// over one row mid-flight.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
