/**
 * Queue consumer for the extraction worker.
 *
 * Consumes extraction jobs from Redis via Asynq, runs them through the
 * orchestrator and writes terminal state to storage. Storage and cache
 * are best-effort: their failures are logged, never turned into job
 * retries.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/docforge/extract-worker/internal/errors"
	"github.com/docforge/extract-worker/internal/extract"
	"github.com/docforge/extract-worker/internal/logging"
	"github.com/docforge/extract-worker/internal/storage"
)

// TaskTypeExtract is the Asynq task type for extraction jobs.
const TaskTypeExtract = "extract:document"

// JobPayload is the wire format of one extraction job.
type JobPayload struct {
	JobID     string `json:"jobId"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType,omitempty"`
	FilePath  string `json:"filePath,omitempty"`
	FileData  []byte `json:"fileData,omitempty"`
	PageLimit int    `json:"pageLimit,omitempty"`
}

// JobStore is the subset of the Postgres store the consumer needs.
type JobStore interface {
	MarkProcessing(ctx context.Context, jobID string) error
	SaveResult(ctx context.Context, r *storage.JobResult) error
}

// ResultCache is the subset of the Redis cache the consumer needs.
type ResultCache interface {
	Get(ctx context.Context, key string) (*storage.CachedResult, error)
	Set(ctx context.Context, key string, result *storage.CachedResult) error
}

// ConsumerConfig holds consumer configuration. Store and Cache may be
// nil; the consumer then runs stateless.
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration
	Orchestrator      *extract.Orchestrator
	Store             JobStore
	Cache             ResultCache
	Logger            *logging.Logger
}

// Consumer pulls extraction jobs off the queue.
type Consumer struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	orchestrator *extract.Orchestrator
	store        JobStore
	cache        ResultCache
	timeout      time.Duration
	log          *logging.Logger
}

// NewConsumer creates a queue consumer.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("Orchestrator is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewLogger("queue")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// Exponential backoff capped at one minute: 5s, 10s, 20s, ...
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	timeout := cfg.ProcessingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	c := &Consumer{
		server:       server,
		mux:          asynq.NewServeMux(),
		orchestrator: cfg.Orchestrator,
		store:        cfg.Store,
		cache:        cfg.Cache,
		timeout:      timeout,
		log:          log,
	}
	c.mux.HandleFunc(TaskTypeExtract, c.handleExtract)
	return c, nil
}

// Start runs the server in the background.
func (c *Consumer) Start() error {
	c.log.Info("starting queue consumer", "timeout", c.timeout)
	return c.server.Start(c.mux)
}

// Stop drains in-flight jobs and shuts the server down.
func (c *Consumer) Stop() {
	c.log.Info("stopping queue consumer")
	c.server.Shutdown()
}

func (c *Consumer) handleExtract(ctx context.Context, task *asynq.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload will never parse on retry.
		return fmt.Errorf("unmarshal job payload: %v: %w", err, asynq.SkipRetry)
	}
	log := c.log.WithJob(payload.JobID)
	log.Info("job received", "filename", payload.Filename, "bytes", len(payload.FileData))

	if c.store != nil {
		if err := c.store.MarkProcessing(ctx, payload.JobID); err != nil {
			log.Warn("failed to mark job processing", "error", err)
		}
	}

	// Identical file content short-circuits to the cached result.
	var cacheKey string
	if c.cache != nil && len(payload.FileData) > 0 {
		cacheKey = storage.ContentKey(payload.FileData)
		if cached, err := c.cache.Get(ctx, cacheKey); err != nil {
			log.Warn("cache lookup failed", "error", err)
		} else if cached != nil {
			log.Info("cache hit", "method", cached.Method, "pages", cached.PageCount)
			c.saveCompleted(ctx, payload.JobID, cached, 0)
			return nil
		}
	}

	processCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outcome := c.orchestrator.Process(processCtx, &extract.Request{
		JobID:        payload.JobID,
		Filename:     payload.Filename,
		DeclaredMIME: payload.MimeType,
		Data:         payload.FileData,
		Path:         payload.FilePath,
		PageLimit:    payload.PageLimit,
	})

	if !outcome.Success {
		log.Error("extraction failed", "reason", outcome.Reason, "duration", outcome.Duration, "error", outcome.Err)
		if c.store != nil {
			errMsg := ""
			if outcome.Err != nil {
				errMsg = outcome.Err.Error()
			}
			if err := c.store.SaveResult(ctx, &storage.JobResult{
				JobID:        payload.JobID,
				Status:       storage.StatusFailed,
				ErrorCode:    outcome.Reason,
				ErrorMessage: errMsg,
				Text:         outcome.PartialText,
				Duration:     outcome.Duration,
			}); err != nil {
				log.Warn("failed to save failure", "error", err)
			}
		}
		// Caller errors and unsupported formats are permanent: the same
		// bytes produce the same rejection on every attempt.
		if outcome.Reason == errors.ErrorInvalidInput || outcome.Reason == errors.ErrorUnsupportedFormat {
			return fmt.Errorf("extraction failed: %v: %w", outcome.Err, asynq.SkipRetry)
		}
		return fmt.Errorf("extraction failed: %w", outcome.Err)
	}

	log.Info("extraction completed", "method", outcome.Method,
		"pages", outcome.PageCount, "duration", outcome.Duration,
		"warnings", strings.Join(outcome.Warnings, "; "))

	result := &storage.CachedResult{
		Text:      outcome.Text,
		Method:    outcome.Method,
		PageCount: outcome.PageCount,
		Warnings:  outcome.Warnings,
	}
	c.saveCompleted(ctx, payload.JobID, result, outcome.Duration)

	if c.cache != nil && cacheKey != "" {
		if err := c.cache.Set(ctx, cacheKey, result); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}
	return nil
}

func (c *Consumer) saveCompleted(ctx context.Context, jobID string, r *storage.CachedResult, dur time.Duration) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveResult(ctx, &storage.JobResult{
		JobID:     jobID,
		Status:    storage.StatusCompleted,
		Method:    r.Method,
		PageCount: r.PageCount,
		Text:      r.Text,
		Warnings:  r.Warnings,
		Duration:  dur,
	}); err != nil {
		c.log.WithJob(jobID).Warn("failed to save result", "error", err)
	}
}
