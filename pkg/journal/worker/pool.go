// Package worker provides an asynchronous worker pool for enriching dream
// records with analysis text and a generated image.
//
// The pool decouples the slow generation calls from the API's HTTP hot path:
// creating a record returns immediately, enrichment lands later.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/eventstream"
	"github.com/lucidjournal/lucidd/pkg/journal"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of enrichment work for the pool to execute against.
type Job struct {
	DreamID int64
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Journal orchestrates the enrichment calls and the facet update.
	Journal *journal.Journal

	// Publisher receives a dream.enriched event after a successful update.
	// Optional; nil disables event emission.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes enrichment jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Journal == nil {
		return nil, fmt.Errorf("journal is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("enrichment job queued",
			zap.Int64("dream_id", job.DreamID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.Int64("dream_id", job.DreamID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("enrichment worker stopped", zap.Uint("worker_id", id))
}

// processJob enriches one record. The two facets degrade independently: a
// failed generation keeps that facet's prior value so a retry cannot clobber
// an earlier success with an empty result.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	rec, err := p.config.Journal.Dream(ctx, job.DreamID)
	if err != nil {
		p.logger.Error("enrichment skipped, record unavailable",
			zap.Int64("dream_id", job.DreamID),
			zap.Error(err),
		)
		return
	}

	analysis := rec.Analysis
	image := rec.Image
	failures := 0

	if got, err := p.config.Journal.Analyze(ctx, job.DreamID); err != nil {
		failures++
		p.logger.Warn("analysis generation failed",
			zap.Int64("dream_id", job.DreamID),
			zap.Error(err),
		)
	} else {
		analysis = got
	}

	if got, err := p.config.Journal.Illustrate(ctx, job.DreamID); err != nil {
		failures++
		p.logger.Warn("image generation failed",
			zap.Int64("dream_id", job.DreamID),
			zap.Error(err),
		)
	} else {
		image = got
	}

	if failures == 2 {
		p.logger.Error("enrichment produced nothing new, record left unchanged",
			zap.Int64("dream_id", job.DreamID),
		)
		return
	}

	updated, err := p.config.Journal.UpdateAnalysisAndImage(ctx, job.DreamID, analysis, image)
	if err != nil {
		p.logger.Error("persisting enrichment failed",
			zap.Int64("dream_id", job.DreamID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("dream enriched",
		zap.Int64("dream_id", job.DreamID),
		zap.Bool("has_analysis", updated.Analysis != ""),
		zap.Bool("has_image", updated.Image != nil),
	)

	if p.config.Publisher != nil {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamEnriched, updated)
		if err := p.config.Publisher.PublishDream(ctx, event); err != nil {
			p.logger.Warn("publishing enrichment event failed",
				zap.Int64("dream_id", job.DreamID),
				zap.Error(err),
			)
		}
	}
}
