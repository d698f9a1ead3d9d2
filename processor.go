// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"context"
	"fmt"

	"github.com/rudi-q/pdfsqueeze/logger"
	"golang.org/x/sync/semaphore"
)

// Processor defines the contract for compressing a PDF document.
type Processor interface {
	Compress(ctx context.Context, data []byte) ([]byte, *Stats, error)
}

// processor manages PDF compression with concurrency control.
type processor struct {
	cfg *Config
	sem *semaphore.Weighted
}

// NewProcessor validates the config and creates a new processor.
// It panics on an invalid config, since that is a programming error
// rather than a runtime condition.
func NewProcessor(cfg *Config) *processor {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	logger.Debug(fmt.Sprintf("Processor initialized: quality=%d min_image_bytes=%d max_concurrent_docs=%d",
		cfg.Quality, cfg.MinImageBytes, cfg.MaxConcurrentDocs), true)

	return &processor{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrentDocs)),
	}
}

// Compress parses a PDF, recompresses its eligible images, prunes
// dead objects, and serializes the result. Per-image problems are
// absorbed into Stats; only an unparseable input or a failed
// serialization returns an error.
func (p *processor) Compress(ctx context.Context, data []byte) ([]byte, *Stats, error) {
	logger.Debug(fmt.Sprintf("Starting compression: size=%d", len(data)), true)

	if err := p.acquireSlot(ctx); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return nil, nil, err
	}
	defer p.sem.Release(1)

	doc, err := Parse(data)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to parse PDF: err=%v", err), true)
		return nil, nil, err
	}
	logger.Debug(fmt.Sprintf("Document parsed: version=%s objects=%d", doc.Version(), doc.NumObjects()), true)

	stats := newStats()
	doc.compressImages(p.cfg, stats)
	doc.prune(stats)

	out, err := doc.Serialize()
	if err != nil {
		logger.Debug(fmt.Sprintf("Serialization failed: err=%v", err), true)
		return nil, nil, err
	}

	stats.finish(len(data), len(out))
	stats.logSummary()
	return out, stats, nil
}

func (p *processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}
