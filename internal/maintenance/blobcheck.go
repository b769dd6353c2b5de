// Package maintenance holds the scheduled integrity sweeps run by the worker command.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	documentDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/document"
	"github.com/frahmantamala/policy-register/internal/storage"
)

const defaultPageSize = 200

// VersionSource pages through every stored history row.
type VersionSource interface {
	VersionPage(ctx context.Context, afterID string, limit int) ([]*documentDatamodel.Version, error)
}

type Config struct {
	Workers   int
	QueueSize int
	PageSize  int
}

type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	Missing    []CheckJob
	Failed     int
}

// BlobChecker reports history entries whose blob is no longer in storage.
// It only reads; missing blobs are logged, never repaired.
type BlobChecker struct {
	source VersionSource
	blobs  storage.Blob
	cfg    Config
	logger *slog.Logger
}

func NewBlobChecker(source VersionSource, blobs storage.Blob, cfg Config, logger *slog.Logger) *BlobChecker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &BlobChecker{
		source: source,
		blobs:  blobs,
		cfg:    cfg,
		logger: logger.With("job", "blobcheck"),
	}
}

func (c *BlobChecker) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Missing: []CheckJob{}}
	var (
		mu      sync.Mutex
		pending sync.WaitGroup
	)

	process := func(job CheckJob) {
		defer pending.Done()
		if ctx.Err() != nil {
			return
		}
		exists, err := c.blobs.Exists(ctx, job.BlobKey)
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		report.Checked++
		switch {
		case err != nil:
			report.Failed++
			c.logger.Error("blob check failed", "version_id", job.VersionID, "key", job.BlobKey, "error", err)
		case !exists:
			report.Missing = append(report.Missing, job)
			c.logger.Warn("blob missing",
				"document_id", job.DocumentID,
				"version", job.VersionNumber,
				"key", job.BlobKey)
		}
	}

	p := startPool(context.WithoutCancel(ctx), c.cfg.Workers, c.cfg.QueueSize, process, c.logger)
	defer p.shutdown()

	after := ""
	for ctx.Err() == nil {
		page, err := c.source.VersionPage(ctx, after, c.cfg.PageSize)
		if err != nil {
			pending.Wait()
			return report, fmt.Errorf("failed to read version page after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		for _, v := range page {
			pending.Add(1)
			job := CheckJob{
				VersionID:     v.ID,
				DocumentID:    v.DocumentID,
				VersionNumber: v.VersionNumber,
				BlobKey:       v.BlobKey,
			}
			if !p.submit(ctx, job) {
				pending.Done()
				pending.Wait()
				return report, ctx.Err()
			}
		}
		after = page[len(page)-1].ID
	}

	pending.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.FinishedAt = time.Now().UTC()
	c.logger.Info("blob check finished",
		"checked", report.Checked,
		"missing", len(report.Missing),
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}
