package maintenance

import (
	"context"
	"log/slog"
	"sync"
)

// CheckJob is one history row whose blob is to be verified.
type CheckJob struct {
	VersionID     string
	DocumentID    string
	VersionNumber int
	BlobKey       string
}

type Worker struct {
	ID         int
	WorkerPool chan chan CheckJob
	JobChannel chan CheckJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan CheckJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan CheckJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(CheckJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "version_id", job.VersionID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// pool fans jobs from a bounded queue out to idle workers. It runs until
// shutdown, so every accepted job is handed to processFunc.
type pool struct {
	jobQueue   chan CheckJob
	workerPool chan chan CheckJob
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

func startPool(ctx context.Context, workers, queueSize int, processFunc func(CheckJob), logger *slog.Logger) *pool {
	ctx, cancel := context.WithCancel(ctx)
	p := &pool{
		jobQueue:   make(chan CheckJob, queueSize),
		workerPool: make(chan chan CheckJob, workers),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}

	for i := 0; i < workers; i++ {
		NewWorker(i, p.workerPool, logger).Start(ctx, &p.wg, processFunc)
	}

	p.wg.Add(1)
	go p.dispatch()

	logger.Debug("blob check worker pool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// submit blocks until the queue has room or ctx is done.
func (p *pool) submit(ctx context.Context, job CheckJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *pool) shutdown() {
	p.cancel()
	p.wg.Wait()
}
