package newsletter

import (
	"context"
	"time"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 100

type Mailer interface {
	Newsletter(ctx context.Context, email, subject, message string) error
}

// Dispatcher drains the delivery outbox with a bounded number of concurrent sends.
type Dispatcher struct {
	repo      Repository
	mailer    Mailer
	workers   int
	batchSize int
	interval  time.Duration
	metrics   *metrics.Registry
}

func NewDispatcher(repo Repository, mailer Mailer, workers int, interval time.Duration, registry *metrics.Registry) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &Dispatcher{
		repo:      repo,
		mailer:    mailer,
		workers:   workers,
		batchSize: defaultBatchSize,
		interval:  interval,
		metrics:   registry,
	}
}

func (d *Dispatcher) send(ctx context.Context, batch []Delivery) []Result {
	results := make([]Result, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, dl := range batch {
		g.Go(func() error {
			err := d.mailer.Newsletter(gctx, dl.Email, dl.Subject, dl.Message)
			results[i] = Result{DeliveryID: dl.ID, Err: err}
			if err != nil {
				d.metrics.Counter("newsletter_failed").Inc()
				logger.FromCtx(ctx).Warn("newsletter delivery failed",
					zap.Int64("delivery_id", dl.ID),
					zap.Int("attempt", dl.Attempts+1),
					zap.Error(err),
				)
				return nil
			}
			d.metrics.Counter("newsletter_sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runBatch processes one batch and reports how many deliveries it attempted
// and how many of them went out.
func (d *Dispatcher) runBatch(ctx context.Context) (attempted, delivered int, err error) {
	attempted, err = d.repo.ProcessPending(ctx, d.batchSize, func(ctx context.Context, batch []Delivery) []Result {
		results := d.send(ctx, batch)
		for _, r := range results {
			if r.Err == nil {
				delivered++
			}
		}
		return results
	})
	return attempted, delivered, err
}

// Drain runs batches until the outbox has nothing due. It also stops after a
// batch in which every send failed; those rows come due again after RetryDelay.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, delivered, err := d.runBatch(ctx)
		total += n
		if err != nil || n == 0 || delivered == 0 || ctx.Err() != nil {
			return total, err
		}
	}
}

// Run drains the outbox every interval until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	log := logger.FromCtx(ctx).With(zap.String("component", "newsletter-dispatcher"))
	log.Info("dispatcher started", zap.Int("workers", d.workers), zap.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if n, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			log.Error("dispatch failed", zap.Error(err))
		} else if n > 0 {
			log.Info("deliveries processed", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			log.Info("dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}
