// Package dispatcher runs the worker pool. Each worker loops independently:
// claim a job through the store's atomic lease, run the platform's discoverer
// under a timeout, hand items to the classifier, then ack or fail-or-retry.
// Coordination happens entirely through the store; workers share nothing.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/monitor"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

type Config struct {
	Workers         int
	PollInterval    time.Duration
	LeaseDuration   time.Duration
	DiscoverTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 2 * time.Minute
	}
	if c.DiscoverTimeout <= 0 {
		c.DiscoverTimeout = time.Minute
	}
	return c
}

type Dispatcher struct {
	jobs       ports.JobStore
	scans      ports.ScanStore
	registry   ports.DiscovererRegistry
	resolver   ports.IntegrationResolver
	classifier ports.Classifier
	metrics    *monitor.Metrics
	log        *logrus.Logger
	cfg        Config
}

func New(jobs ports.JobStore, scans ports.ScanStore, registry ports.DiscovererRegistry,
	resolver ports.IntegrationResolver, classifier ports.Classifier,
	metrics *monitor.Metrics, log *logrus.Logger, cfg Config) *Dispatcher {
	return &Dispatcher{
		jobs:       jobs,
		scans:      scans,
		registry:   registry,
		resolver:   resolver,
		classifier: classifier,
		metrics:    metrics,
		log:        log,
		cfg:        cfg.withDefaults(),
	}
}

// Run blocks until ctx is cancelled and every worker has drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		g.Go(func() error {
			d.workerLoop(ctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerID string) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, found, err := d.jobs.ClaimNext(ctx, workerID, d.cfg.LeaseDuration)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.WithError(err).WithField("worker", workerID).Warn("job claim failed")
			d.sleep(ctx)
			continue
		}
		if !found {
			d.sleep(ctx)
			continue
		}
		d.execute(ctx, workerID, job)
	}
}

func (d *Dispatcher) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(d.cfg.PollInterval):
	}
}

// execute runs one claimed job to its outcome. A failure here only ever
// touches this job's row; sibling jobs of the same scan are untouched.
func (d *Dispatcher) execute(ctx context.Context, workerID string, job domain.DiscoveryJob) {
	d.metrics.ClaimsTotal.Inc()
	log := d.log.WithFields(logrus.Fields{
		"worker":   workerID,
		"job_id":   job.ID,
		"scan_id":  job.ScanID,
		"platform": job.Platform,
		"job_type": string(job.Type),
	})

	disc, ok := d.registry.Lookup(job.Platform)
	if !ok {
		// Nothing can ever run this job; burn the budget immediately.
		log.Error("no discoverer registered for platform")
		d.recordFailure(ctx, log, job.ID, fmt.Sprintf("no discoverer registered for platform %q", job.Platform), true)
		return
	}

	creds, err := d.credentials(ctx, job)
	if err != nil {
		log.WithError(err).Warn("credential resolution failed")
		d.recordFailure(ctx, log, job.ID, err.Error(), domain.IsTerminal(err))
		return
	}

	dctx, cancel := context.WithTimeout(ctx, d.cfg.DiscoverTimeout)
	res, err := disc.Discover(dctx, creds, job.Cursor)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a source fault. The lease expires and another
			// worker picks the job up with its budget intact.
			log.Info("discovery interrupted by shutdown, job left to lease expiry")
			return
		}
		log.WithError(err).Warn("discovery failed")
		d.recordFailure(ctx, log, job.ID, err.Error(), domain.IsTerminal(err))
		return
	}

	// The follow-up page must exist before the ack, otherwise the scan could
	// read as complete between the two writes.
	if res.NextCursor != "" {
		follow := domain.NewPaginationJob(job, res.NextCursor)
		if err := d.storeWrite(ctx, func(ctx context.Context) error {
			return d.jobs.Enqueue(ctx, []*domain.DiscoveryJob{&follow})
		}); err != nil {
			log.WithError(err).Warn("pagination enqueue failed")
			d.recordFailure(ctx, log, job.ID, fmt.Sprintf("enqueue next page: %v", err), false)
			return
		}
	}

	if len(res.Items) > 0 {
		d.metrics.ItemsDiscovered.Add(float64(len(res.Items)))
		if err := d.classifier.Classify(ctx, job.ScanID, res.Items); err != nil {
			// Downstream classification is not this job's bookkeeping; keep
			// the failure observable and move on.
			d.metrics.ClassifyErrors.Inc()
			log.WithError(err).Warn("classification hand-off failed")
		}
	}

	if err := d.storeWrite(ctx, func(ctx context.Context) error {
		return d.jobs.Ack(ctx, job.ID, len(res.Items))
	}); err != nil {
		log.WithError(err).Error("ack failed after retries, job left to lease expiry")
		return
	}
	d.metrics.AcksTotal.Inc()
	log.WithField("items", len(res.Items)).Info("discovery job complete")
}

func (d *Dispatcher) recordFailure(ctx context.Context, log *logrus.Entry, jobID, reason string, terminal bool) {
	outcome := "retry"
	if terminal {
		outcome = "terminal"
	}
	d.metrics.FailuresTotal.WithLabelValues(outcome).Inc()
	if err := d.storeWrite(ctx, func(ctx context.Context) error {
		return d.jobs.FailOrRetry(ctx, jobID, reason, terminal)
	}); err != nil {
		log.WithError(err).Error("failure record failed after retries, job left to lease expiry")
	}
}

// storeWrite retries an ack/fail/enqueue against a flaky store before giving
// up; a worker must not drop a job update and move on after one error,
// otherwise the job sits leased until expiry for no reason.
func (d *Dispatcher) storeWrite(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// credentials finds the integration backing this job's platform. The scan
// carries the project; the resolver is consulted at execution time because a
// durable job row cannot carry live credentials.
func (d *Dispatcher) credentials(ctx context.Context, job domain.DiscoveryJob) (domain.Credentials, error) {
	scan, err := d.scans.Get(ctx, job.ScanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	active, err := d.resolver.Active(ctx, scan.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve integrations: %w", err)
	}
	for _, in := range active {
		if in.Platform == job.Platform {
			return in.Credentials, nil
		}
	}
	return nil, domain.Terminal(fmt.Errorf("integration for %q no longer active", job.Platform))
}
