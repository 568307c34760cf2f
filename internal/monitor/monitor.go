// Package monitor is the observational layer over the job queue: prometheus
// gauges sampled on a cron schedule plus backlog warnings. It only reads the
// store and never drives scheduling decisions.
package monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

// Backlog thresholds that trip a health warning in the logs.
const (
	PendingWarnThreshold = 50
	FailedWarnThreshold  = 10
)

type Monitor struct {
	jobs    ports.JobStore
	metrics *Metrics
	log     *logrus.Logger
	cron    *cron.Cron
}

func New(jobs ports.JobStore, metrics *Metrics, log *logrus.Logger) *Monitor {
	return &Monitor{jobs: jobs, metrics: metrics, log: log, cron: cron.New()}
}

// Start registers the sampling sweep and runs one immediately so gauges are
// populated without waiting for the first tick.
func (m *Monitor) Start(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = 30 * time.Second
	}
	spec := "@every " + every.String()
	if _, err := m.cron.AddFunc(spec, func() { m.Sample(ctx) }); err != nil {
		return err
	}
	m.cron.Start()
	go m.Sample(ctx)
	return nil
}

func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// Sample refreshes the jobs-by-status gauges and logs a warning when the
// backlog or failure count crosses its threshold.
func (m *Monitor) Sample(ctx context.Context) {
	counts, err := m.jobs.CountByStatus(ctx)
	if err != nil {
		m.log.WithError(err).Warn("queue sample failed")
		return
	}
	for _, status := range []domain.JobStatus{domain.JobPending, domain.JobLeased, domain.JobComplete, domain.JobFailed} {
		m.metrics.JobsByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	if counts[domain.JobPending] > PendingWarnThreshold {
		m.log.WithField("pending", counts[domain.JobPending]).Warn("discovery job backlog above threshold")
	}
	if counts[domain.JobFailed] > FailedWarnThreshold {
		m.log.WithField("failed", counts[domain.JobFailed]).Warn("failed discovery jobs above threshold")
	}
}
