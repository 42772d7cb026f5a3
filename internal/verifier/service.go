package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/metrics"
	"bulk-mail-verify-go/internal/model"
	"bulk-mail-verify-go/internal/ratelimit"
	"bulk-mail-verify-go/internal/store"
)

// ProviderClient is the slice of the bouncer client the pipeline needs.
type ProviderClient interface {
	SubmitBatch(ctx context.Context, mode model.Mode, emails []string) (string, error)
	BatchStatus(ctx context.Context, mode model.Mode, batchID string) (bouncer.BatchStatus, error)
	DownloadResults(ctx context.Context, mode model.Mode, batchID string) ([]bouncer.Result, error)
}

// JobScheduler is the slice of the scheduler the pipeline needs.
type JobScheduler interface {
	Every(name string, interval time.Duration, job func(context.Context))
	After(delay time.Duration, job func(context.Context))
}

// Service drives both verification pipelines: it creates bouncer batches from
// the backlog, polls them to completion, ingests their results, and
// reconciles submissions the happy path missed. All state lives in storage;
// the service itself only holds wiring.
type Service struct {
	store   *store.Store
	client  ProviderClient
	limiter *ratelimit.Window
	sched   JobScheduler
	metrics *metrics.Metrics
	cfg     config.SchedulerConfig
	limits  config.LimitsConfig
}

// NewService creates a new verification pipeline service
func NewService(st *store.Store, client ProviderClient, limiter *ratelimit.Window, sched JobScheduler, m *metrics.Metrics, cfg config.SchedulerConfig, limits config.LimitsConfig) *Service {
	return &Service{
		store:   st,
		client:  client,
		limiter: limiter,
		sched:   sched,
		metrics: m,
		cfg:     cfg,
		limits:  limits,
	}
}

// RegisterJobs registers the batch creation, sweep and reconciliation jobs
// for every verification mode.
func (s *Service) RegisterJobs() {
	for _, mode := range model.Modes() {
		mode := mode
		s.sched.Every(fmt.Sprintf("create-batches:%s", mode), s.cfg.CreateInterval, func(ctx context.Context) {
			s.CreateBatches(ctx, mode)
		})
		s.sched.Every(fmt.Sprintf("sweep-batches:%s", mode), s.cfg.SweepInterval, func(ctx context.Context) {
			s.SweepActiveBatches(ctx, mode)
		})
		s.sched.Every(fmt.Sprintf("reconcile-batches:%s", mode), s.cfg.ReconcileInterval, func(ctx context.Context) {
			s.ReconcileStuck(ctx, mode)
		})
	}
}

// RunOnce runs one full pipeline cycle for the mode (for manual triggering)
func (s *Service) RunOnce(ctx context.Context, mode model.Mode) {
	logrus.Infof("Running verification cycle once for mode %s", mode)
	s.CreateBatches(ctx, mode)
	s.SweepActiveBatches(ctx, mode)
	s.ReconcileStuck(ctx, mode)
}
