package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/model"
	"bulk-mail-verify-go/internal/ratelimit"
)

// schedulePoll arms a one-shot status check for a batch. Polls are chained
// rather than periodic so each batch carries its own attempt count.
func (s *Service) schedulePoll(mode model.Mode, batchID string, attempt int) {
	s.sched.After(s.cfg.PollDelay, func(ctx context.Context) {
		s.pollBatch(ctx, mode, batchID, attempt)
	})
}

// pollBatch checks a batch's provider status and either finishes it,
// re-arms the poll, or gives up once the attempt budget runs out.
func (s *Service) pollBatch(ctx context.Context, mode model.Mode, batchID string, attempt int) {
	allowed, _, err := s.limiter.CanProceed(ctx, mode, ratelimit.OpPoll)
	if err != nil {
		logrus.Errorf("Rate limit check failed for batch %s (mode %s): %v", batchID, mode, err)
		s.schedulePoll(mode, batchID, attempt)
		return
	}
	if !allowed {
		s.metrics.RateLimitDenials.WithLabelValues(string(mode), ratelimit.OpPoll).Inc()
		s.schedulePoll(mode, batchID, attempt)
		return
	}

	status, err := s.client.BatchStatus(ctx, mode, batchID)
	if recordErr := s.limiter.Record(ctx, mode, ratelimit.OpPoll, 1); recordErr != nil {
		logrus.Errorf("Failed to record poll usage (mode %s): %v", mode, recordErr)
	}
	s.metrics.PollChecks.WithLabelValues(string(mode)).Inc()
	if err != nil {
		if errors.Is(err, bouncer.ErrRateLimited) {
			logrus.Warnf("Provider throttled status check for batch %s (mode %s), retrying", batchID, mode)
			s.schedulePoll(mode, batchID, attempt)
			return
		}
		logrus.Errorf("Failed to check batch %s (mode %s): %v", batchID, mode, err)
		s.failBatch(ctx, mode, batchID)
		return
	}

	if !status.Completed() {
		if err := s.store.UpdateBouncerBatchProgress(ctx, mode, batchID, status.Processed); err != nil {
			logrus.Errorf("Failed to update progress for batch %s (mode %s): %v", batchID, mode, err)
		}
		if attempt >= s.cfg.MaxPollAttempts {
			logrus.Errorf("Batch %s (mode %s) still %s after %d polls, giving up", batchID, mode, status.Status, attempt)
			s.failBatch(ctx, mode, batchID)
			return
		}
		s.schedulePoll(mode, batchID, attempt+1)
		return
	}

	s.finishBatch(ctx, mode, batchID, status)
}

// finishBatch downloads and ingests the results of a completed batch. If the
// download budget is spent the batch stays active and the sweep retries it.
func (s *Service) finishBatch(ctx context.Context, mode model.Mode, batchID string, status bouncer.BatchStatus) {
	if err := s.store.UpdateBouncerBatchProgress(ctx, mode, batchID, status.Processed); err != nil {
		logrus.Errorf("Failed to update progress for batch %s (mode %s): %v", batchID, mode, err)
	}

	allowed, _, err := s.limiter.CanProceed(ctx, mode, ratelimit.OpDownload)
	if err != nil {
		logrus.Errorf("Rate limit check failed for batch %s (mode %s): %v", batchID, mode, err)
		return
	}
	if !allowed {
		s.metrics.RateLimitDenials.WithLabelValues(string(mode), ratelimit.OpDownload).Inc()
		logrus.Warnf("Download budget exhausted (mode %s), leaving batch %s for the sweep", mode, batchID)
		return
	}

	results, err := s.client.DownloadResults(ctx, mode, batchID)
	if recordErr := s.limiter.Record(ctx, mode, ratelimit.OpDownload, 1); recordErr != nil {
		logrus.Errorf("Failed to record download usage (mode %s): %v", mode, recordErr)
	}
	if err != nil {
		if errors.Is(err, bouncer.ErrRateLimited) {
			logrus.Warnf("Provider throttled download for batch %s (mode %s), leaving it for the sweep", batchID, mode)
			return
		}
		logrus.Errorf("Failed to download results for batch %s (mode %s): %v", batchID, mode, err)
		s.failBatch(ctx, mode, batchID)
		return
	}

	start := time.Now()
	stored, err := s.store.IngestResults(ctx, mode, batchID, results)
	s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logrus.Errorf("Failed to ingest results for batch %s (mode %s): %v", batchID, mode, err)
		s.failBatch(ctx, mode, batchID)
		return
	}

	s.metrics.BatchesCompleted.WithLabelValues(string(mode)).Inc()
	s.metrics.ResultsIngested.WithLabelValues(string(mode)).Add(float64(stored))
	logrus.Infof("Completed bouncer batch %s (mode %s): %d results ingested", batchID, mode, stored)
}

// SweepActiveBatches is the safety net for batches whose poll chain was lost,
// such as after a restart or a deferred download. Every active batch gets one
// status check per sweep.
func (s *Service) SweepActiveBatches(ctx context.Context, mode model.Mode) {
	batches, err := s.store.ListActiveBouncerBatches(ctx, mode)
	if err != nil {
		logrus.Errorf("Failed to list active bouncer batches (mode %s): %v", mode, err)
		return
	}
	for _, batch := range batches {
		s.checkBatch(ctx, mode, batch.ID)
	}
}

// checkBatch is a single sweep-driven status check. Unlike pollBatch it never
// re-arms a timer; the next sweep is the retry.
func (s *Service) checkBatch(ctx context.Context, mode model.Mode, batchID string) {
	allowed, _, err := s.limiter.CanProceed(ctx, mode, ratelimit.OpPoll)
	if err != nil {
		logrus.Errorf("Rate limit check failed for batch %s (mode %s): %v", batchID, mode, err)
		return
	}
	if !allowed {
		s.metrics.RateLimitDenials.WithLabelValues(string(mode), ratelimit.OpPoll).Inc()
		return
	}

	status, err := s.client.BatchStatus(ctx, mode, batchID)
	if recordErr := s.limiter.Record(ctx, mode, ratelimit.OpPoll, 1); recordErr != nil {
		logrus.Errorf("Failed to record poll usage (mode %s): %v", mode, recordErr)
	}
	s.metrics.PollChecks.WithLabelValues(string(mode)).Inc()
	if err != nil {
		if errors.Is(err, bouncer.ErrRateLimited) {
			return
		}
		logrus.Errorf("Failed to check batch %s (mode %s): %v", batchID, mode, err)
		s.failBatch(ctx, mode, batchID)
		return
	}

	if !status.Completed() {
		if err := s.store.UpdateBouncerBatchProgress(ctx, mode, batchID, status.Processed); err != nil {
			logrus.Errorf("Failed to update progress for batch %s (mode %s): %v", batchID, mode, err)
		}
		return
	}

	s.finishBatch(ctx, mode, batchID, status)
}

// failBatch marks a batch failed and releases its emails back to the backlog
// so a later batch picks them up.
func (s *Service) failBatch(ctx context.Context, mode model.Mode, batchID string) {
	if err := s.store.MarkBouncerBatchFailed(ctx, mode, batchID); err != nil {
		logrus.Errorf("Failed to mark batch %s failed (mode %s): %v", batchID, mode, err)
		return
	}
	s.metrics.BatchesFailed.WithLabelValues(string(mode)).Inc()
	logrus.Warnf("Bouncer batch %s failed (mode %s), emails released to backlog", batchID, mode)
}
