package verifier

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/model"
	"bulk-mail-verify-go/internal/ratelimit"
	"bulk-mail-verify-go/internal/store"
)

// CreateBatches is one batch creation tick: while the concurrent batch cap
// and the rate budget allow, drain the backlog into new bouncer batches.
// The rate limit is re-checked before every slot because other processes may
// be spending the same shared budget.
func (s *Service) CreateBatches(ctx context.Context, mode model.Mode) {
	active, capacity, err := s.store.CountActiveBouncerBatches(ctx, mode)
	if err != nil {
		logrus.Errorf("Failed to count active bouncer batches (mode %s): %v", mode, err)
		return
	}
	s.metrics.ActiveBatches.WithLabelValues(string(mode)).Set(float64(active))
	if capacity == 0 {
		logrus.Debugf("Batch cap reached (mode %s), skipping creation", mode)
		return
	}

	for slot := 0; slot < capacity; slot++ {
		allowed, used, err := s.limiter.CanProceed(ctx, mode, ratelimit.OpSubmit)
		if err != nil {
			logrus.Errorf("Rate limit check failed (mode %s): %v", mode, err)
			return
		}
		if !allowed {
			s.metrics.RateLimitDenials.WithLabelValues(string(mode), ratelimit.OpSubmit).Inc()
			logrus.Warnf("Submit budget exhausted (mode %s, window usage %d), ending tick", mode, used)
			return
		}

		emails, err := s.store.CollectBacklog(ctx, mode, s.limits.MaxBatchSize)
		if err != nil {
			logrus.Errorf("Failed to collect backlog (mode %s): %v", mode, err)
			return
		}
		if len(emails) == 0 {
			logrus.Debugf("Backlog empty (mode %s)", mode)
			return
		}

		payload := dedupeStripped(emails)

		batchID, err := s.client.SubmitBatch(ctx, mode, payload)
		if recordErr := s.limiter.Record(ctx, mode, ratelimit.OpSubmit, 1); recordErr != nil {
			logrus.Errorf("Failed to record submit usage (mode %s): %v", mode, recordErr)
		}
		if err != nil {
			s.metrics.SubmitFailures.WithLabelValues(string(mode)).Inc()
			if errors.Is(err, bouncer.ErrAuthFailed) || errors.Is(err, bouncer.ErrOutOfCredits) {
				logrus.Errorf("Submission blocked (mode %s), ending tick: %v", mode, err)
				return
			}
			logrus.Errorf("Failed to submit batch (mode %s): %v", mode, err)
			continue
		}

		moved, err := s.store.AssignBouncerBatch(ctx, mode, batchID, emails)
		if err != nil {
			// The provider accepted the batch but we have no record of it.
			// Nothing references these emails, so they stay in the backlog
			// and will be verified again in a later batch.
			s.metrics.OrphanedBatches.WithLabelValues(string(mode)).Inc()
			logrus.Errorf("Orphaned bouncer batch %s (mode %s): submitted to provider but not recorded locally: %v", batchID, mode, err)
			continue
		}

		s.metrics.BatchesSubmitted.WithLabelValues(string(mode)).Inc()
		s.metrics.EmailsCollected.WithLabelValues(string(mode)).Add(float64(len(emails)))
		logrus.Infof("Submitted bouncer batch %s (mode %s): %d emails, %d submissions moved to processing", batchID, mode, len(payload), moved)

		s.schedulePoll(mode, batchID, 1)
	}
}

// dedupeStripped returns the unique canonical addresses in backlog order. An
// email multiplexed from several submissions goes to the provider once.
func dedupeStripped(emails []store.BacklogEmail) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if _, ok := seen[e.Stripped]; ok {
			continue
		}
		seen[e.Stripped] = struct{}{}
		out = append(out, e.Stripped)
	}
	return out
}
