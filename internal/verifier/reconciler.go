package verifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"bulk-mail-verify-go/internal/model"
)

// ReconcileStuck completes verification batches whose emails have all been
// resolved through other batches. A submission can end up in this state when
// its bouncer batch failed after a sibling batch already ingested every email
// it shared.
func (s *Service) ReconcileStuck(ctx context.Context, mode model.Mode) {
	fixed, err := s.store.FinalizeStuckBatches(ctx, mode)
	if err != nil {
		logrus.Errorf("Failed to reconcile stuck batches (mode %s): %v", mode, err)
		return
	}
	if fixed > 0 {
		s.metrics.StuckBatchesFixed.WithLabelValues(string(mode)).Add(float64(fixed))
		logrus.Warnf("Finalized %d stuck verification batches (mode %s)", fixed, mode)
	}
}
