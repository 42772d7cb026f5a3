package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/model"
)

var errAlreadyIngested = errors.New("bouncer batch already ingested")

type ingestLink struct {
	EmailID             uint
	VerificationBatchID uint
	Stripped            string
}

// IngestResults applies a completed batch's downloaded results in one
// transaction. The batch row is claimed first with a conditional update, so
// racing workers and redelivered downloads collapse into a no-op: the call
// returns (0, nil) when another ingestion already won the claim.
//
// Results are matched to emails through the batch's links by canonical
// address; results the provider invents and links the provider never answers
// are both tolerated. Outcome rows are written per mode, links are flagged
// complete, and every touched submission with nothing left outstanding is
// finished.
func (s *Store) IngestResults(ctx context.Context, mode model.Mode, batchID string, results []bouncer.Result) (int, error) {
	t := mode.Tables()
	now := time.Now()

	var stored int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Table(t.BouncerBatches).
			Where("id = ? AND status IN ?", batchID, model.ActiveBouncerStatuses).
			Updates(map[string]interface{}{
				"status":     model.BouncerStatusCompleted,
				"updated_at": now,
			})
		if claim.Error != nil {
			return fmt.Errorf("failed to claim bouncer batch: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return errAlreadyIngested
		}

		var links []ingestLink
		if err := tx.Table(t.BouncerBatchEmails+" AS bbe").
			Select("bbe.email_id AS email_id, bbe.verification_batch_id AS verification_batch_id, e.stripped AS stripped").
			Joins("JOIN emails AS e ON e.id = bbe.email_id").
			Where("bbe.bouncer_batch_id = ?", batchID).
			Scan(&links).Error; err != nil {
			return fmt.Errorf("failed to load batch links: %w", err)
		}

		byStripped := make(map[string][]ingestLink, len(links))
		for _, l := range links {
			byStripped[l.Stripped] = append(byStripped[l.Stripped], l)
		}

		var delRows []model.DeliverabilityResult
		var toxRows []model.ToxicityResult
		seen := make(map[uint]struct{})
		completed := make(map[uint][]uint)

		for _, r := range results {
			matched, ok := byStripped[strings.ToLower(strings.TrimSpace(r.Email))]
			if !ok {
				// Result for an email this batch never carried
				continue
			}
			emailID := matched[0].EmailID
			if _, dup := seen[emailID]; !dup {
				seen[emailID] = struct{}{}
				switch mode {
				case model.ModeCatchall:
					toxRows = append(toxRows, model.ToxicityResult{
						EmailID:   emailID,
						Toxicity:  r.Toxicity,
						CreatedAt: now,
						UpdatedAt: now,
					})
				default:
					delRows = append(delRows, model.DeliverabilityResult{
						EmailID:    emailID,
						Status:     r.Status,
						Reason:     r.Reason,
						IsCatchall: r.AcceptAll,
						Score:      r.Score,
						Provider:   r.Provider,
						CreatedAt:  now,
						UpdatedAt:  now,
					})
				}
			}
			for _, l := range matched {
				completed[l.VerificationBatchID] = append(completed[l.VerificationBatchID], l.EmailID)
			}
		}

		if len(delRows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"status", "reason", "is_catchall", "score", "provider", "updated_at"}),
			}).CreateInBatches(&delRows, 500).Error
			if err != nil {
				return fmt.Errorf("failed to upsert deliverability results: %w", err)
			}
			stored = len(delRows)
		}
		if len(toxRows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"toxicity", "updated_at"}),
			}).CreateInBatches(&toxRows, 500).Error
			if err != nil {
				return fmt.Errorf("failed to upsert toxicity results: %w", err)
			}
			stored = len(toxRows)
		}

		for vbID, emailIDs := range completed {
			if err := tx.Table(t.VerificationBatchEmails).
				Where("batch_id = ? AND email_id IN ?", vbID, emailIDs).
				Updates(map[string]interface{}{"did_complete": true}).Error; err != nil {
				return fmt.Errorf("failed to mark links complete: %w", err)
			}

			var remaining int64
			if err := tx.Table(t.VerificationBatchEmails).
				Where("batch_id = ? AND used_cache = ? AND did_complete = ?", vbID, false, false).
				Count(&remaining).Error; err != nil {
				return fmt.Errorf("failed to count open links: %w", err)
			}
			if remaining == 0 {
				if err := tx.Table(t.VerificationBatches).
					Where("id = ? AND status <> ?", vbID, model.BatchStatusCompleted).
					Updates(map[string]interface{}{
						"status":       model.BatchStatusCompleted,
						"completed_at": now,
						"updated_at":   now,
					}).Error; err != nil {
					return fmt.Errorf("failed to complete verification batch: %w", err)
				}
			}
		}
		return nil
	})
	if errors.Is(err, errAlreadyIngested) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// FinalizeStuckBatches completes processing submissions with no open links
// left. Such rows appear when an ingestion crashed between flagging links and
// updating the submission, or when another batch completed the same emails.
// Returns the number of submissions finished.
func (s *Store) FinalizeStuckBatches(ctx context.Context, mode model.Mode) (int, error) {
	t := mode.Tables()
	now := time.Now()

	res := s.db.WithContext(ctx).
		Table(t.VerificationBatches).
		Where("status = ?", model.BatchStatusProcessing).
		Where("NOT EXISTS (SELECT 1 FROM "+t.VerificationBatchEmails+" AS vbe WHERE vbe.batch_id = "+t.VerificationBatches+".id AND vbe.used_cache = ? AND vbe.did_complete = ?)", false, false).
		Updates(map[string]interface{}{
			"status":       model.BatchStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to finalize stuck batches: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
