package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bulk-mail-verify-go/internal/model"
)

// BacklogEmail is one email eligible for the next bouncer batch, joined with
// the submission it came from.
type BacklogEmail struct {
	EmailID             uint
	Address             string
	Stripped            string
	VerificationBatchID uint
	SubmittedAt         time.Time
}

// CollectBacklog returns up to limit emails waiting for provider
// verification, oldest submission first. An email is waiting when its link
// has neither flag set, its submission is still open, and no bouncer batch
// currently holds it.
func (s *Store) CollectBacklog(ctx context.Context, mode model.Mode, limit int) ([]BacklogEmail, error) {
	if limit <= 0 {
		return nil, nil
	}
	t := mode.Tables()

	var rows []BacklogEmail
	err := s.db.WithContext(ctx).
		Table(t.VerificationBatchEmails+" AS vbe").
		Select("e.id AS email_id, e.address AS address, e.stripped AS stripped, vb.id AS verification_batch_id, vb.created_at AS submitted_at").
		Joins("JOIN "+t.VerificationBatches+" AS vb ON vb.id = vbe.batch_id").
		Joins("JOIN emails AS e ON e.id = vbe.email_id").
		Where("vbe.used_cache = ? AND vbe.did_complete = ?", false, false).
		Where("vb.status IN ?", []string{model.BatchStatusQueued, model.BatchStatusProcessing}).
		Where("NOT EXISTS (SELECT 1 FROM "+t.BouncerBatchEmails+" AS bbe WHERE bbe.email_id = vbe.email_id)").
		Order("vb.created_at ASC, e.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to collect backlog: %w", err)
	}
	return rows, nil
}

// AssignBouncerBatch records a freshly submitted provider batch in one
// transaction: the batch row, one link per collected email, and a status bump
// for every submission whose first email just went out. Returns the number of
// submissions moved from queued to processing.
func (s *Store) AssignBouncerBatch(ctx context.Context, mode model.Mode, providerID string, emails []BacklogEmail) (int, error) {
	if len(emails) == 0 {
		return 0, fmt.Errorf("cannot assign bouncer batch %s: no emails", providerID)
	}
	t := mode.Tables()
	now := time.Now()

	unique := make(map[uint]struct{}, len(emails))
	seenBatch := make(map[uint]struct{})
	batchIDs := make([]uint, 0)
	links := make([]model.BouncerBatchEmail, 0, len(emails))
	for _, e := range emails {
		unique[e.EmailID] = struct{}{}
		if _, ok := seenBatch[e.VerificationBatchID]; !ok {
			seenBatch[e.VerificationBatchID] = struct{}{}
			batchIDs = append(batchIDs, e.VerificationBatchID)
		}
		links = append(links, model.BouncerBatchEmail{
			BouncerBatchID:      providerID,
			EmailID:             e.EmailID,
			VerificationBatchID: e.VerificationBatchID,
			CreatedAt:           now,
		})
	}

	var moved int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch := model.BouncerBatch{
			ID:         providerID,
			Status:     model.BouncerStatusPending,
			EmailCount: len(unique),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Table(t.BouncerBatches).Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to create bouncer batch: %w", err)
		}

		if err := tx.Table(t.BouncerBatchEmails).CreateInBatches(&links, 500).Error; err != nil {
			return fmt.Errorf("failed to link batch emails: %w", err)
		}

		res := tx.Table(t.VerificationBatches).
			Where("id IN ? AND status = ?", batchIDs, model.BatchStatusQueued).
			Updates(map[string]interface{}{
				"status":     model.BatchStatusProcessing,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update verification batches: %w", res.Error)
		}
		moved = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(moved), nil
}
