package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bulk-mail-verify-go/internal/model"
)

// Store wraps all database access for the verification pipeline. Every method
// takes the mode explicitly so both pipelines run through one implementation;
// anything touching more than one table runs inside a transaction.
type Store struct {
	db               *gorm.DB
	maxActiveBatches int
}

// New creates a Store enforcing the given cap on concurrently active bouncer
// batches per mode.
func New(db *gorm.DB, maxActiveBatches int) *Store {
	return &Store{db: db, maxActiveBatches: maxActiveBatches}
}

// CountActiveBouncerBatches returns how many bouncer batches are pending or
// processing, and how many more may be opened under the cap.
func (s *Store) CountActiveBouncerBatches(ctx context.Context, mode model.Mode) (int, int, error) {
	var active int64
	err := s.db.WithContext(ctx).
		Table(mode.Tables().BouncerBatches).
		Where("status IN ?", model.ActiveBouncerStatuses).
		Count(&active).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active bouncer batches: %w", err)
	}

	capacity := s.maxActiveBatches - int(active)
	if capacity < 0 {
		capacity = 0
	}
	return int(active), capacity, nil
}

// ListActiveBouncerBatches returns pending and processing batches, oldest first.
func (s *Store) ListActiveBouncerBatches(ctx context.Context, mode model.Mode) ([]model.BouncerBatch, error) {
	var batches []model.BouncerBatch
	err := s.db.WithContext(ctx).
		Table(mode.Tables().BouncerBatches).
		Where("status IN ?", model.ActiveBouncerStatuses).
		Order("created_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active bouncer batches: %w", err)
	}
	return batches, nil
}

// ListRecentBouncerBatches returns the most recently created batches.
func (s *Store) ListRecentBouncerBatches(ctx context.Context, mode model.Mode, limit int) ([]model.BouncerBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var batches []model.BouncerBatch
	err := s.db.WithContext(ctx).
		Table(mode.Tables().BouncerBatches).
		Order("created_at DESC").
		Limit(limit).
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bouncer batches: %w", err)
	}
	return batches, nil
}

// GetBouncerBatch returns one batch by provider id, or nil when unknown.
func (s *Store) GetBouncerBatch(ctx context.Context, mode model.Mode, id string) (*model.BouncerBatch, error) {
	var batch model.BouncerBatch
	err := s.db.WithContext(ctx).
		Table(mode.Tables().BouncerBatches).
		Where("id = ?", id).
		First(&batch).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bouncer batch: %w", err)
	}
	return &batch, nil
}

// UpdateBouncerBatchProgress stores the provider's processed count. Pending
// batches move to processing on their first progress report; terminal
// batches are left untouched.
func (s *Store) UpdateBouncerBatchProgress(ctx context.Context, mode model.Mode, id string, processed int) error {
	err := s.db.WithContext(ctx).
		Table(mode.Tables().BouncerBatches).
		Where("id = ? AND status IN ?", id, model.ActiveBouncerStatuses).
		Updates(map[string]interface{}{
			"status":          model.BouncerStatusProcessing,
			"processed_count": processed,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update bouncer batch progress: %w", err)
	}
	return nil
}

// MarkBouncerBatchFailed moves an active batch to failed and deletes its
// email links, which puts those emails back into the backlog for the next
// collection. Terminal batches are left untouched.
func (s *Store) MarkBouncerBatchFailed(ctx context.Context, mode model.Mode, id string) error {
	t := mode.Tables()
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(t.BouncerBatches).
			Where("id = ? AND status IN ?", id, model.ActiveBouncerStatuses).
			Updates(map[string]interface{}{
				"status":     model.BouncerStatusFailed,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark bouncer batch failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Table(t.BouncerBatchEmails).
			Where("bouncer_batch_id = ?", id).
			Delete(&model.BouncerBatchEmail{}).Error; err != nil {
			return fmt.Errorf("failed to release batch emails: %w", err)
		}
		return nil
	})
}
