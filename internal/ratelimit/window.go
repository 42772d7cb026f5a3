package ratelimit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bulk-mail-verify-go/internal/model"
)

// Provider API operations tracked against the shared quota. Each mode keeps
// its own event log, so the quota applies per (mode, operation) pair.
const (
	OpSubmit   = "submit"
	OpPoll     = "poll"
	OpDownload = "download"
)

// Window is the storage-backed sliding-window limiter for provider calls.
// Usage is read fresh from the mode's event table on every decision, so the
// budget holds across restarts and across concurrent processes sharing the
// database.
type Window struct {
	db     *gorm.DB
	quota  int64
	buffer int64
	span   time.Duration
}

// NewWindow creates a limiter that admits quota minus buffer events per
// trailing minute.
func NewWindow(db *gorm.DB, quota, buffer int) *Window {
	return &Window{
		db:     db,
		quota:  int64(quota),
		buffer: int64(buffer),
		span:   time.Minute,
	}
}

// CanProceed reports whether one more call for the (mode, operation) pair
// fits inside the window, along with the current usage count. Storage errors
// deny admission.
func (w *Window) CanProceed(ctx context.Context, mode model.Mode, op string) (bool, int64, error) {
	cutoff := time.Now().Add(-w.span)

	var used int64
	err := w.db.WithContext(ctx).
		Table(mode.Tables().RateLimitEvents).
		Select("COALESCE(SUM(count), 0)").
		Where("operation = ? AND created_at >= ?", op, cutoff).
		Scan(&used).Error
	if err != nil {
		return false, 0, err
	}

	return used+1 <= w.quota-w.buffer, used, nil
}

// Record logs n provider calls for the (mode, operation) pair.
func (w *Window) Record(ctx context.Context, mode model.Mode, op string, n int) error {
	event := model.RateLimitEvent{Operation: op, Count: n, CreatedAt: time.Now()}
	return w.db.WithContext(ctx).Table(mode.Tables().RateLimitEvents).Create(&event).Error
}
