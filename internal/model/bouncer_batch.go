package model

import "time"

// Bouncer batch lifecycle statuses as tracked locally. Pending means
// submitted but not yet seen processing; the poller flips batches to
// processing on the first progress report and to completed or failed when the
// provider finishes with them.
const (
	BouncerStatusPending    = "pending"
	BouncerStatusProcessing = "processing"
	BouncerStatusCompleted  = "completed"
	BouncerStatusFailed     = "failed"
)

// ActiveBouncerStatuses are the statuses that count against the concurrent
// batch cap.
var ActiveBouncerStatuses = []string{BouncerStatusPending, BouncerStatusProcessing}

// BouncerBatch represents one bulk job submitted to the verification
// provider. The primary key is the provider-assigned batch id.
type BouncerBatch struct {
	ID             string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Status         string    `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	EmailCount     int       `json:"email_count" gorm:"not null"`
	ProcessedCount int       `json:"processed_count" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BouncerBatchEmail records that an email went out in a bouncer batch on
// behalf of one verification batch. Live rows keep the email out of the
// backlog; rows are deleted when their bouncer batch fails so the email
// becomes eligible for resubmission.
type BouncerBatchEmail struct {
	ID                  uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	BouncerBatchID      string    `json:"bouncer_batch_id" gorm:"type:varchar(64);not null;index"`
	EmailID             uint      `json:"email_id" gorm:"not null;index"`
	VerificationBatchID uint      `json:"verification_batch_id" gorm:"not null;index"`
	CreatedAt           time.Time `json:"created_at"`
}
