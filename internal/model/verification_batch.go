package model

import "time"

// Verification batch lifecycle statuses.
const (
	BatchStatusQueued     = "queued"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// VerificationBatch represents one user submission of emails to verify. The
// ingestion API creates these rows; this service only moves their status
// forward. Stored per mode, so the struct carries no TableName and must be
// addressed through Mode.Tables().
type VerificationBatch struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:queued;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// VerificationBatchEmail links one email to one verification batch. UsedCache
// marks emails answered from cached results at submission time; DidComplete
// marks emails whose outcome has been ingested from a bouncer batch. A batch
// is finished when no link has both flags false.
type VerificationBatchEmail struct {
	ID          uint `json:"id" gorm:"primaryKey;autoIncrement"`
	BatchID     uint `json:"batch_id" gorm:"not null;index"`
	EmailID     uint `json:"email_id" gorm:"not null;index"`
	UsedCache   bool `json:"used_cache" gorm:"not null;default:false"`
	DidComplete bool `json:"did_complete" gorm:"not null;default:false"`
}
