package model

import "time"

// DeliverabilityResult represents the latest deliverability verdict for an
// email. One row per email; re-verification overwrites the row in place.
type DeliverabilityResult struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	EmailID    uint      `json:"email_id" gorm:"not null;uniqueIndex"`
	Status     string    `json:"status" gorm:"type:varchar(32);not null"`
	Reason     string    `json:"reason" gorm:"type:varchar(255)"`
	IsCatchall bool      `json:"is_catchall"`
	Score      int       `json:"score"`
	Provider   string    `json:"provider" gorm:"type:varchar(128)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for DeliverabilityResult
func (DeliverabilityResult) TableName() string {
	return "deliverability_results"
}

// ToxicityResult represents the latest toxicity verdict for an email on a
// catch-all domain.
type ToxicityResult struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	EmailID   uint      `json:"email_id" gorm:"not null;uniqueIndex"`
	Toxicity  int       `json:"toxicity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ToxicityResult
func (ToxicityResult) TableName() string {
	return "toxicity_results"
}
