package model

import "time"

// Email represents a globally deduplicated email address. Rows are shared by
// every submission that mentions the address; Stripped holds the canonical
// form used for dedup and for matching provider results back to identities.
type Email struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Address   string    `json:"address" gorm:"type:varchar(320);not null"`
	Stripped  string    `json:"stripped" gorm:"type:varchar(320);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Email
func (Email) TableName() string {
	return "emails"
}
