package models

import "time"

// Attempt is one generation attempt for an asset, written by the job
// orchestrator. Index is 1-based. The normalized attempts table supersedes
// the legacy AttemptsJSON blob on StepRetryState when rows are present.
type Attempt struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	AssetID        string `gorm:"size:32;index;not null"`
	Index          int    `gorm:"column:attempt_index;not null"`
	Status         string `gorm:"size:32;default:pending"`
	QAResult       string `gorm:"type:json"`
	OutputUploadID string `gorm:"size:64"`
	LockedApproved bool   `gorm:"default:false"`
	CreatedAt      time.Time

	Asset *Asset `gorm:"foreignKey:AssetID"`
}
