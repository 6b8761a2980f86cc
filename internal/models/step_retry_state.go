package models

import "time"

// StepRetryState tracks automated retry progress for one pipeline step
// (pipeline + space + stage + slot). The sweeper flips Status to
// blocked_for_human once AttemptCount reaches MaxAttempts with no locked
// attempt.
type StepRetryState struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	PipelineID       string `gorm:"size:32;index;not null"`
	SpaceID          string `gorm:"size:32;index:idx_step,unique;not null"`
	Stage            string `gorm:"size:16;index:idx_step,unique;not null"`
	Slot             string `gorm:"size:4;index:idx_step,unique"`
	AssetID          string `gorm:"size:32;index"`
	AttemptCount     int    `gorm:"default:0"`
	MaxAttempts      int    `gorm:"default:5"`
	AutoRetryEnabled bool   `gorm:"default:true"`
	Status           string `gorm:"size:32;default:pending;index"`
	LastQAResult     string `gorm:"type:json"`
	// AttemptsJSON is the legacy embedded history, kept for rows written
	// before the attempts table existed.
	AttemptsJSON string `gorm:"type:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	BlockedAt    *time.Time
}
