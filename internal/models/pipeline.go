package models

import "time"

// Pipeline is one whole-apartment generation run.
type Pipeline struct {
	ID           string `gorm:"primaryKey;size:32"`
	Name         string `gorm:"not null"`
	Status       string `gorm:"size:16;default:draft;index"`
	CurrentStage string `gorm:"size:16;default:renders"`
	ManualQA     bool   `gorm:"default:false"`
	FloorPlanID  string `gorm:"size:64"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	HaltedAt     *time.Time
	CompletedAt  *time.Time

	Spaces []Space `gorm:"foreignKey:PipelineID"`
}
