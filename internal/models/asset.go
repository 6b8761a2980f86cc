package models

import "time"

// Asset is one generated image artifact: a render or panorama for one camera
// slot ("a"/"b"), or a merged final360 for the whole space.
//
// Status carries the raw vocabulary written by the generation workers and the
// automated QA collaborator. Decision logic never switches on it directly;
// it goes through the status and approval packages, which collapse it to a
// small closed enum at the boundary.
type Asset struct {
	ID             string `gorm:"primaryKey;size:32"`
	PipelineID     string `gorm:"size:32;index;not null"`
	SpaceID        string `gorm:"size:32;index;not null"`
	Stage          string `gorm:"size:16;index;not null"`
	Slot           string `gorm:"size:4"`
	Status         string `gorm:"size:32;default:pending;index"`
	LockedApproved bool   `gorm:"default:false"`
	QAStatus       string `gorm:"size:16"`
	QAReport       string `gorm:"type:json"`
	OutputUploadID string `gorm:"size:64"`
	AttemptCount   int    `gorm:"default:0"`
	ReviewNotes    string `gorm:"type:text"`
	ApprovedBy     string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ApprovedAt     *time.Time

	Space    *Space    `gorm:"foreignKey:SpaceID"`
	Attempts []Attempt `gorm:"foreignKey:AssetID"`
}
