package models

import "time"

// ReviewFeedback stores a human reviewer's structured QA verdict. It is a
// write-only sink for the review API; the approval state machine never reads
// it back.
type ReviewFeedback struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AssetID   string `gorm:"size:32;index;not null"`
	Reviewer  string `gorm:"size:64"`
	Decision  string `gorm:"size:16;not null"`
	Category  string `gorm:"size:48"`
	Score     int    `gorm:"default:0"`
	Reason    string `gorm:"size:200"`
	Disagree  bool   `gorm:"default:false"`
	CreatedAt time.Time
}
