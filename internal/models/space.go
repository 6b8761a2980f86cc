package models

import "time"

// Space is one physical room or zone in the floor plan. A space owns up to
// two render assets (camera slots A/B), up to two panorama assets, and at
// most one merged final360 asset.
type Space struct {
	ID                  string `gorm:"primaryKey;size:32"`
	PipelineID          string `gorm:"size:32;index;not null"`
	Name                string `gorm:"not null"`
	Kind                string `gorm:"size:32"`
	IsExcluded          bool   `gorm:"default:false"`
	IncludeInGeneration *bool
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Pipeline *Pipeline `gorm:"foreignKey:PipelineID"`
	Assets   []Asset   `gorm:"foreignKey:SpaceID"`
}

// Active reports whether the space counts toward stage totals. Exclusion
// flags remove a space from aggregates without deleting its history.
func (s *Space) Active() bool {
	if s.IsExcluded {
		return false
	}
	return s.IncludeInGeneration == nil || *s.IncludeInGeneration
}
