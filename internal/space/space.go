// Package space provides space (room/zone) operations.
package space

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kvistad/renderloop/internal/asset"
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/status"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a new space.
type CreateOpts struct {
	PipelineID string
	Name       string
	Kind       string // bedroom, kitchen, hallway, ...
}

// GenerateID creates a unique space ID in sp-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("space: generate ID: %w", err)
	}
	return "sp-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a new space.
func Create(db *gorm.DB, opts CreateOpts) (*models.Space, error) {
	if opts.PipelineID == "" {
		return nil, fmt.Errorf("space: pipeline ID is required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("space: name is required")
	}

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	s := models.Space{
		ID:         id,
		PipelineID: opts.PipelineID,
		Name:       opts.Name,
		Kind:       opts.Kind,
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("space: create: %w", err)
	}
	return &s, nil
}

// Get retrieves a space by ID, preloading its assets.
func Get(db *gorm.DB, id string) (*models.Space, error) {
	var s models.Space
	if err := db.Preload("Assets").Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("space: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("space: get %s: %w", id, err)
	}
	return &s, nil
}

// ListForPipeline returns all spaces of a pipeline with assets preloaded,
// ordered by creation time. Excluded spaces are included; aggregation
// filters them itself so exclusion never deletes history.
func ListForPipeline(db *gorm.DB, pipelineID string) ([]models.Space, error) {
	var spaces []models.Space
	if err := db.Preload("Assets").Where("pipeline_id = ?", pipelineID).
		Order("created_at ASC, id ASC").Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("space: list for pipeline %s: %w", pipelineID, err)
	}
	return spaces, nil
}

// SetExcluded flips the exclusion flag. Excluding removes the space from
// stage totals without touching its assets.
func SetExcluded(db *gorm.DB, id string, excluded bool) error {
	result := db.Model(&models.Space{}).Where("id = ?", id).Update("is_excluded", excluded)
	if result.Error != nil {
		return fmt.Errorf("space: set excluded on %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("space: %w: %s", gorm.ErrRecordNotFound, id)
	}
	return nil
}

// EnsureSlots creates any missing asset rows for a stage of a space, so each
// slot position has a pending row before generation begins. Returns the
// number of rows created.
func EnsureSlots(db *gorm.DB, sp *models.Space, stage string) (int, error) {
	if sp == nil {
		return 0, fmt.Errorf("space: space is required")
	}

	slots := []string{"a", "b"}
	if status.SlotsPerSpace(stage) == 1 {
		slots = []string{""}
	}

	created := 0
	for _, slot := range slots {
		var count int64
		if err := db.Model(&models.Asset{}).
			Where("space_id = ? AND stage = ? AND slot = ?", sp.ID, stage, slot).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("space: check slot %s/%s/%q: %w", sp.ID, stage, slot, err)
		}
		if count > 0 {
			continue
		}
		if _, err := asset.Create(db, asset.CreateOpts{
			PipelineID: sp.PipelineID,
			SpaceID:    sp.ID,
			Stage:      stage,
			Slot:       slot,
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
