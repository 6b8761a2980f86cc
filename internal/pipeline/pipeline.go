// Package pipeline provides whole-apartment pipeline operations: creation,
// stage summaries, and the stage-gate advance.
package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kvistad/renderloop/internal/approval"
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/space"
	"github.com/kvistad/renderloop/internal/status"
	"gorm.io/gorm"
)

// Sentinel errors for reviewer-caused refusals, matched with errors.Is.
// ErrGateClosed is an advance refused by an incomplete stage tally;
// ErrWrongState is a lifecycle operation on a pipeline in the wrong status.
var (
	ErrGateClosed = errors.New("gate closed")
	ErrWrongState = errors.New("wrong state")
)

// CreateOpts holds parameters for creating a pipeline.
type CreateOpts struct {
	Name        string
	FloorPlanID string
	ManualQA    bool
}

// GenerateID creates a unique pipeline ID in pl-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pipeline: generate ID: %w", err)
	}
	return "pl-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a new pipeline in draft state.
func Create(db *gorm.DB, opts CreateOpts) (*models.Pipeline, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("pipeline: name is required")
	}

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	p := models.Pipeline{
		ID:          id,
		Name:        opts.Name,
		FloorPlanID: opts.FloorPlanID,
		ManualQA:    opts.ManualQA,
		Status:      "draft",
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("pipeline: create: %w", err)
	}
	return &p, nil
}

// Get retrieves a pipeline by ID.
func Get(db *gorm.DB, id string) (*models.Pipeline, error) {
	var p models.Pipeline
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("pipeline: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("pipeline: get %s: %w", id, err)
	}
	return &p, nil
}

// List returns all pipelines, newest first.
func List(db *gorm.DB) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	if err := db.Order("created_at DESC").Find(&pipelines).Error; err != nil {
		return nil, fmt.Errorf("pipeline: list: %w", err)
	}
	return pipelines, nil
}

// Activate moves a draft pipeline to active and seeds asset slots for the
// first stage on every space.
func Activate(db *gorm.DB, id string) error {
	p, err := Get(db, id)
	if err != nil {
		return err
	}
	if p.Status != "draft" {
		return fmt.Errorf("pipeline: %s is %s, only draft pipelines can be activated: %w", id, p.Status, ErrWrongState)
	}

	spaces, err := space.ListForPipeline(db, id)
	if err != nil {
		return err
	}
	if len(spaces) == 0 {
		return fmt.Errorf("pipeline: %s has no spaces", id)
	}
	for i := range spaces {
		if _, err := space.EnsureSlots(db, &spaces[i], status.StageRenders); err != nil {
			return err
		}
	}

	if err := db.Model(&models.Pipeline{}).Where("id = ?", id).
		Update("status", "active").Error; err != nil {
		return fmt.Errorf("pipeline: activate %s: %w", id, err)
	}
	return nil
}

// StageSummaries computes the approval tally for every stage of a pipeline.
// The pipeline's manual-QA toggle parametrizes the tally.
func StageSummaries(db *gorm.DB, id string) ([]approval.Summary, error) {
	p, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	spaces, err := space.ListForPipeline(db, id)
	if err != nil {
		return nil, err
	}

	opts := approval.Options{ManualQARequired: p.ManualQA}
	summaries := make([]approval.Summary, 0, len(status.Stages))
	for _, stage := range status.Stages {
		summaries = append(summaries, approval.Summarize(stage, spaces, opts))
	}
	return summaries, nil
}

// Advance moves the pipeline past its current stage. The gate refuses unless
// the current stage tally is complete and the pipeline is active. Advancing
// past the last stage completes the pipeline; otherwise the next stage's
// asset slots are seeded.
func Advance(db *gorm.DB, id string) error {
	p, err := Get(db, id)
	if err != nil {
		return err
	}
	if p.Status != "active" {
		return fmt.Errorf("pipeline: %s is %s, only active pipelines advance: %w", id, p.Status, ErrWrongState)
	}

	spaces, err := space.ListForPipeline(db, id)
	if err != nil {
		return err
	}
	summary := approval.Summarize(p.CurrentStage, spaces, approval.Options{ManualQARequired: p.ManualQA})
	if !approval.CanContinue(summary, false, false) {
		return fmt.Errorf("pipeline: stage %s %w: %d/%d approved, %d blocked",
			p.CurrentStage, ErrGateClosed, summary.Approved, summary.Total, summary.Blocked)
	}

	next := nextStage(p.CurrentStage)
	if next == "" {
		now := time.Now()
		if err := db.Model(&models.Pipeline{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":       "complete",
			"completed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("pipeline: complete %s: %w", id, err)
		}
		return nil
	}

	for i := range spaces {
		if !spaces[i].Active() {
			continue
		}
		if _, err := space.EnsureSlots(db, &spaces[i], next); err != nil {
			return err
		}
	}
	if err := db.Model(&models.Pipeline{}).Where("id = ?", id).
		Update("current_stage", next).Error; err != nil {
		return fmt.Errorf("pipeline: advance %s: %w", id, err)
	}
	return nil
}

// Halt stops a pipeline after a reject-all decision. Downstream stages never
// run; history is kept.
func Halt(db *gorm.DB, id string) error {
	now := time.Now()
	result := db.Model(&models.Pipeline{}).Where("id = ? AND status = ?", id, "active").
		Updates(map[string]interface{}{"status": "halted", "halted_at": now})
	if result.Error != nil {
		return fmt.Errorf("pipeline: halt %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("pipeline: %s is not active: %w", id, ErrWrongState)
	}
	return nil
}

// nextStage returns the stage after the given one, or "" past the last.
func nextStage(stage string) string {
	for i, s := range status.Stages {
		if s == stage && i+1 < len(status.Stages) {
			return status.Stages[i+1]
		}
	}
	return ""
}
