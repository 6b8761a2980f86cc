// Package asset provides asset lifecycle operations.
package asset

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/status"
	"gorm.io/gorm"
)

// Sentinel errors for reviewer-caused refusals. Callers that translate
// errors into HTTP statuses match these with errors.Is; lookups that miss
// wrap gorm.ErrRecordNotFound instead.
var (
	ErrLocked            = errors.New("locked approved")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CreateOpts holds parameters for creating a new asset.
type CreateOpts struct {
	PipelineID string
	SpaceID    string
	Stage      string // renders, panoramas, final360
	Slot       string // "a"/"b" for paired stages, empty for final360
}

// ListFilters holds optional filters for listing assets.
type ListFilters struct {
	PipelineID string
	SpaceID    string
	Stage      string
	Status     string
}

// ValidTransitions maps each raw status to its valid next statuses.
// The special cases "any → blocked_for_human" (sweeper) and "locked assets
// never move" are handled in isValidTransition.
var ValidTransitions = map[string][]string{
	status.RawPending:          {status.RawPlanned, status.RawQueued, status.RawGenerating},
	status.RawPlanned:          {status.RawQueued, status.RawGenerating},
	status.RawQueued:           {status.RawGenerating},
	status.RawGenerating:       {status.RawNeedsReview, status.RawQAFailed, status.RawFailed, status.RawEditing},
	status.RawEditing:          {status.RawNeedsReview, status.RawFailed},
	status.RawNeedsReview:      {status.RawApproved, status.RawRejected, status.RawRetrying},
	status.RawQAFailed:         {status.RawRetrying, status.RawRejected},
	status.RawFailed:           {status.RawRetrying, status.RawRejected},
	status.RawRetrying:         {status.RawQueued, status.RawGenerating},
	status.RawBlockedForHuman:  {status.RawApproved, status.RawRejected, status.RawQueued},
	status.RawBlockedForManual: {status.RawApproved, status.RawRejected, status.RawQueued},
	status.RawApproved:         {},
	status.RawRejected:         {status.RawQueued},
}

// GenerateID creates a unique asset ID in as-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("asset: generate ID: %w", err)
	}
	return "as-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a new asset row in pending state with an auto-generated ID.
func Create(db *gorm.DB, opts CreateOpts) (*models.Asset, error) {
	if opts.PipelineID == "" {
		return nil, fmt.Errorf("asset: pipeline ID is required")
	}
	if opts.SpaceID == "" {
		return nil, fmt.Errorf("asset: space ID is required")
	}
	switch opts.Stage {
	case status.StageRenders, status.StagePanoramas:
		if opts.Slot != "a" && opts.Slot != "b" {
			return nil, fmt.Errorf("asset: stage %s requires slot a or b, got %q", opts.Stage, opts.Slot)
		}
	case status.StageFinal360:
		if opts.Slot != "" {
			return nil, fmt.Errorf("asset: final360 assets have no slot, got %q", opts.Slot)
		}
	default:
		return nil, fmt.Errorf("asset: unknown stage %q", opts.Stage)
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	a := models.Asset{
		ID:         id,
		PipelineID: opts.PipelineID,
		SpaceID:    opts.SpaceID,
		Stage:      opts.Stage,
		Slot:       opts.Slot,
		Status:     status.RawPending,
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, fmt.Errorf("asset: create: %w", err)
	}
	return &a, nil
}

// Get retrieves an asset by ID, preloading its attempts.
func Get(db *gorm.DB, id string) (*models.Asset, error) {
	var a models.Asset
	if err := db.Preload("Attempts").Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("asset: get %s: %w", id, err)
	}
	return &a, nil
}

// List returns assets matching the given filters, ordered by space then slot.
func List(db *gorm.DB, filters ListFilters) ([]models.Asset, error) {
	q := db.Model(&models.Asset{})

	if filters.PipelineID != "" {
		q = q.Where("pipeline_id = ?", filters.PipelineID)
	}
	if filters.SpaceID != "" {
		q = q.Where("space_id = ?", filters.SpaceID)
	}
	if filters.Stage != "" {
		q = q.Where("stage = ?", filters.Stage)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}

	var assets []models.Asset
	if err := q.Order("space_id ASC, stage ASC, slot ASC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("asset: list: %w", err)
	}
	return assets, nil
}

// Update modifies asset fields. Status transitions are validated against
// ValidTransitions, and locked assets accept no status mutation at all.
func Update(db *gorm.DB, id string, updates map[string]interface{}) error {
	var a models.Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return fmt.Errorf("asset: get %s for update: %w", id, err)
	}

	if newStatus, ok := updates["status"].(string); ok {
		if a.LockedApproved {
			return fmt.Errorf("asset: %s is %w, status is immutable", id, ErrLocked)
		}
		if !isValidTransition(a.Status, newStatus) {
			valid := ValidTransitions[a.Status]
			return fmt.Errorf("asset: %w from %q to %q; valid transitions: %v", ErrInvalidTransition, a.Status, newStatus, valid)
		}
	}

	if err := db.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("asset: update %s: %w", id, err)
	}
	return nil
}

// Approve locks an asset as human-approved. The lock is monotonic: approving
// an already-locked asset is a no-op, and no later write un-sets it.
func Approve(db *gorm.DB, id, reviewer string) error {
	var a models.Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return fmt.Errorf("asset: get %s for approve: %w", id, err)
	}
	if a.LockedApproved {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"locked_approved": true,
		"status":          status.RawApproved,
		"approved_by":     reviewer,
		"approved_at":     now,
	}
	if err := db.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("asset: approve %s: %w", id, err)
	}
	return nil
}

// Reject marks an asset rejected with reviewer notes. Locked assets cannot
// be rejected; the lock is the single source of truth once set.
func Reject(db *gorm.DB, id, reviewer, notes string) error {
	var a models.Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return fmt.Errorf("asset: get %s for reject: %w", id, err)
	}
	if a.LockedApproved {
		return fmt.Errorf("asset: %s is %w and cannot be rejected", id, ErrLocked)
	}

	updates := map[string]interface{}{
		"status":       status.RawRejected,
		"review_notes": notes,
		"approved_by":  reviewer,
	}
	if err := db.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("asset: reject %s: %w", id, err)
	}
	return nil
}

// Retry requeues an asset for another generation attempt and bumps its
// attempt counter.
func Retry(db *gorm.DB, id string) error {
	var a models.Asset
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, id)
		}
		return fmt.Errorf("asset: get %s for retry: %w", id, err)
	}
	if a.LockedApproved {
		return fmt.Errorf("asset: %s is %w and cannot be retried", id, ErrLocked)
	}
	if !isValidTransition(a.Status, status.RawQueued) {
		return fmt.Errorf("asset: cannot retry from status %q: %w", a.Status, ErrInvalidTransition)
	}

	updates := map[string]interface{}{
		"status":        status.RawQueued,
		"qa_status":     "",
		"attempt_count": a.AttemptCount + 1,
	}
	if err := db.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("asset: retry %s: %w", id, err)
	}
	return nil
}

// RecordAttempt appends a generation attempt row for an asset and syncs the
// asset's attempt counter. Called by the job orchestrator boundary.
func RecordAttempt(db *gorm.DB, assetID string, attemptStatus, qaResult, uploadID string) (*models.Attempt, error) {
	var a models.Asset
	if err := db.Where("id = ?", assetID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset: %w: %s", gorm.ErrRecordNotFound, assetID)
		}
		return nil, fmt.Errorf("asset: get %s for attempt: %w", assetID, err)
	}

	var maxIndex int
	db.Model(&models.Attempt{}).Where("asset_id = ?", assetID).
		Select("COALESCE(MAX(attempt_index), 0)").Scan(&maxIndex)

	att := models.Attempt{
		AssetID:        assetID,
		Index:          maxIndex + 1,
		Status:         attemptStatus,
		QAResult:       qaResult,
		OutputUploadID: uploadID,
		CreatedAt:      time.Now(),
	}
	if err := db.Create(&att).Error; err != nil {
		return nil, fmt.Errorf("asset: record attempt for %s: %w", assetID, err)
	}

	if err := db.Model(&models.Asset{}).Where("id = ?", assetID).
		Update("attempt_count", att.Index).Error; err != nil {
		return nil, fmt.Errorf("asset: sync attempt count for %s: %w", assetID, err)
	}
	att.Asset = nil
	return &att, nil
}

// FeedbackOpts holds a structured reviewer verdict.
type FeedbackOpts struct {
	AssetID  string
	Reviewer string
	Decision string // approve / reject
	Category string
	Score    int // 0-100
	Reason   string
	Disagree bool
}

// RecordFeedback appends a reviewer verdict for an asset. The record is a
// write-only sink: it never feeds back into approval decisions.
func RecordFeedback(db *gorm.DB, opts FeedbackOpts) (*models.ReviewFeedback, error) {
	if opts.Decision == "" {
		return nil, fmt.Errorf("asset: feedback decision is required")
	}
	if opts.Score < 0 || opts.Score > 100 {
		return nil, fmt.Errorf("asset: feedback score %d out of range 0-100", opts.Score)
	}
	if _, err := Get(db, opts.AssetID); err != nil {
		return nil, err
	}

	reason := opts.Reason
	if len(reason) > 200 {
		reason = reason[:200]
	}
	fb := models.ReviewFeedback{
		AssetID:  opts.AssetID,
		Reviewer: opts.Reviewer,
		Decision: opts.Decision,
		Category: opts.Category,
		Score:    opts.Score,
		Reason:   reason,
		Disagree: opts.Disagree,
	}
	if err := db.Create(&fb).Error; err != nil {
		return nil, fmt.Errorf("asset: record feedback for %s: %w", opts.AssetID, err)
	}
	return &fb, nil
}

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to string) bool {
	if to == status.RawBlockedForHuman {
		return true
	}
	valid, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == to {
			return true
		}
	}
	return false
}

// generateUniqueID generates an ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Asset{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("asset: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("asset: failed to generate unique ID after retries")
}
