// Package step tracks automated retry progress for pipeline steps and
// exposes the human actions available once retries are exhausted.
package step

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kvistad/renderloop/internal/asset"
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/pipeline"
	"github.com/kvistad/renderloop/internal/qa"
	"github.com/kvistad/renderloop/internal/status"
	"gorm.io/gorm"
)

// Step retry state statuses.
const (
	StatusPending         = "pending"
	StatusRunning         = "running"
	StatusQAPass          = "qa_pass"
	StatusQAFail          = "qa_fail"
	StatusBlockedForHuman = "blocked_for_human"
)

// ErrNotExhausted marks a block request for a step that still has attempts
// left. Matched with errors.Is by callers translating errors into HTTP
// statuses.
var ErrNotExhausted = errors.New("not exhausted")

// Classification is the human-facing view of a step's retry state.
type Classification struct {
	Category     qa.ReasonCode `json:"category"`
	Label        string        `json:"label"`
	Confidence   qa.Confidence `json:"confidence"`
	Reason       string        `json:"reason"`
	AttemptCount int           `json:"attempt_count"`
	MaxAttempts  int           `json:"max_attempts"`
	IsRetrying   bool          `json:"is_retrying"`
	IsBlocked    bool          `json:"is_blocked"`
	IsExhausted  bool          `json:"is_exhausted"`
	AutoRetry    bool          `json:"auto_retry_enabled"`
}

// legacyAttempt is one entry of the embedded AttemptsJSON history, kept for
// rows written before the attempts table existed.
type legacyAttempt struct {
	Index          int    `json:"index"`
	Status         string `json:"status"`
	LockedApproved bool   `json:"locked_approved"`
}

// Classify builds the display classification for a step. attempts is the
// normalized history; when empty, the legacy embedded history is consulted
// for the locked-attempt check.
func Classify(st *models.StepRetryState, attempts []models.Attempt) Classification {
	res := qa.Normalize(st.LastQAResult)

	c := Classification{
		Category:     qa.ExtractCategory(res),
		Confidence:   qa.ExtractConfidence(res),
		Reason:       qa.BuildRejectionReason(res),
		AttemptCount: st.AttemptCount,
		MaxAttempts:  st.MaxAttempts,
		AutoRetry:    st.AutoRetryEnabled,
	}
	c.Label = qa.DisplayLabel(c.Category)

	c.IsExhausted = st.AttemptCount >= st.MaxAttempts && !anyLocked(st, attempts)
	c.IsBlocked = st.Status == StatusBlockedForHuman || c.IsExhausted
	c.IsRetrying = !c.IsBlocked && st.AutoRetryEnabled &&
		(st.Status == StatusRunning || st.Status == StatusQAFail)

	return c
}

// anyLocked reports whether any attempt of the step was human-approved.
func anyLocked(st *models.StepRetryState, attempts []models.Attempt) bool {
	for _, a := range attempts {
		if a.LockedApproved {
			return true
		}
	}
	if len(attempts) == 0 && st.AttemptsJSON != "" {
		var legacy []legacyAttempt
		if err := json.Unmarshal([]byte(st.AttemptsJSON), &legacy); err == nil {
			for _, a := range legacy {
				if a.LockedApproved {
					return true
				}
			}
		}
	}
	return false
}

// GetOrCreate finds the retry state row for a step, creating it on first use.
func GetOrCreate(db *gorm.DB, pipelineID, spaceID, stage, slot, assetID string, maxAttempts int) (*models.StepRetryState, error) {
	var st models.StepRetryState
	err := db.Where("space_id = ? AND stage = ? AND slot = ?", spaceID, stage, slot).First(&st).Error
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("step: get state for %s/%s/%q: %w", spaceID, stage, slot, err)
	}

	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	st = models.StepRetryState{
		PipelineID:       pipelineID,
		SpaceID:          spaceID,
		Stage:            stage,
		Slot:             slot,
		AssetID:          assetID,
		MaxAttempts:      maxAttempts,
		AutoRetryEnabled: true,
		Status:           StatusPending,
	}
	if err := db.Create(&st).Error; err != nil {
		return nil, fmt.Errorf("step: create state for %s/%s/%q: %w", spaceID, stage, slot, err)
	}
	return &st, nil
}

// Get retrieves a retry state row by ID.
func Get(db *gorm.DB, id uint) (*models.StepRetryState, error) {
	var st models.StepRetryState
	if err := db.Where("id = ?", id).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("step: %w: %d", gorm.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("step: get %d: %w", id, err)
	}
	return &st, nil
}

// Attempts loads the normalized attempt history for a step's asset.
func Attempts(db *gorm.DB, st *models.StepRetryState) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if st.AssetID == "" {
		return nil, nil
	}
	if err := db.Where("asset_id = ?", st.AssetID).Order("attempt_index ASC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("step: load attempts for %s: %w", st.AssetID, err)
	}
	return attempts, nil
}

// RecordResult stores one automated QA verdict: bumps the attempt counter,
// updates the step status and keeps the raw QA payload for classification.
func RecordResult(db *gorm.DB, id uint, passed bool, qaResult string) error {
	st, err := Get(db, id)
	if err != nil {
		return err
	}

	newStatus := StatusQAPass
	if !passed {
		newStatus = StatusQAFail
	}
	updates := map[string]interface{}{
		"attempt_count":  st.AttemptCount + 1,
		"status":         newStatus,
		"last_qa_result": qaResult,
	}
	if err := db.Model(&models.StepRetryState{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("step: record result for %d: %w", id, err)
	}
	return nil
}

// MarkBlocked flips an exhausted step to blocked_for_human along with its
// asset. Refuses when the step still has attempts left: the attempt counter
// must have reached the cap first.
func MarkBlocked(db *gorm.DB, id uint) error {
	st, err := Get(db, id)
	if err != nil {
		return err
	}
	attempts, err := Attempts(db, st)
	if err != nil {
		return err
	}
	c := Classify(st, attempts)
	if !c.IsExhausted {
		return fmt.Errorf("step: %d has %d/%d attempts, %w", id, st.AttemptCount, st.MaxAttempts, ErrNotExhausted)
	}
	if st.Status == StatusBlockedForHuman {
		return nil
	}

	now := time.Now()
	if err := db.Model(&models.StepRetryState{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     StatusBlockedForHuman,
		"blocked_at": now,
	}).Error; err != nil {
		return fmt.Errorf("step: block %d: %w", id, err)
	}

	if st.AssetID != "" {
		if err := asset.Update(db, st.AssetID, map[string]interface{}{
			"status": status.RawBlockedForHuman,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ApproveAttempt locks one attempt of a blocked step as human-approved and
// locks the step's asset on that attempt's output. Any attempt may be
// chosen, not only the latest.
func ApproveAttempt(db *gorm.DB, id uint, attemptIndex int, reviewer string) error {
	st, err := Get(db, id)
	if err != nil {
		return err
	}
	if st.AssetID == "" {
		return fmt.Errorf("step: %d has no asset", id)
	}

	var att models.Attempt
	if err := db.Where("asset_id = ? AND attempt_index = ?", st.AssetID, attemptIndex).First(&att).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("step: attempt %d for asset %s: %w", attemptIndex, st.AssetID, gorm.ErrRecordNotFound)
		}
		return fmt.Errorf("step: get attempt %d: %w", attemptIndex, err)
	}

	if err := db.Model(&models.Attempt{}).Where("id = ?", att.ID).
		Update("locked_approved", true).Error; err != nil {
		return fmt.Errorf("step: lock attempt %d: %w", attemptIndex, err)
	}

	// Point the asset at the chosen attempt's output before locking.
	if att.OutputUploadID != "" {
		if err := db.Model(&models.Asset{}).Where("id = ?", st.AssetID).
			Update("output_upload_id", att.OutputUploadID).Error; err != nil {
			return fmt.Errorf("step: set output for %s: %w", st.AssetID, err)
		}
	}
	if err := asset.Approve(db, st.AssetID, reviewer); err != nil {
		return err
	}

	if err := db.Model(&models.StepRetryState{}).Where("id = ?", id).
		Update("status", StatusQAPass).Error; err != nil {
		return fmt.Errorf("step: mark %d passed: %w", id, err)
	}
	return nil
}

// Restart clears the step's attempt history and returns it to initial
// generation state.
func Restart(db *gorm.DB, id uint) error {
	st, err := Get(db, id)
	if err != nil {
		return err
	}

	if st.AssetID != "" {
		if err := db.Where("asset_id = ?", st.AssetID).Delete(&models.Attempt{}).Error; err != nil {
			return fmt.Errorf("step: clear attempts for %s: %w", st.AssetID, err)
		}
		if err := asset.Update(db, st.AssetID, map[string]interface{}{
			"status":        status.RawQueued,
			"qa_status":     "",
			"attempt_count": 0,
		}); err != nil {
			return err
		}
	}

	if err := db.Model(&models.StepRetryState{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempt_count":      0,
		"status":             StatusPending,
		"auto_retry_enabled": true,
		"last_qa_result":     "",
		"blocked_at":         nil,
	}).Error; err != nil {
		return fmt.Errorf("step: restart %d: %w", id, err)
	}
	return nil
}

// RejectAllStop rejects the step's asset and halts the whole pipeline.
// Terminal failure: downstream stages never run.
func RejectAllStop(db *gorm.DB, id uint, reviewer, notes string) error {
	st, err := Get(db, id)
	if err != nil {
		return err
	}

	if st.AssetID != "" {
		if err := asset.Reject(db, st.AssetID, reviewer, notes); err != nil {
			return err
		}
	}
	if err := db.Model(&models.StepRetryState{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":             StatusQAFail,
		"auto_retry_enabled": false,
	}).Error; err != nil {
		return fmt.Errorf("step: mark %d failed: %w", id, err)
	}

	return pipeline.Halt(db, st.PipelineID)
}

// StopAutoRetry freezes automatic retries without touching the attempt
// counter. The step keeps whatever status it had.
func StopAutoRetry(db *gorm.DB, id uint) error {
	result := db.Model(&models.StepRetryState{}).Where("id = ?", id).
		Update("auto_retry_enabled", false)
	if result.Error != nil {
		return fmt.Errorf("step: stop auto-retry on %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("step: %w: %d", gorm.ErrRecordNotFound, id)
	}
	return nil
}
