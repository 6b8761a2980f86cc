// Package approval tallies per-stage asset approval and decides whether a
// pipeline stage gate opens.
package approval

import (
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/status"
)

// Status is the review-oriented bucket for one asset slot. It is distinct
// from status.StageStatus: the stage status drives display of a slot pair,
// this drives the approval tally.
type Status string

const (
	ApprovedHuman Status = "approved_human"
	ApprovedAI    Status = "approved_ai"
	Blocked       Status = "blocked_for_manual_approval"
	Running       Status = "running"
	Rejected      Status = "rejected"
	PendingReview Status = "pending_review"
)

// Options parametrizes the tally. ManualQARequired comes from the pipeline's
// manual-QA toggle: when set, AI approval alone does not count toward the
// approved tally, a human lock is required.
type Options struct {
	ManualQARequired bool
}

// Summary is the per-stage approval tally.
type Summary struct {
	Stage      string `json:"stage"`
	Total      int    `json:"total"`
	Approved   int    `json:"approved"`
	Pending    int    `json:"pending"`
	Rejected   int    `json:"rejected"`
	Blocked    int    `json:"blocked"`
	Running    int    `json:"running"`
	IsComplete bool   `json:"is_complete"`
}

// Bucket classifies one asset slot. Evaluated in order, first match wins;
// a missing slot row is pending review.
func Bucket(a *models.Asset) Status {
	if a == nil {
		return PendingReview
	}
	if a.LockedApproved {
		return ApprovedHuman
	}
	switch a.Status {
	case status.RawBlockedForHuman, status.RawBlockedForManual:
		return Blocked
	case status.RawGenerating, status.RawRunning, status.RawRetrying, status.RawProcessing:
		return Running
	case status.RawRejected, status.RawQAFailed, status.RawFailed:
		return Rejected
	}
	switch a.QAStatus {
	case "passed", "approved":
		return ApprovedAI
	}
	switch a.Status {
	case status.RawApproved, status.RawNeedsReview:
		return ApprovedAI
	}
	return PendingReview
}

// Summarize walks the active spaces and tallies every asset slot of the
// stage. Totals count slot positions, not asset rows: a space missing its
// "b" render still contributes a pending slot.
func Summarize(stage string, spaces []models.Space, opts Options) Summary {
	s := Summary{Stage: stage}
	slots := status.SlotsPerSpace(stage)

	for i := range spaces {
		sp := &spaces[i]
		if !sp.Active() {
			continue
		}
		s.Total += slots
		for _, slot := range slotNames(slots) {
			bucket := Bucket(SlotAsset(sp, stage, slot))
			switch bucket {
			case ApprovedHuman:
				s.Approved++
			case ApprovedAI:
				if opts.ManualQARequired {
					s.Pending++
				} else {
					s.Approved++
				}
			case Blocked:
				s.Blocked++
			case Running:
				s.Running++
			case Rejected:
				s.Rejected++
			default:
				s.Pending++
			}
		}
	}

	s.IsComplete = s.Total > 0 && s.Approved == s.Total
	return s
}

// CanContinue is the stage gate predicate: the stage tally must be complete
// and the surrounding workflow must not have disabled the gate or have a
// mutation in flight.
func CanContinue(s Summary, disabled, pending bool) bool {
	return s.IsComplete && !disabled && !pending
}

// SlotAsset finds the asset row for one slot of a space, or nil.
func SlotAsset(sp *models.Space, stage, slot string) *models.Asset {
	for i := range sp.Assets {
		a := &sp.Assets[i]
		if a.Stage == stage && a.Slot == slot {
			return a
		}
	}
	return nil
}

// slotNames returns the slot identifiers for a stage: "a"/"b" for paired
// stages, a single empty slot for merged outputs.
func slotNames(slots int) []string {
	if slots == 1 {
		return []string{""}
	}
	return []string{"a", "b"}
}
