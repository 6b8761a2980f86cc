// Package status collapses the raw asset status vocabulary to a small closed
// enum at the boundary. Decision logic elsewhere works only on StageStatus;
// the richer raw strings stay in the database rows for audit.
package status

import "github.com/kvistad/renderloop/internal/models"

// StageStatus is the derived state of one asset or one stage slot pair.
type StageStatus string

const (
	Pending  StageStatus = "pending"
	Running  StageStatus = "running"
	Review   StageStatus = "review"
	Approved StageStatus = "approved"
	Failed   StageStatus = "failed"
)

// Raw status vocabulary written by the generation workers and automated QA.
const (
	RawPending          = "pending"
	RawPlanned          = "planned"
	RawQueued           = "queued"
	RawGenerating       = "generating"
	RawRunning          = "running"
	RawRetrying         = "retrying"
	RawProcessing       = "processing"
	RawEditing          = "editing"
	RawNeedsReview      = "needs_review"
	RawApproved         = "approved"
	RawRejected         = "rejected"
	RawFailed           = "failed"
	RawQAFailed         = "qa_failed"
	RawBlockedForHuman  = "blocked_for_human"
	RawBlockedForManual = "blocked_for_manual_approval"
)

// Stage names processed pipeline-wide.
const (
	StageRenders   = "renders"
	StagePanoramas = "panoramas"
	StageFinal360  = "final360"
)

// Stages lists the pipeline stages in processing order.
var Stages = []string{StageRenders, StagePanoramas, StageFinal360}

// SlotsPerSpace returns how many asset slots a stage has per space: two
// camera slots for renders and panoramas, one merged output for final360.
func SlotsPerSpace(stage string) int {
	if stage == StageFinal360 {
		return 1
	}
	return 2
}

// Derive maps a raw asset record to its stage status. A human lock is
// authoritative over everything else. Unknown raw statuses derive to Pending
// so schema drift in the backend never blocks review.
func Derive(a *models.Asset) StageStatus {
	if a == nil {
		return Pending
	}
	if a.LockedApproved {
		return Approved
	}
	switch a.Status {
	case RawGenerating, RawRunning, RawRetrying, RawEditing:
		return Running
	case RawNeedsReview:
		return Review
	case RawApproved:
		return Approved
	case RawFailed, RawRejected, RawQAFailed, RawBlockedForHuman:
		return Failed
	default:
		return Pending
	}
}

// Combine merges two sibling slot statuses (camera A and B) into one stage
// status. Precedence, first match wins: failed, running, review, approved
// (both required), pending. Commutative by construction.
func Combine(a, b StageStatus) StageStatus {
	if a == Failed || b == Failed {
		return Failed
	}
	if a == Running || b == Running {
		return Running
	}
	if a == Review || b == Review {
		return Review
	}
	if a == Approved && b == Approved {
		return Approved
	}
	return Pending
}
