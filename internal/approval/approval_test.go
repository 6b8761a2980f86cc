package approval

import (
	"fmt"
	"testing"

	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/status"
)

func TestBucket_Order(t *testing.T) {
	tests := []struct {
		name  string
		asset *models.Asset
		want  Status
	}{
		{"nil slot", nil, PendingReview},
		{"locked wins over failed status", &models.Asset{LockedApproved: true, Status: "failed"}, ApprovedHuman},
		{"blocked for human", &models.Asset{Status: "blocked_for_human"}, Blocked},
		{"blocked for manual approval", &models.Asset{Status: "blocked_for_manual_approval"}, Blocked},
		{"generating", &models.Asset{Status: "generating"}, Running},
		{"processing", &models.Asset{Status: "processing"}, Running},
		{"retrying", &models.Asset{Status: "retrying"}, Running},
		{"rejected", &models.Asset{Status: "rejected"}, Rejected},
		{"qa failed", &models.Asset{Status: "qa_failed"}, Rejected},
		{"failed", &models.Asset{Status: "failed"}, Rejected},
		{"qa passed", &models.Asset{Status: "pending", QAStatus: "passed"}, ApprovedAI},
		{"qa approved", &models.Asset{Status: "pending", QAStatus: "approved"}, ApprovedAI},
		{"needs review no qa", &models.Asset{Status: "needs_review"}, ApprovedAI},
		{"approved status", &models.Asset{Status: "approved"}, ApprovedAI},
		{"pending", &models.Asset{Status: "pending"}, PendingReview},
		{"planned", &models.Asset{Status: "planned"}, PendingReview},
		{"unknown drift", &models.Asset{Status: "v2_whatever"}, PendingReview},
	}
	for _, tt := range tests {
		if got := Bucket(tt.asset); got != tt.want {
			t.Errorf("%s: Bucket() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBucket_AIThenHumanRoundTrip(t *testing.T) {
	a := &models.Asset{Status: "needs_review", QAStatus: "passed"}
	if got := Bucket(a); got != ApprovedAI {
		t.Fatalf("unlocked Bucket() = %q, want approved_ai", got)
	}
	a.LockedApproved = true
	if got := Bucket(a); got != ApprovedHuman {
		t.Fatalf("locked Bucket() = %q, want approved_human", got)
	}
}

// renderSpace builds a space with two render assets in the given raw states.
func renderSpace(id string, a, b models.Asset) models.Space {
	a.Stage, a.Slot = status.StageRenders, "a"
	b.Stage, b.Slot = status.StageRenders, "b"
	a.ID, b.ID = id+"-a", id+"-b"
	return models.Space{ID: id, Assets: []models.Asset{a, b}}
}

func lockedAsset() models.Asset {
	return models.Asset{Status: "approved", LockedApproved: true}
}

func TestSummarize_EmptyStageNeverComplete(t *testing.T) {
	s := Summarize(status.StageRenders, nil, Options{})
	if s.Total != 0 || s.Approved != 0 {
		t.Errorf("empty Summarize = %+v, want zero tally", s)
	}
	if s.IsComplete {
		t.Error("empty stage must not be complete")
	}
}

func TestSummarize_ExcludedSpacesDoNotCount(t *testing.T) {
	f := false
	spaces := []models.Space{
		renderSpace("sp-1", lockedAsset(), lockedAsset()),
		{ID: "sp-2", IsExcluded: true, Assets: nil},
		{ID: "sp-3", IncludeInGeneration: &f},
	}
	s := Summarize(status.StageRenders, spaces, Options{})
	if s.Total != 2 {
		t.Errorf("Total = %d, want 2 (one active space, two slots)", s.Total)
	}
	if !s.IsComplete {
		t.Errorf("IsComplete = false, want true: %+v", s)
	}
}

func TestSummarize_AllLockedComplete(t *testing.T) {
	var spaces []models.Space
	for i := 0; i < 3; i++ {
		spaces = append(spaces, renderSpace(fmt.Sprintf("sp-%d", i), lockedAsset(), lockedAsset()))
	}
	s := Summarize(status.StageRenders, spaces, Options{})
	if s.Total != 6 || s.Approved != 6 {
		t.Errorf("tally = %+v, want 6/6 approved", s)
	}
	if !s.IsComplete {
		t.Error("IsComplete = false, want true")
	}
	if !CanContinue(s, false, false) {
		t.Error("CanContinue = false, want true")
	}
}

func TestSummarize_OneBlockedSlot(t *testing.T) {
	spaces := []models.Space{
		renderSpace("sp-0", lockedAsset(), lockedAsset()),
		renderSpace("sp-1", lockedAsset(), lockedAsset()),
		renderSpace("sp-2", lockedAsset(), models.Asset{Status: "blocked_for_human"}),
	}
	s := Summarize(status.StageRenders, spaces, Options{})
	if s.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", s.Blocked)
	}
	if s.IsComplete {
		t.Error("IsComplete = true with a blocked slot")
	}
	if CanContinue(s, false, false) {
		t.Error("gate must refuse continue with a blocked slot")
	}
}

func TestSummarize_MissingSlotIsPending(t *testing.T) {
	a := lockedAsset()
	a.Stage, a.Slot, a.ID = status.StageRenders, "a", "as-1"
	spaces := []models.Space{{ID: "sp-1", Assets: []models.Asset{a}}}
	s := Summarize(status.StageRenders, spaces, Options{})
	if s.Total != 2 || s.Approved != 1 || s.Pending != 1 {
		t.Errorf("tally = %+v, want total 2, approved 1, pending 1", s)
	}
}

func TestSummarize_Final360SingleSlot(t *testing.T) {
	merged := models.Asset{ID: "as-f", Stage: status.StageFinal360, Status: "needs_review", QAStatus: "passed"}
	spaces := []models.Space{{ID: "sp-1", Assets: []models.Asset{merged}}}
	s := Summarize(status.StageFinal360, spaces, Options{})
	if s.Total != 1 || s.Approved != 1 {
		t.Errorf("tally = %+v, want 1/1 via AI approval", s)
	}
}

func TestSummarize_ManualQARequired(t *testing.T) {
	aiApproved := models.Asset{Status: "needs_review", QAStatus: "passed"}
	spaces := []models.Space{renderSpace("sp-1", aiApproved, lockedAsset())}

	lenient := Summarize(status.StageRenders, spaces, Options{})
	if lenient.Approved != 2 || !lenient.IsComplete {
		t.Errorf("lenient tally = %+v, want AI approval to count", lenient)
	}

	strict := Summarize(status.StageRenders, spaces, Options{ManualQARequired: true})
	if strict.Approved != 1 || strict.Pending != 1 {
		t.Errorf("strict tally = %+v, want AI-approved slot pending", strict)
	}
	if strict.IsComplete {
		t.Error("strict IsComplete = true without human locks")
	}
}

func TestCanContinue(t *testing.T) {
	complete := Summary{Total: 2, Approved: 2, IsComplete: true}
	tests := []struct {
		name     string
		summary  Summary
		disabled bool
		pending  bool
		want     bool
	}{
		{"complete", complete, false, false, true},
		{"disabled", complete, true, false, false},
		{"mutation pending", complete, false, true, false},
		{"incomplete", Summary{Total: 2, Approved: 1}, false, false, false},
	}
	for _, tt := range tests {
		if got := CanContinue(tt.summary, tt.disabled, tt.pending); got != tt.want {
			t.Errorf("%s: CanContinue = %v, want %v", tt.name, got, tt.want)
		}
	}
}
