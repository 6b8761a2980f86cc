package sweep

import (
	"context"
	"fmt"
	"testing"

	"github.com/kvistad/renderloop/internal/asset"
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/notify"
	"github.com/kvistad/renderloop/internal/pipeline"
	"github.com/kvistad/renderloop/internal/space"
	"github.com/kvistad/renderloop/internal/step"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Pipeline{}, &models.Space{}, &models.Asset{},
		&models.Attempt{}, &models.StepRetryState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type captureNotifier struct {
	events []notify.Event
}

func (c *captureNotifier) Notify(_ context.Context, ev notify.Event) error {
	c.events = append(c.events, ev)
	return nil
}

// fixture builds an active pipeline with one seeded render slot and a retry
// state driven to the given attempt count via failed results.
func fixture(t *testing.T, db *gorm.DB, failures int) *models.StepRetryState {
	t.Helper()
	p, err := pipeline.Create(db, pipeline.CreateOpts{Name: "Loft"})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}
	sp, err := space.Create(db, space.CreateOpts{PipelineID: p.ID, Name: "Kitchen"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	if err := pipeline.Activate(db, p.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	assets, err := asset.List(db, asset.ListFilters{SpaceID: sp.ID, Stage: "renders"})
	if err != nil || len(assets) == 0 {
		t.Fatalf("list assets: %v (%d)", err, len(assets))
	}
	var assetID string
	for _, a := range assets {
		if a.Slot == "a" {
			assetID = a.ID
		}
	}

	st, err := step.GetOrCreate(db, p.ID, sp.ID, "renders", "a", assetID, failures)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	for i := 0; i < failures; i++ {
		if _, err := asset.RecordAttempt(db, assetID, "qa_failed", `{"passed":false}`,
			fmt.Sprintf("up-%d", i+1)); err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
		if err := step.RecordResult(db, st.ID, false, `{"passed":false}`); err != nil {
			t.Fatalf("RecordResult %d: %v", i, err)
		}
	}
	st, err = step.Get(db, st.ID)
	if err != nil {
		t.Fatalf("reload step: %v", err)
	}
	return st
}

func TestSweep_BlocksExhaustedStep(t *testing.T) {
	db := testDB(t)
	st := fixture(t, db, 3)

	n := &captureNotifier{}
	res, err := Sweep(db, n)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 1 || res.Blocked != 1 {
		t.Errorf("result = %+v, want 1 scanned, 1 blocked", res)
	}

	st, err = step.Get(db, st.ID)
	if err != nil {
		t.Fatalf("reload step: %v", err)
	}
	if st.Status != step.StatusBlockedForHuman {
		t.Errorf("step status = %q, want %q", st.Status, step.StatusBlockedForHuman)
	}
	if st.BlockedAt == nil {
		t.Error("BlockedAt not set")
	}

	if len(n.events) != 1 {
		t.Fatalf("got %d events, want 1", len(n.events))
	}
	ev := n.events[0]
	if ev.Severity != "warning" {
		t.Errorf("severity = %q, want warning", ev.Severity)
	}
	if ev.PipelineID != st.PipelineID || ev.AssetID != st.AssetID {
		t.Errorf("event ids = %q/%q, want %q/%q", ev.PipelineID, ev.AssetID, st.PipelineID, st.AssetID)
	}
}

func TestSweep_SkipsHealthySteps(t *testing.T) {
	db := testDB(t)
	fixture(t, db, 0) // step exists, no failures recorded

	n := &captureNotifier{}
	res, err := Sweep(db, n)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Blocked != 0 {
		t.Errorf("blocked %d healthy steps", res.Blocked)
	}
	if len(n.events) != 0 {
		t.Errorf("got %d events, want 0", len(n.events))
	}
}

func TestSweep_SkipsLockedAttempt(t *testing.T) {
	db := testDB(t)
	st := fixture(t, db, 3)

	// A reviewer approved an attempt after exhaustion: not blocked.
	if err := step.ApproveAttempt(db, st.ID, 2, "reviewer@example.com"); err != nil {
		t.Fatalf("ApproveAttempt: %v", err)
	}

	res, err := Sweep(db, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Blocked != 0 {
		t.Errorf("blocked a step with a locked attempt: %+v", res)
	}
}

func TestSweep_SyncsAttemptCounters(t *testing.T) {
	db := testDB(t)
	st := fixture(t, db, 3)

	// Simulate a worker crash leaving the counter behind the attempts table.
	if err := db.Model(&models.Asset{}).Where("id = ?", st.AssetID).
		Update("attempt_count", 1).Error; err != nil {
		t.Fatalf("downgrade counter: %v", err)
	}

	res, err := Sweep(db, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Synced != 1 {
		t.Errorf("Synced = %d, want 1", res.Synced)
	}

	var a models.Asset
	if err := db.Where("id = ?", st.AssetID).First(&a).Error; err != nil {
		t.Fatalf("reload asset: %v", err)
	}
	if a.AttemptCount != 3 {
		t.Errorf("attempt_count = %d, want 3", a.AttemptCount)
	}
}

func TestSweep_IdempotentAcrossPasses(t *testing.T) {
	db := testDB(t)
	fixture(t, db, 3)

	n := &captureNotifier{}
	if _, err := Sweep(db, n); err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	res, err := Sweep(db, n)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if res.Scanned != 0 || res.Blocked != 0 {
		t.Errorf("second pass re-scanned blocked steps: %+v", res)
	}
	if len(n.events) != 1 {
		t.Errorf("got %d events, want 1", len(n.events))
	}
}
