package space

import (
	"strings"
	"testing"

	"github.com/kvistad/renderloop/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Pipeline{}, &models.Space{}, &models.Asset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGenerateID_Format(t *testing.T) {
	id, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID() error: %v", err)
	}
	if !strings.HasPrefix(id, "sp-") || len(id) != 8 {
		t.Errorf("ID = %q, want sp- prefix and length 8", id)
	}
}

func TestCreate_RequiresFields(t *testing.T) {
	db := testDB(t)
	if _, err := Create(db, CreateOpts{Name: "Living Room"}); err == nil {
		t.Error("expected error for missing pipeline ID")
	}
	if _, err := Create(db, CreateOpts{PipelineID: "pl-1"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestSetExcluded(t *testing.T) {
	db := testDB(t)
	s, err := Create(db, CreateOpts{PipelineID: "pl-1", Name: "Kitchen", Kind: "kitchen"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := SetExcluded(db, s.ID, true); err != nil {
		t.Fatalf("SetExcluded: %v", err)
	}
	got, _ := Get(db, s.ID)
	if !got.IsExcluded {
		t.Error("IsExcluded = false after exclusion")
	}
	if got.Active() {
		t.Error("Active() = true for excluded space")
	}

	if err := SetExcluded(db, s.ID, false); err != nil {
		t.Fatalf("re-include: %v", err)
	}
	got, _ = Get(db, s.ID)
	if !got.Active() {
		t.Error("Active() = false after re-inclusion")
	}

	if err := SetExcluded(db, "sp-nope", true); err == nil {
		t.Error("expected error for unknown space")
	}
}

func TestEnsureSlots_PairedStage(t *testing.T) {
	db := testDB(t)
	s, _ := Create(db, CreateOpts{PipelineID: "pl-1", Name: "Bedroom"})

	created, err := EnsureSlots(db, s, "renders")
	if err != nil {
		t.Fatalf("EnsureSlots: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	// Idempotent.
	created, err = EnsureSlots(db, s, "renders")
	if err != nil {
		t.Fatalf("EnsureSlots second call: %v", err)
	}
	if created != 0 {
		t.Errorf("second call created = %d, want 0", created)
	}

	got, _ := Get(db, s.ID)
	if len(got.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(got.Assets))
	}
	slots := map[string]bool{}
	for _, a := range got.Assets {
		slots[a.Slot] = true
		if a.Status != "pending" {
			t.Errorf("slot %q status = %q, want pending", a.Slot, a.Status)
		}
	}
	if !slots["a"] || !slots["b"] {
		t.Errorf("slots = %v, want a and b", slots)
	}
}

func TestEnsureSlots_Final360(t *testing.T) {
	db := testDB(t)
	s, _ := Create(db, CreateOpts{PipelineID: "pl-1", Name: "Studio"})

	created, err := EnsureSlots(db, s, "final360")
	if err != nil {
		t.Fatalf("EnsureSlots: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
}

func TestListForPipeline_KeepsExcluded(t *testing.T) {
	db := testDB(t)
	a, _ := Create(db, CreateOpts{PipelineID: "pl-1", Name: "A"})
	Create(db, CreateOpts{PipelineID: "pl-1", Name: "B"})
	Create(db, CreateOpts{PipelineID: "pl-2", Name: "Other"})
	SetExcluded(db, a.ID, true)

	spaces, err := ListForPipeline(db, "pl-1")
	if err != nil {
		t.Fatalf("ListForPipeline: %v", err)
	}
	// Exclusion hides a space from tallies, not from listings.
	if len(spaces) != 2 {
		t.Errorf("spaces = %d, want 2", len(spaces))
	}
}
