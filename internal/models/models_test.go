package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestPipeline_Fields(t *testing.T) {
	typ := reflect.TypeOf(Pipeline{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Status", "default:draft")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "CurrentStage", "default:renders")
	assertGormTag(t, typ, "ManualQA", "default:false")

	assertFieldType(t, typ, "HaltedAt", "*time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
	assertFieldType(t, typ, "Spaces", "[]models.Space")
}

func TestSpace_Fields(t *testing.T) {
	typ := reflect.TypeOf(Space{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "PipelineID", "index")
	assertGormTag(t, typ, "PipelineID", "not null")
	assertGormTag(t, typ, "IsExcluded", "default:false")

	assertFieldType(t, typ, "IncludeInGeneration", "*bool")
	assertFieldType(t, typ, "Assets", "[]models.Asset")
}

func TestSpace_Active(t *testing.T) {
	f := false
	tr := true
	tests := []struct {
		name  string
		space Space
		want  bool
	}{
		{"default", Space{}, true},
		{"excluded", Space{IsExcluded: true}, false},
		{"include nil", Space{IncludeInGeneration: nil}, true},
		{"include false", Space{IncludeInGeneration: &f}, false},
		{"include true", Space{IncludeInGeneration: &tr}, true},
		{"excluded wins over include true", Space{IsExcluded: true, IncludeInGeneration: &tr}, false},
	}
	for _, tt := range tests {
		if got := tt.space.Active(); got != tt.want {
			t.Errorf("%s: Active() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAsset_Fields(t *testing.T) {
	typ := reflect.TypeOf(Asset{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "SpaceID", "index")
	assertGormTag(t, typ, "Stage", "not null")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "LockedApproved", "default:false")
	assertGormTag(t, typ, "QAReport", "type:json")
	assertGormTag(t, typ, "ReviewNotes", "type:text")

	assertFieldType(t, typ, "LockedApproved", "bool")
	assertFieldType(t, typ, "ApprovedAt", "*time.Time")
	assertFieldType(t, typ, "Attempts", "[]models.Attempt")
}

func TestAttempt_Fields(t *testing.T) {
	typ := reflect.TypeOf(Attempt{})

	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "AssetID", "index")
	assertGormTag(t, typ, "Index", "column:attempt_index")
	assertGormTag(t, typ, "QAResult", "type:json")
	assertGormTag(t, typ, "LockedApproved", "default:false")

	assertFieldType(t, typ, "Index", "int")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestStepRetryState_Fields(t *testing.T) {
	typ := reflect.TypeOf(StepRetryState{})

	assertGormTag(t, typ, "SpaceID", "idx_step")
	assertGormTag(t, typ, "Stage", "idx_step")
	assertGormTag(t, typ, "Slot", "idx_step")
	assertGormTag(t, typ, "MaxAttempts", "default:5")
	assertGormTag(t, typ, "AutoRetryEnabled", "default:true")
	assertGormTag(t, typ, "Status", "default:pending")
	assertGormTag(t, typ, "LastQAResult", "type:json")
	assertGormTag(t, typ, "AttemptsJSON", "type:json")

	assertFieldType(t, typ, "BlockedAt", "*time.Time")
}

func TestReviewFeedback_Fields(t *testing.T) {
	typ := reflect.TypeOf(ReviewFeedback{})

	assertGormTag(t, typ, "AssetID", "index")
	assertGormTag(t, typ, "Decision", "not null")
	assertGormTag(t, typ, "Reason", "size:200")
	assertGormTag(t, typ, "Disagree", "default:false")
}
