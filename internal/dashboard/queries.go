package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kvistad/renderloop/internal/approval"
	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/pipeline"
	"github.com/kvistad/renderloop/internal/qa"
	"github.com/kvistad/renderloop/internal/space"
	"github.com/kvistad/renderloop/internal/status"
	"github.com/kvistad/renderloop/internal/step"
	"github.com/kvistad/renderloop/internal/storage"
)

// PipelineView is the pipeline detail payload: the run itself, per-stage
// approval summaries, and slot views for every space at the current stage.
type PipelineView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Status       string             `json:"status"`
	CurrentStage string             `json:"current_stage"`
	ManualQA     bool               `json:"manual_qa"`
	CreatedAt    time.Time          `json:"created_at"`
	HaltedAt     *time.Time         `json:"halted_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Stages       []approval.Summary `json:"stages"`
	Spaces       []SpaceView        `json:"spaces"`
}

// SpaceView shows one space's slots at a single stage. Combined is the
// pair-level stage status: both camera slots merged, so a space reads as
// approved only when every slot is.
type SpaceView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     string     `json:"kind,omitempty"`
	Active   bool       `json:"active"`
	Stage    string     `json:"stage"`
	Combined string     `json:"combined"`
	Slots    []SlotView `json:"slots"`
}

// SlotView is one camera slot with its derived status. A slot whose asset
// row has not been created yet still appears, as pending.
type SlotView struct {
	Slot         string `json:"slot"`
	AssetID      string `json:"asset_id,omitempty"`
	RawStatus    string `json:"raw_status,omitempty"`
	Derived      string `json:"derived"`
	Bucket       string `json:"bucket"`
	AttemptCount int    `json:"attempt_count"`
	ThumbURL     string `json:"thumb_url,omitempty"`
}

// AssetView is the asset detail payload, with the QA report normalized into
// the reviewer-facing category, label, and rejection reason.
type AssetView struct {
	ID             string           `json:"id"`
	PipelineID     string           `json:"pipeline_id"`
	SpaceID        string           `json:"space_id"`
	Stage          string           `json:"stage"`
	Slot           string           `json:"slot"`
	RawStatus      string           `json:"raw_status"`
	Derived        string           `json:"derived"`
	Bucket         string           `json:"bucket"`
	LockedApproved bool             `json:"locked_approved"`
	AttemptCount   int              `json:"attempt_count"`
	QACategory     string           `json:"qa_category,omitempty"`
	QALabel        string           `json:"qa_label,omitempty"`
	QAConfidence   string           `json:"qa_confidence,omitempty"`
	QAReason       string           `json:"qa_reason,omitempty"`
	ReviewNotes    string           `json:"review_notes,omitempty"`
	ApprovedBy     string           `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time       `json:"approved_at,omitempty"`
	ViewURL        string           `json:"view_url,omitempty"`
	ThumbURL       string           `json:"thumb_url,omitempty"`
	Attempts       []models.Attempt `json:"attempts,omitempty"`
}

// StepView is the step detail payload: the retry state row, its display
// classification, and the attempt history.
type StepView struct {
	State          *models.StepRetryState `json:"state"`
	Classification step.Classification    `json:"classification"`
	Attempts       []models.Attempt       `json:"attempts"`
}

func buildPipelineView(ctx context.Context, db *gorm.DB, store *storage.Client, id string) (*PipelineView, error) {
	p, err := pipeline.Get(db, id)
	if err != nil {
		return nil, err
	}
	summaries, err := pipeline.StageSummaries(db, id)
	if err != nil {
		return nil, err
	}
	spaces, err := space.ListForPipeline(db, id)
	if err != nil {
		return nil, err
	}

	view := &PipelineView{
		ID:           p.ID,
		Name:         p.Name,
		Status:       p.Status,
		CurrentStage: p.CurrentStage,
		ManualQA:     p.ManualQA,
		CreatedAt:    p.CreatedAt,
		HaltedAt:     p.HaltedAt,
		CompletedAt:  p.CompletedAt,
		Stages:       summaries,
	}
	for i := range spaces {
		view.Spaces = append(view.Spaces, buildSpaceView(ctx, store, &spaces[i], p.CurrentStage))
	}
	return view, nil
}

func buildSpaceView(ctx context.Context, store *storage.Client, sp *models.Space, stage string) SpaceView {
	view := SpaceView{
		ID:     sp.ID,
		Name:   sp.Name,
		Kind:   sp.Kind,
		Active: sp.Active(),
		Stage:  stage,
	}
	var combined status.StageStatus
	for i, slot := range slotNames(stage) {
		a := approval.SlotAsset(sp, stage, slot)
		derived := status.Derive(a)
		if i == 0 {
			combined = derived
		} else {
			combined = status.Combine(combined, derived)
		}
		sv := SlotView{
			Slot:    slot,
			Derived: string(derived),
			Bucket:  string(approval.Bucket(a)),
		}
		if a != nil {
			sv.AssetID = a.ID
			sv.RawStatus = a.Status
			sv.AttemptCount = a.AttemptCount
			if store != nil && a.OutputUploadID != "" {
				sv.ThumbURL = store.ThumbURL(ctx, a.OutputUploadID)
			}
		}
		view.Slots = append(view.Slots, sv)
	}
	view.Combined = string(combined)
	return view
}

func buildAssetView(ctx context.Context, store *storage.Client, a *models.Asset) AssetView {
	view := AssetView{
		ID:             a.ID,
		PipelineID:     a.PipelineID,
		SpaceID:        a.SpaceID,
		Stage:          a.Stage,
		Slot:           a.Slot,
		RawStatus:      a.Status,
		Derived:        string(status.Derive(a)),
		Bucket:         string(approval.Bucket(a)),
		LockedApproved: a.LockedApproved,
		AttemptCount:   a.AttemptCount,
		ReviewNotes:    a.ReviewNotes,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
		Attempts:       a.Attempts,
	}
	if a.QAReport != "" {
		res := qa.Normalize(a.QAReport)
		code := qa.ExtractCategory(res)
		view.QACategory = string(code)
		view.QALabel = qa.DisplayLabel(code)
		view.QAConfidence = string(qa.ExtractConfidence(res))
		view.QAReason = qa.BuildRejectionReason(res)
	}
	if store != nil && a.OutputUploadID != "" {
		if url, err := store.SignedViewURL(ctx, a.OutputUploadID); err == nil {
			view.ViewURL = url
		}
		view.ThumbURL = store.ThumbURL(ctx, a.OutputUploadID)
	}
	return view
}

func buildStepView(db *gorm.DB, id uint) (*StepView, error) {
	st, err := step.Get(db, id)
	if err != nil {
		return nil, err
	}
	attempts, err := step.Attempts(db, st)
	if err != nil {
		return nil, err
	}
	return &StepView{
		State:          st,
		Classification: step.Classify(st, attempts),
		Attempts:       attempts,
	}, nil
}

func slotNames(stage string) []string {
	if status.SlotsPerSpace(stage) == 1 {
		return []string{""}
	}
	return []string{"a", "b"}
}
