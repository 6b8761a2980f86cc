// Package qa normalizes the free-form QA payloads written by the automated
// QA collaborator and classifies failures for human reviewers. Payload shapes
// have drifted over time (structured reasons array, named boolean check
// fields, bare free text), so all field probing lives behind Normalize; the
// rest of the package works only on the normalized Result.
package qa

import (
	"encoding/json"
	"strings"
)

// ReasonCode identifies a known QA failure category.
type ReasonCode string

const (
	CodeGeometryDistortion     ReasonCode = "GEOMETRY_DISTORTION"
	CodeScaleMismatch          ReasonCode = "SCALE_MISMATCH"
	CodeFurnitureHallucination ReasonCode = "FURNITURE_HALLUCINATION"
	CodeStructuralChange       ReasonCode = "STRUCTURAL_CHANGE"
	CodeFurnitureTypeMismatch  ReasonCode = "FURNITURE_TYPE_MISMATCH"
	CodeFurnitureSizeMismatch  ReasonCode = "FURNITURE_SIZE_MISMATCH"
	// CodeUnknown means the payload carried no usable reason text at all.
	// It is distinct from CodeNone: an unclassifiable payload that does have
	// text shows the generic "QA Rejected" label, not "Unknown Issue".
	CodeUnknown ReasonCode = "UNKNOWN"
	CodeNone    ReasonCode = ""
)

// Confidence buckets the QA model's 0-1 confidence score for display.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// genericPlaceholder is the reason text older QA workers wrote when the model
// returned no explanation. It carries no information and is treated the same
// as missing text.
const genericPlaceholder = "QA check failed"

// FallbackReason is returned by BuildRejectionReason when the payload has no
// reason material at all.
const FallbackReason = "reason not recorded"

// Reason is one structured entry from a reasons array.
type Reason struct {
	Code        string
	Description string
}

// Result is a QA payload normalized from any of the known shapes. Fields not
// present in the payload are zero. Raw keeps the original decoded map for
// audit display of legacy/unknown shapes.
type Result struct {
	Reasons         []Reason
	FailedChecks    []string // named check fields that failed, in checkOrder
	ReasonShort     string
	Reason          string
	ConfidenceScore *float64
	Raw             map[string]any
}

// checkOrder fixes the probe order for the named boolean check fields.
var checkOrder = []string{
	"geometry_check",
	"scale_check",
	"furniture_check",
	"structural_check",
	"furniture_type_check",
	"furniture_size_check",
}

// checkCodes maps each named check field to its reason code.
var checkCodes = map[string]ReasonCode{
	"geometry_check":       CodeGeometryDistortion,
	"scale_check":          CodeScaleMismatch,
	"furniture_check":      CodeFurnitureHallucination,
	"structural_check":     CodeStructuralChange,
	"furniture_type_check": CodeFurnitureTypeMismatch,
	"furniture_size_check": CodeFurnitureSizeMismatch,
}

// checkSentences maps each named check field to the sentence used when the
// payload has no usable free text.
var checkSentences = map[string]string{
	"geometry_check":       "Room geometry is distorted relative to the floor plan",
	"scale_check":          "Object scale does not match the room dimensions",
	"furniture_check":      "Furniture appears that is not in the staging plan",
	"structural_check":     "Structural elements such as walls, doors or windows were altered",
	"furniture_type_check": "A furniture item is of the wrong type",
	"furniture_size_check": "A furniture item is the wrong size",
}

// keywordEntry is one row of the free-text fallback table.
type keywordEntry struct {
	Keyword string
	Code    ReasonCode
}

// keywordTable is scanned in order against the lowercased reason text;
// first match wins. More specific phrases come before their prefixes.
var keywordTable = []keywordEntry{
	{"furniture type", CodeFurnitureTypeMismatch},
	{"furniture size", CodeFurnitureSizeMismatch},
	{"extra furniture", CodeFurnitureHallucination},
	{"furniture", CodeFurnitureHallucination},
	{"geometry", CodeGeometryDistortion},
	{"distort", CodeGeometryDistortion},
	{"warp", CodeGeometryDistortion},
	{"scale", CodeScaleMismatch},
	{"proportion", CodeScaleMismatch},
	{"structur", CodeStructuralChange},
	{"wall", CodeStructuralChange},
	{"window", CodeStructuralChange},
	{"door", CodeStructuralChange},
}

// Normalize decodes a raw QA payload (JSON text, possibly empty) into a
// Result. It never returns an error: undecodable payloads normalize to an
// empty Result with Raw nil.
func Normalize(raw string) Result {
	var res Result
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return res
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		// Some legacy rows hold bare reason text instead of an object.
		res.Reason = trimmed
		return res
	}
	res.Raw = m

	if arr, ok := m["reasons"].([]any); ok {
		for _, el := range arr {
			em, ok := el.(map[string]any)
			if !ok {
				continue
			}
			res.Reasons = append(res.Reasons, Reason{
				Code:        stringField(em, "code"),
				Description: stringField(em, "description"),
			})
		}
	}

	for _, name := range checkOrder {
		if v, ok := m[name]; ok && checkFailed(v) {
			res.FailedChecks = append(res.FailedChecks, name)
		}
	}

	res.ReasonShort = stringField(m, "reason_short")
	res.Reason = stringField(m, "reason")

	if f, ok := floatField(m, "confidence_score"); ok {
		res.ConfidenceScore = &f
	}

	return res
}

// ExtractCategory classifies a normalized payload. Precedence: structured
// reasons, named checks, keyword table, then CodeUnknown only when there is
// no reason text at all (or only the generic placeholder). CodeNone means
// "unclassifiable but explained" and callers label it generically.
func ExtractCategory(res Result) ReasonCode {
	if len(res.Reasons) > 0 && res.Reasons[0].Code != "" {
		return ReasonCode(strings.ToUpper(res.Reasons[0].Code))
	}

	for _, name := range res.FailedChecks {
		return checkCodes[name]
	}

	text := reasonText(res)
	if text != "" && text != genericPlaceholder {
		lower := strings.ToLower(text)
		for _, entry := range keywordTable {
			if strings.Contains(lower, entry.Keyword) {
				return entry.Code
			}
		}
		return CodeNone
	}

	return CodeUnknown
}

// ExtractConfidence thresholds the confidence score: >= 0.8 high, < 0.5 low,
// else medium. A missing score is medium.
func ExtractConfidence(res Result) Confidence {
	if res.ConfidenceScore == nil {
		return ConfidenceMedium
	}
	score := *res.ConfidenceScore
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score < 0.5:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// BuildRejectionReason produces the human-facing rejection text. It never
// returns an empty string: specific text, reconstructed check sentences, the
// raw reason even when generic, then FallbackReason.
func BuildRejectionReason(res Result) string {
	if res.ReasonShort != "" && res.ReasonShort != genericPlaceholder {
		return res.ReasonShort
	}
	if len(res.Reasons) > 0 && res.Reasons[0].Description != "" && res.Reasons[0].Description != genericPlaceholder {
		return res.Reasons[0].Description
	}

	if len(res.FailedChecks) > 0 {
		parts := make([]string, 0, len(res.FailedChecks))
		for _, name := range res.FailedChecks {
			parts = append(parts, checkSentences[name])
		}
		return strings.Join(parts, "; ")
	}

	if res.Reason != "" {
		return res.Reason
	}

	return FallbackReason
}

// DisplayLabel returns the reviewer-facing label for a reason code.
func DisplayLabel(code ReasonCode) string {
	switch code {
	case CodeGeometryDistortion:
		return "Geometry Distortion"
	case CodeScaleMismatch:
		return "Scale Mismatch"
	case CodeFurnitureHallucination:
		return "Furniture Hallucination"
	case CodeStructuralChange:
		return "Structural Change"
	case CodeFurnitureTypeMismatch:
		return "Furniture Type Mismatch"
	case CodeFurnitureSizeMismatch:
		return "Furniture Size Mismatch"
	case CodeUnknown:
		return "Unknown Issue"
	default:
		return "QA Rejected"
	}
}

// reasonText returns the best free-text reason present in the payload.
func reasonText(res Result) string {
	if res.ReasonShort != "" {
		return res.ReasonShort
	}
	if len(res.Reasons) > 0 && res.Reasons[0].Description != "" {
		return res.Reasons[0].Description
	}
	return res.Reason
}

// checkFailed interprets a named check value. Workers have written booleans,
// "failed"/"fail", and "passed" over time.
func checkFailed(v any) bool {
	switch val := v.(type) {
	case bool:
		return !val
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		return s == "failed" || s == "fail"
	default:
		return false
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch val := m[key].(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
