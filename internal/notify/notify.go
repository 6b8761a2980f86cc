// Package notify delivers review-attention events to chat platforms. Only
// outbound delivery is needed: human decisions come back through the review
// API and CLI, not through chat.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/kvistad/renderloop/internal/step"
)

// Event is one notification formatted for chat display.
type Event struct {
	Title      string
	Body       string
	Severity   string // "info", "warning", "error", "success"
	PipelineID string
	AssetID    string
	Fields     []Field
}

// Field is a key-value pair displayed with an event.
type Field struct {
	Name  string
	Value string
}

// Notifier delivers one event to a platform.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every configured platform. Delivery is
// best-effort: failures are logged, never returned, so a chat outage can't
// stall the sweeper.
type Multi []Notifier

// Notify sends the event to all platforms.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}

// SeverityColor returns the sidebar color hint for a severity.
func SeverityColor(severity string) string {
	switch severity {
	case "success":
		return "#36a64f"
	case "warning":
		return "#f2c744"
	case "error":
		return "#d00000"
	default:
		return "#439fe0"
	}
}

// BlockedEvent formats a blocked-for-human notification from a step
// classification.
func BlockedEvent(pipelineID, spaceName, stage, assetID string, c step.Classification) Event {
	return Event{
		Title:      fmt.Sprintf("Review needed: %s / %s", spaceName, stage),
		Body:       c.Reason,
		Severity:   "warning",
		PipelineID: pipelineID,
		AssetID:    assetID,
		Fields: []Field{
			{Name: "Category", Value: c.Label},
			{Name: "Confidence", Value: string(c.Confidence)},
			{Name: "Attempts", Value: fmt.Sprintf("%d/%d", c.AttemptCount, c.MaxAttempts)},
		},
	}
}

// HaltEvent formats a pipeline-halt notification.
func HaltEvent(pipelineID, reason string) Event {
	return Event{
		Title:      fmt.Sprintf("Pipeline %s halted", pipelineID),
		Body:       reason,
		Severity:   "error",
		PipelineID: pipelineID,
	}
}
