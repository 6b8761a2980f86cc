package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/step"
)

// blockedEvent holds data for a blocked-step SSE event.
type blockedEvent struct {
	StepID       uint   `json:"step_id"`
	PipelineID   string `json:"pipeline_id"`
	SpaceID      string `json:"space_id"`
	AssetID      string `json:"asset_id,omitempty"`
	Stage        string `json:"stage"`
	Slot         string `json:"slot,omitempty"`
	AttemptCount int    `json:"attempt_count"`
	MaxAttempts  int    `json:"max_attempts"`
	Count        int64  `json:"count"`
}

// handleSSE streams blocked-step events: a step flipping to
// blocked_for_human since the client connected produces one event.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		// Only alert on steps blocked after this point.
		var lastSeenID uint
		var newest models.StepRetryState
		if err := db.Where("status = ?", step.StatusBlockedForHuman).
			Order("id DESC").Limit(1).First(&newest).Error; err == nil {
			lastSeenID = newest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var blocked []models.StepRetryState
				db.Where("status = ? AND id > ?", step.StatusBlockedForHuman, lastSeenID).
					Order("id ASC").
					Find(&blocked)

				if len(blocked) == 0 {
					continue
				}
				lastSeenID = blocked[len(blocked)-1].ID

				var count int64
				db.Model(&models.StepRetryState{}).
					Where("status = ?", step.StatusBlockedForHuman).
					Count(&count)

				for _, st := range blocked {
					writeSSE(c.Writer, "blocked", blockedEvent{
						StepID:       st.ID,
						PipelineID:   st.PipelineID,
						SpaceID:      st.SpaceID,
						AssetID:      st.AssetID,
						Stage:        st.Stage,
						Slot:         st.Slot,
						AttemptCount: st.AttemptCount,
						MaxAttempts:  st.MaxAttempts,
						Count:        count,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
