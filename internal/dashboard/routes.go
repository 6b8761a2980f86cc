package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kvistad/renderloop/internal/asset"
	"github.com/kvistad/renderloop/internal/pipeline"
	"github.com/kvistad/renderloop/internal/space"
	"github.com/kvistad/renderloop/internal/step"
	"github.com/kvistad/renderloop/internal/storage"
)

// registerRoutes sets up all review API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, store *storage.Client) {
	api := router.Group("/api")

	api.GET("/pipelines", handlePipelineList(db))
	api.GET("/pipelines/:id", handlePipelineDetail(db, store))
	api.GET("/pipelines/:id/summary", handlePipelineSummary(db))
	api.POST("/pipelines/:id/advance", handlePipelineAdvance(db))
	api.POST("/pipelines/:id/halt", handlePipelineHalt(db))

	api.GET("/spaces/:id", handleSpaceDetail(db, store))
	api.POST("/spaces/:id/exclude", handleSpaceExcluded(db, true))
	api.POST("/spaces/:id/include", handleSpaceExcluded(db, false))

	api.GET("/assets/:id", handleAssetDetail(db, store))
	api.POST("/assets/:id/approve", handleAssetApprove(db))
	api.POST("/assets/:id/reject", handleAssetReject(db))
	api.POST("/assets/:id/retry", handleAssetRetry(db))

	api.GET("/steps/:id", handleStepDetail(db))
	api.POST("/steps/:id/approve-attempt", handleStepApproveAttempt(db))
	api.POST("/steps/:id/restart", handleStepRestart(db))
	api.POST("/steps/:id/reject-all", handleStepRejectAll(db))
	api.POST("/steps/:id/stop-auto-retry", handleStepStopAutoRetry(db))

	api.POST("/feedback", handleFeedback(db))

	api.GET("/events", handleSSE(db))
}

func jsonError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP statuses: missing rows are 404,
// reviewer-caused refusals 409, anything else is an internal failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, asset.ErrLocked),
		errors.Is(err, asset.ErrInvalidTransition),
		errors.Is(err, pipeline.ErrGateClosed),
		errors.Is(err, pipeline.ErrWrongState),
		errors.Is(err, step.ErrNotExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func handlePipelineList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pipelines, err := pipeline.List(db)
		if err != nil {
			jsonError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pipelines": pipelines})
	}
}

func handlePipelineDetail(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := buildPipelineView(c.Request.Context(), db, store, c.Param("id"))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func handlePipelineSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := pipeline.StageSummaries(db, c.Param("id"))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stages": summaries})
	}
}

func handlePipelineAdvance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pipeline.Advance(db, c.Param("id")); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		p, err := pipeline.Get(db, c.Param("id"))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": p.Status, "current_stage": p.CurrentStage})
	}
}

func handlePipelineHalt(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pipeline.Halt(db, c.Param("id")); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "halted"})
	}
}

func handleSpaceDetail(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		sp, err := space.Get(db, c.Param("id"))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		stage := c.Query("stage")
		if stage == "" {
			p, err := pipeline.Get(db, sp.PipelineID)
			if err != nil {
				jsonError(c, statusFor(err), err)
				return
			}
			stage = p.CurrentStage
		}
		c.JSON(http.StatusOK, buildSpaceView(c.Request.Context(), store, sp, stage))
	}
}

func handleSpaceExcluded(db *gorm.DB, excluded bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := space.SetExcluded(db, c.Param("id"), excluded); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"excluded": excluded})
	}
}

func handleAssetDetail(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := asset.Get(db, c.Param("id"))
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, buildAssetView(c.Request.Context(), store, a))
	}
}

type reviewerBody struct {
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

func handleAssetApprove(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body reviewerBody
		c.ShouldBindJSON(&body)
		if err := asset.Approve(db, c.Param("id"), body.Reviewer); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "approved"})
	}
}

func handleAssetReject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body reviewerBody
		c.ShouldBindJSON(&body)
		if err := asset.Reject(db, c.Param("id"), body.Reviewer, body.Notes); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	}
}

func handleAssetRetry(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := asset.Retry(db, c.Param("id")); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "queued"})
	}
}

func stepID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step id"})
		return 0, false
	}
	return uint(id), true
}

func handleStepDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := stepID(c)
		if !ok {
			return
		}
		view, err := buildStepView(db, id)
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func handleStepApproveAttempt(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := stepID(c)
		if !ok {
			return
		}
		var body struct {
			AttemptIndex int    `json:"attempt_index"`
			Reviewer     string `json:"reviewer"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		if err := step.ApproveAttempt(db, id, body.AttemptIndex, body.Reviewer); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "approved"})
	}
}

func handleStepRestart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := stepID(c)
		if !ok {
			return
		}
		if err := step.Restart(db, id); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "restarted"})
	}
}

func handleStepRejectAll(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := stepID(c)
		if !ok {
			return
		}
		var body reviewerBody
		c.ShouldBindJSON(&body)
		if err := step.RejectAllStop(db, id, body.Reviewer, body.Notes); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	}
}

func handleStepStopAutoRetry(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := stepID(c)
		if !ok {
			return
		}
		if err := step.StopAutoRetry(db, id); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "stopped"})
	}
}

type feedbackBody struct {
	AssetID  string `json:"asset_id" binding:"required"`
	Reviewer string `json:"reviewer"`
	Decision string `json:"decision" binding:"required"`
	Category string `json:"category"`
	Score    int    `json:"score" binding:"gte=0,lte=100"`
	Reason   string `json:"reason"`
	Disagree bool   `json:"disagree"`
}

// handleFeedback appends a structured reviewer verdict. The record is a
// write-only sink; it never feeds back into approval decisions.
func handleFeedback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body feedbackBody
		if err := c.ShouldBindJSON(&body); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		fb, err := asset.RecordFeedback(db, asset.FeedbackOpts{
			AssetID:  body.AssetID,
			Reviewer: body.Reviewer,
			Decision: body.Decision,
			Category: body.Category,
			Score:    body.Score,
			Reason:   body.Reason,
			Disagree: body.Disagree,
		})
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": fb.ID})
	}
}
