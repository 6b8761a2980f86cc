// Package sweep implements the retry sweeper daemon: it watches step retry
// states, flips exhausted steps to blocked_for_human, and notifies reviewers.
package sweep

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/kvistad/renderloop/internal/models"
	"github.com/kvistad/renderloop/internal/notify"
	"github.com/kvistad/renderloop/internal/step"
)

// Result summarizes one sweep pass.
type Result struct {
	Scanned int
	Blocked int
	Synced  int
}

// Sweep runs one pass: asset attempt counters are re-aligned with the
// attempts table, then every step that has exhausted its attempts without a
// locked one is blocked and announced. Already-blocked steps are skipped.
func Sweep(db *gorm.DB, notifier notify.Notifier) (Result, error) {
	var res Result
	if db == nil {
		return res, fmt.Errorf("sweep: db is required")
	}

	synced, err := syncAttemptCounts(db)
	if err != nil {
		return res, err
	}
	res.Synced = synced

	var states []models.StepRetryState
	if err := db.Where("attempt_count >= max_attempts AND status NOT IN ?",
		[]string{step.StatusBlockedForHuman, step.StatusQAPass}).
		Find(&states).Error; err != nil {
		return res, fmt.Errorf("sweep: list exhausted steps: %w", err)
	}

	for i := range states {
		st := &states[i]
		res.Scanned++

		attempts, err := step.Attempts(db, st)
		if err != nil {
			log.Printf("sweep: %v", err)
			continue
		}
		c := step.Classify(st, attempts)
		if !c.IsExhausted {
			// A locked attempt arrived between the query and now.
			continue
		}

		if err := step.MarkBlocked(db, st.ID); err != nil {
			log.Printf("sweep: block step %d: %v", st.ID, err)
			continue
		}
		res.Blocked++

		if notifier != nil {
			spaceName := st.SpaceID
			var sp models.Space
			if err := db.Where("id = ?", st.SpaceID).First(&sp).Error; err == nil {
				spaceName = sp.Name
			}
			notifier.Notify(context.Background(),
				notify.BlockedEvent(st.PipelineID, spaceName, st.Stage, st.AssetID, c))
		}
	}
	return res, nil
}

// syncAttemptCounts re-aligns asset attempt counters with the attempts
// table. Workers that crash mid-write can leave the counter behind. Counters
// are only ever raised: a reviewer retry may legitimately run the counter
// ahead of the recorded attempts.
func syncAttemptCounts(db *gorm.DB) (int, error) {
	type attemptMax struct {
		AssetID string
		Max     int
	}
	var rows []attemptMax
	if err := db.Model(&models.Attempt{}).
		Select("asset_id, MAX(attempt_index) AS max").
		Group("asset_id").Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("sweep: scan attempt counts: %w", err)
	}

	synced := 0
	for _, r := range rows {
		tx := db.Model(&models.Asset{}).
			Where("id = ? AND attempt_count < ?", r.AssetID, r.Max).
			Update("attempt_count", r.Max)
		if tx.Error != nil {
			return synced, fmt.Errorf("sweep: sync attempt count for %s: %w", r.AssetID, tx.Error)
		}
		synced += int(tx.RowsAffected)
	}
	return synced, nil
}

// Run schedules Sweep on the given cron spec and blocks until the context is
// cancelled.
func Run(ctx context.Context, db *gorm.DB, spec string, notifier notify.Notifier, out io.Writer) error {
	if db == nil {
		return fmt.Errorf("sweep: db is required")
	}
	if out == nil {
		out = io.Discard
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res, err := Sweep(db, notifier)
		if err != nil {
			log.Printf("sweep: %v", err)
			return
		}
		if res.Blocked > 0 {
			fmt.Fprintf(out, "Sweep blocked %d of %d exhausted steps\n", res.Blocked, res.Scanned)
		}
	})
	if err != nil {
		return fmt.Errorf("sweep: schedule %q: %w", spec, err)
	}

	fmt.Fprintf(out, "Retry sweeper running (%s)\n", spec)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
