package job

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/scheduler"
)

// overdueGrace gives a healthy delayed job time to fire before the
// sweep considers it lost.
const overdueGrace = 2 * time.Minute

// ReconcileJob re-enqueues pending tweets whose scheduled instant has
// passed without a delivery. The publish path is idempotent, so
// double-enqueueing a slow-but-alive job is harmless.
type ReconcileJob struct {
	tr    repository.ScheduledTweetRepository
	sched scheduler.Scheduler
}

func NewReconcileJob(tr repository.ScheduledTweetRepository, sched scheduler.Scheduler) *ReconcileJob {
	return &ReconcileJob{
		tr:    tr,
		sched: sched,
	}
}

func (j *ReconcileJob) ReconcileOverdue() {
	ctx := context.Background()

	cutoff := time.Now().Add(-overdueGrace)
	overdue, err := j.tr.ListOverdue(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, tweet := range overdue {
		jobID, err := j.sched.Publish(ctx, tweet.ID, time.Now())
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		previousJobID := tweet.DelayedJobID
		tweet.DelayedJobID = jobID
		ok, err := j.tr.UpdateGuarded(ctx, tweet, previousJobID)
		if err != nil || !ok {
			// Someone touched the row since we read it; retire the
			// extra job and leave the row alone.
			if cancelErr := j.sched.Cancel(ctx, jobID); cancelErr != nil && cancelErr != scheduler.ErrJobNotFound {
				log.Printf("Failed to cleanup reconcile job %s: %v", jobID, cancelErr)
			}
			continue
		}

		log.Printf("Re-enqueued overdue tweet %s as job %s", tweet.ID, jobID)
	}
}
