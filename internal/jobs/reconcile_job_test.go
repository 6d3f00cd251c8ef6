package job

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GapJohn23/profferex/internal/models"
)

type reconcileTweetRepo struct {
	tweets   map[string]*models.ScheduledTweet
	updateOK bool
}

func (r *reconcileTweetRepo) Create(ctx context.Context, tx *sql.Tx, t *models.ScheduledTweet) error {
	r.tweets[t.ID] = t
	return nil
}

func (r *reconcileTweetRepo) GetByID(ctx context.Context, id string) (*models.ScheduledTweet, error) {
	return r.tweets[id], nil
}

func (r *reconcileTweetRepo) GetScheduled(ctx context.Context, id string, userID int64) (*models.ScheduledTweet, error) {
	return r.tweets[id], nil
}

func (r *reconcileTweetRepo) ListScheduled(ctx context.Context, userID int64) ([]*models.ScheduledTweet, error) {
	return nil, nil
}

func (r *reconcileTweetRepo) ListScheduledByAccount(ctx context.Context, accountID, userID int64) ([]*models.ScheduledTweet, error) {
	return nil, nil
}

func (r *reconcileTweetRepo) ListOverdue(ctx context.Context, cutoff time.Time) ([]*models.ScheduledTweet, error) {
	var out []*models.ScheduledTweet
	for _, t := range r.tweets {
		if t.IsScheduled && !t.IsPublished && t.ScheduledFor.Before(cutoff) {
			row := *t
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r *reconcileTweetRepo) UpdateGuarded(ctx context.Context, t *models.ScheduledTweet, expectedJobID string) (bool, error) {
	if !r.updateOK {
		return false, nil
	}
	existing, ok := r.tweets[t.ID]
	if !ok || existing.DelayedJobID != expectedJobID {
		return false, nil
	}
	existing.DelayedJobID = t.DelayedJobID
	return true, nil
}

func (r *reconcileTweetRepo) RemoveGuarded(ctx context.Context, id, expectedJobID string) (bool, error) {
	return false, nil
}

func (r *reconcileTweetRepo) RemoveByAccount(ctx context.Context, accountID, userID int64) error {
	return nil
}

func (r *reconcileTweetRepo) MarkPublished(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type reconcileScheduler struct {
	published []string
	cancelled []string
	nextJob   int
}

func (s *reconcileScheduler) Publish(ctx context.Context, tweetID string, notBefore time.Time) (string, error) {
	s.nextJob++
	jobID := fmt.Sprintf("job-%d", s.nextJob)
	s.published = append(s.published, jobID)
	return jobID, nil
}

func (s *reconcileScheduler) Cancel(ctx context.Context, jobID string) error {
	s.cancelled = append(s.cancelled, jobID)
	return nil
}

func overdueTweet(id string) *models.ScheduledTweet {
	return &models.ScheduledTweet{
		ID:           id,
		UserID:       1,
		AccountID:    1,
		Content:      "hello",
		IsScheduled:  true,
		ScheduledFor: time.Now().Add(-time.Hour),
		DelayedJobID: "job-lost",
	}
}

func TestReconcileOverdueReEnqueues(t *testing.T) {
	t.Parallel()

	tr := &reconcileTweetRepo{
		tweets:   map[string]*models.ScheduledTweet{"t1": overdueTweet("t1")},
		updateOK: true,
	}
	sched := &reconcileScheduler{}

	NewReconcileJob(tr, sched).ReconcileOverdue()

	require.Len(t, sched.published, 1)
	assert.Equal(t, sched.published[0], tr.tweets["t1"].DelayedJobID)
	assert.Empty(t, sched.cancelled)
}

func TestReconcileOverdueSkipsFreshRows(t *testing.T) {
	t.Parallel()

	fresh := overdueTweet("t1")
	fresh.ScheduledFor = time.Now().Add(time.Hour)

	tr := &reconcileTweetRepo{
		tweets:   map[string]*models.ScheduledTweet{"t1": fresh},
		updateOK: true,
	}
	sched := &reconcileScheduler{}

	NewReconcileJob(tr, sched).ReconcileOverdue()

	assert.Empty(t, sched.published)
	assert.Equal(t, "job-lost", tr.tweets["t1"].DelayedJobID)
}

func TestReconcileOverdueCompensatesOnGuardFailure(t *testing.T) {
	t.Parallel()

	tr := &reconcileTweetRepo{
		tweets:   map[string]*models.ScheduledTweet{"t1": overdueTweet("t1")},
		updateOK: false,
	}
	sched := &reconcileScheduler{}

	NewReconcileJob(tr, sched).ReconcileOverdue()

	require.Len(t, sched.published, 1)
	assert.Equal(t, sched.published, sched.cancelled)
	assert.Equal(t, "job-lost", tr.tweets["t1"].DelayedJobID)
}
