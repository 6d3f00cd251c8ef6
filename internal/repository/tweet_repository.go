package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/GapJohn23/profferex/internal/models"
)

type ScheduledTweetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, t *models.ScheduledTweet) error
	GetByID(ctx context.Context, id string) (*models.ScheduledTweet, error)
	GetScheduled(ctx context.Context, id string, userID int64) (*models.ScheduledTweet, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.ScheduledTweet, error)
	ListScheduledByAccount(ctx context.Context, accountID, userID int64) ([]*models.ScheduledTweet, error)
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*models.ScheduledTweet, error)
	UpdateGuarded(ctx context.Context, t *models.ScheduledTweet, expectedJobID string) (bool, error)
	RemoveGuarded(ctx context.Context, id, expectedJobID string) (bool, error)
	RemoveByAccount(ctx context.Context, accountID, userID int64) error
	MarkPublished(ctx context.Context, id string) (bool, error)
}

type scheduledTweetRepository struct {
	db *sql.DB
}

func NewScheduledTweetRepository(db *sql.DB) ScheduledTweetRepository {
	return &scheduledTweetRepository{db: db}
}

const scheduledTweetColumns = `id, user_id, account_id, content, media_ids, is_scheduled,
	is_published, scheduled_unix, scheduled_for, delayed_job_id, created_at, updated_at`

func scanScheduledTweet(row interface{ Scan(...interface{}) error }) (*models.ScheduledTweet, error) {
	var t models.ScheduledTweet
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Content, pq.Array(&t.MediaIDs),
		&t.IsScheduled, &t.IsPublished, &t.ScheduledUnix, &t.ScheduledFor,
		&t.DelayedJobID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *scheduledTweetRepository) Create(ctx context.Context, tx *sql.Tx, t *models.ScheduledTweet) error {
	query := `
		INSERT INTO scheduled_tweets
			(id, user_id, account_id, content, media_ids, is_scheduled, is_published,
			scheduled_unix, scheduled_for, delayed_job_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, t.ID, t.UserID, t.AccountID, t.Content,
			pq.Array(t.MediaIDs), t.IsScheduled, t.IsPublished, t.ScheduledUnix,
			t.ScheduledFor, t.DelayedJobID)
	} else {
		_, err = r.db.ExecContext(ctx, query, t.ID, t.UserID, t.AccountID, t.Content,
			pq.Array(t.MediaIDs), t.IsScheduled, t.IsPublished, t.ScheduledUnix,
			t.ScheduledFor, t.DelayedJobID)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *scheduledTweetRepository) GetByID(ctx context.Context, id string) (*models.ScheduledTweet, error) {
	query := `SELECT ` + scheduledTweetColumns + ` FROM scheduled_tweets WHERE id = $1`

	t, err := scanScheduledTweet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

// GetScheduled returns the row only when it is still pending: owned by
// the user, is_scheduled and not yet published.
func (r *scheduledTweetRepository) GetScheduled(ctx context.Context, id string, userID int64) (*models.ScheduledTweet, error) {
	query := `
		SELECT ` + scheduledTweetColumns + `
		FROM scheduled_tweets
		WHERE id = $1 AND user_id = $2 AND is_scheduled = TRUE AND is_published = FALSE
	`

	t, err := scanScheduledTweet(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

func (r *scheduledTweetRepository) ListScheduled(ctx context.Context, userID int64) ([]*models.ScheduledTweet, error) {
	query := `
		SELECT ` + scheduledTweetColumns + `
		FROM scheduled_tweets
		WHERE user_id = $1 AND is_scheduled = TRUE AND is_published = FALSE
		ORDER BY scheduled_for DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectScheduledTweets(rows)
}

func (r *scheduledTweetRepository) ListScheduledByAccount(ctx context.Context, accountID, userID int64) ([]*models.ScheduledTweet, error) {
	query := `
		SELECT ` + scheduledTweetColumns + `
		FROM scheduled_tweets
		WHERE account_id = $1 AND user_id = $2 AND is_scheduled = TRUE AND is_published = FALSE
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectScheduledTweets(rows)
}

// ListOverdue finds pending rows whose scheduled instant passed before
// the cutoff. Used by the reconcile sweep to catch lost delayed jobs.
func (r *scheduledTweetRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]*models.ScheduledTweet, error) {
	query := `
		SELECT ` + scheduledTweetColumns + `
		FROM scheduled_tweets
		WHERE is_scheduled = TRUE AND is_published = FALSE AND scheduled_for < $1
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectScheduledTweets(rows)
}

func collectScheduledTweets(rows *sql.Rows) ([]*models.ScheduledTweet, error) {
	var tweets []*models.ScheduledTweet
	for rows.Next() {
		t, err := scanScheduledTweet(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tweets = append(tweets, t)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return tweets, nil
}

// UpdateGuarded writes content, media, schedule instant and the new job
// id, but only if the row still carries the job id the caller read.
// A false return means a concurrent update or cancel got there first.
func (r *scheduledTweetRepository) UpdateGuarded(ctx context.Context, t *models.ScheduledTweet, expectedJobID string) (bool, error) {
	query := `
		UPDATE scheduled_tweets
		SET content = $1,
			media_ids = $2,
			scheduled_unix = $3,
			scheduled_for = $4,
			delayed_job_id = $5,
			updated_at = $6
		WHERE id = $7 AND delayed_job_id = $8 AND is_scheduled = TRUE AND is_published = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, t.Content, pq.Array(t.MediaIDs),
		t.ScheduledUnix, t.ScheduledFor, t.DelayedJobID, time.Now(), t.ID, expectedJobID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *scheduledTweetRepository) RemoveGuarded(ctx context.Context, id, expectedJobID string) (bool, error) {
	query := `DELETE FROM scheduled_tweets WHERE id = $1 AND delayed_job_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, expectedJobID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *scheduledTweetRepository) RemoveByAccount(ctx context.Context, accountID, userID int64) error {
	query := `
		DELETE FROM scheduled_tweets
		WHERE account_id = $1 AND user_id = $2 AND is_scheduled = TRUE AND is_published = FALSE
	`
	_, err := r.db.ExecContext(ctx, query, accountID, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPublished flips is_published once. A false return means another
// delivery of the same job already published the tweet.
func (r *scheduledTweetRepository) MarkPublished(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE scheduled_tweets
		SET is_published = TRUE, updated_at = $1
		WHERE id = $2 AND is_published = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}
