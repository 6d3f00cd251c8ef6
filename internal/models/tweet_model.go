package models

import "time"

// ScheduledTweet couples a durable row to the delayed-delivery job that
// will eventually fire the publish endpoint. DelayedJobID is empty only
// between row creation and the first job submission.
type ScheduledTweet struct {
	ID            string    `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	AccountID     int64     `db:"account_id" json:"account_id"`
	Content       string    `db:"content" json:"content"`
	MediaIDs      []string  `db:"media_ids" json:"media_ids"`
	IsScheduled   bool      `db:"is_scheduled" json:"is_scheduled"`
	IsPublished   bool      `db:"is_published" json:"is_published"`
	ScheduledUnix int64     `db:"scheduled_unix" json:"scheduled_unix"`
	ScheduledFor  time.Time `db:"scheduled_for" json:"scheduled_for"`
	DelayedJobID  string    `db:"delayed_job_id" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type PublishAttempt struct {
	ID            int64     `db:"id" json:"id"`
	TweetID       string    `db:"tweet_id" json:"tweet_id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	AccountID     int64     `db:"account_id" json:"account_id"`
	PostedTweetID string    `db:"posted_tweet_id" json:"posted_tweet_id"`
	ErrorMessage  string    `db:"error_message" json:"error_message"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
