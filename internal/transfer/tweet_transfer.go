package transfer

import "time"

type PostNowRequest struct {
	Text      string   `json:"text"`
	AccountID int64    `json:"account_id,omitempty"`
	MediaIDs  []string `json:"media_ids,omitempty"`
}

type ScheduleRequest struct {
	Text          string   `json:"text"`
	ScheduledUnix int64    `json:"scheduled_unix"`
	AccountID     int64    `json:"account_id,omitempty"`
	MediaIDs      []string `json:"media_ids,omitempty"`
}

type UpdateScheduledRequest struct {
	TweetID       string   `json:"tweet_id"`
	Text          string   `json:"text"`
	ScheduledUnix int64    `json:"scheduled_unix"`
	MediaIDs      []string `json:"media_ids,omitempty"`
}

type CancelScheduledRequest struct {
	TweetID string `json:"tweet_id"`
}

type UploadMediaRequest struct {
	R2Key string `json:"r2_key"`
}

type SetActiveAccountRequest struct {
	AccountID string `json:"account_id"`
}

type ScheduleResult struct {
	TweetID      string    `json:"tweet_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	AccountID    int64     `json:"account_id"`
}

type ScheduledTweetInfo struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	ScheduledFor  time.Time `json:"scheduled_for"`
	ScheduledUnix int64     `json:"scheduled_unix"`
	MediaIDs      []string  `json:"media_ids"`
	AccountID     int64     `json:"account_id"`
	CreatedAt     time.Time `json:"created_at"`
}
