package scheduler

import (
	"context"
	"errors"
	"time"
)

const TaskTypePublishTweet = "tweet:publish"

type PublishTweetPayload struct {
	TweetID string `json:"tweet_id"`
}

// ErrJobNotFound is returned by Cancel when the job already fired or
// was cancelled earlier. Callers treat it as a successful cancel.
var ErrJobNotFound = errors.New("delayed job not found")

// Scheduler is the delayed-delivery collaborator: an at-least-once job
// that fires the publish path for one tweet id at or after notBefore.
type Scheduler interface {
	Publish(ctx context.Context, tweetID string, notBefore time.Time) (string, error)
	Cancel(ctx context.Context, jobID string) error
}
