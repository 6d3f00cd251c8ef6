package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

// Worker consumes publish tasks. Delivery is at-least-once, so every
// step tolerates rows that are gone or already published.
type Worker struct {
	tr        repository.ScheduledTweetRepository
	ar        repository.TwitterAccountRepository
	pa        repository.PublishAttemptRepository
	factory   twitter.ClientFactory
	secretKey string
}

func NewWorker(
	tr repository.ScheduledTweetRepository,
	ar repository.TwitterAccountRepository,
	pa repository.PublishAttemptRepository,
	factory twitter.ClientFactory,
	secretKey string) *Worker {
	return &Worker{
		tr:        tr,
		ar:        ar,
		pa:        pa,
		factory:   factory,
		secretKey: secretKey,
	}
}

func (w *Worker) HandlePublishTweetTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishTweetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Info(err.Error())
		return err
	}

	return w.PublishTweet(ctx, payload.TweetID)
}

func (w *Worker) PublishTweet(ctx context.Context, tweetID string) error {
	tweet, err := w.tr.GetByID(ctx, tweetID)
	if err != nil {
		return err
	}
	if tweet == nil {
		// Row removed after the job was created (cancel or account
		// deletion raced the delivery). Ack and move on.
		log.Printf("publish task for missing tweet %s, dropping", tweetID)
		return nil
	}
	if tweet.IsPublished {
		log.Printf("tweet %s already published, dropping duplicate delivery", tweetID)
		return nil
	}

	account, err := w.ar.GetByID(ctx, tweet.AccountID)
	if err != nil {
		return err
	}
	if account == nil || !account.HasCredentials() {
		w.recordAttempt(ctx, tweet, "", "account missing or has no credentials")
		return nil
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(w.secretKey))
	if err != nil {
		return err
	}
	accessSecret, err := utils.Decrypt(account.AccessSecret, []byte(w.secretKey))
	if err != nil {
		return err
	}

	client := w.factory(accessToken, accessSecret)
	postedID, err := client.PostTweet(ctx, tweet.Content, tweet.MediaIDs)
	if err != nil {
		w.recordAttempt(ctx, tweet, "", err.Error())
		if apiErr, ok := err.(*twitter.APIError); ok {
			// Bad credentials or rejected media will not heal on
			// retry; rate limits and timeouts might.
			if apiErr.Kind == twitter.KindUnauthorized || apiErr.Kind == twitter.KindInvalidMedia {
				return nil
			}
		}
		return fmt.Errorf("posting tweet %s: %w", tweetID, err)
	}

	flipped, err := w.tr.MarkPublished(ctx, tweet.ID)
	if err != nil {
		return err
	}
	if !flipped {
		log.Printf("tweet %s was published concurrently", tweet.ID)
	}

	w.recordAttempt(ctx, tweet, postedID, "")
	return nil
}

func (w *Worker) recordAttempt(ctx context.Context, tweet *models.ScheduledTweet, postedID, errMsg string) {
	attempt := models.PublishAttempt{
		TweetID:       tweet.ID,
		UserID:        tweet.UserID,
		AccountID:     tweet.AccountID,
		PostedTweetID: postedID,
		ErrorMessage:  errMsg,
	}
	if _, err := w.pa.Create(ctx, &attempt); err != nil {
		log.Printf("Error saving publish attempt for tweet %s: %v", tweet.ID, err)
	}
}
