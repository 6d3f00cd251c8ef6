package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const publishQueue = "default"

type asynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewAsynqScheduler(client *asynq.Client, inspector *asynq.Inspector) Scheduler {
	return &asynqScheduler{client: client, inspector: inspector}
}

// Publish enqueues the task under a freshly generated task id and
// returns that id, so the caller can retire the job later.
func (s *asynqScheduler) Publish(ctx context.Context, tweetID string, notBefore time.Time) (string, error) {
	payload, err := json.Marshal(PublishTweetPayload{TweetID: tweetID})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	jobID, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishTweet, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.TaskID(jobID),
		asynq.ProcessAt(notBefore),
		asynq.Queue(publishQueue),
		asynq.MaxRetry(5),
	)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return info.ID, nil
}

func (s *asynqScheduler) Cancel(ctx context.Context, jobID string) error {
	err := s.inspector.DeleteTask(publishQueue, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return ErrJobNotFound
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}
