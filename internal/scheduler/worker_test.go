package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/transfer"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

const workerTestKey = "0123456789abcdef0123456789abcdef"

type workerTweetRepo struct {
	tweets map[string]*models.ScheduledTweet
}

func (r *workerTweetRepo) Create(ctx context.Context, tx *sql.Tx, t *models.ScheduledTweet) error {
	r.tweets[t.ID] = t
	return nil
}

func (r *workerTweetRepo) GetByID(ctx context.Context, id string) (*models.ScheduledTweet, error) {
	return r.tweets[id], nil
}

func (r *workerTweetRepo) GetScheduled(ctx context.Context, id string, userID int64) (*models.ScheduledTweet, error) {
	return r.tweets[id], nil
}

func (r *workerTweetRepo) ListScheduled(ctx context.Context, userID int64) ([]*models.ScheduledTweet, error) {
	return nil, nil
}

func (r *workerTweetRepo) ListScheduledByAccount(ctx context.Context, accountID, userID int64) ([]*models.ScheduledTweet, error) {
	return nil, nil
}

func (r *workerTweetRepo) ListOverdue(ctx context.Context, cutoff time.Time) ([]*models.ScheduledTweet, error) {
	return nil, nil
}

func (r *workerTweetRepo) UpdateGuarded(ctx context.Context, t *models.ScheduledTweet, expectedJobID string) (bool, error) {
	return false, nil
}

func (r *workerTweetRepo) RemoveGuarded(ctx context.Context, id, expectedJobID string) (bool, error) {
	return false, nil
}

func (r *workerTweetRepo) RemoveByAccount(ctx context.Context, accountID, userID int64) error {
	return nil
}

func (r *workerTweetRepo) MarkPublished(ctx context.Context, id string) (bool, error) {
	t, ok := r.tweets[id]
	if !ok || t.IsPublished {
		return false, nil
	}
	t.IsPublished = true
	return true, nil
}

type workerAccountRepo struct {
	accounts map[int64]*models.TwitterAccount
}

func (r *workerAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, a *models.TwitterAccount) (int64, error) {
	return 0, nil
}

func (r *workerAccountRepo) GetByID(ctx context.Context, id int64) (*models.TwitterAccount, error) {
	return r.accounts[id], nil
}

func (r *workerAccountRepo) GetByExternalID(ctx context.Context, userID int64, accountID string) (*models.TwitterAccount, error) {
	return nil, nil
}

func (r *workerAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.TwitterAccount, error) {
	return nil, nil
}

func (r *workerAccountRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type workerAttemptRepo struct {
	attempts []*models.PublishAttempt
}

func (r *workerAttemptRepo) Create(ctx context.Context, pa *models.PublishAttempt) (int64, error) {
	r.attempts = append(r.attempts, pa)
	return int64(len(r.attempts)), nil
}

func (r *workerAttemptRepo) ListByTweetID(ctx context.Context, tweetID string) ([]*models.PublishAttempt, error) {
	return r.attempts, nil
}

type workerClient struct {
	tweetID string
	err     error
	posted  int
}

func (c *workerClient) VerifyCredentials(ctx context.Context) (*transfer.VerifyCredentialsResponse, error) {
	return nil, nil
}

func (c *workerClient) UploadMedia(ctx context.Context, media []byte, mimeType string) (string, error) {
	return "", nil
}

func (c *workerClient) PostTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	c.posted++
	return c.tweetID, c.err
}

func newWorkerForTest(t *testing.T) (*Worker, *workerTweetRepo, *workerAttemptRepo, *workerClient) {
	t.Helper()

	token, err := utils.Encrypt([]byte("token"), []byte(workerTestKey))
	require.NoError(t, err)
	secret, err := utils.Encrypt([]byte("secret"), []byte(workerTestKey))
	require.NoError(t, err)

	tr := &workerTweetRepo{tweets: map[string]*models.ScheduledTweet{
		"t1": {
			ID:          "t1",
			UserID:      1,
			AccountID:   10,
			Content:     "hello",
			IsScheduled: true,
		},
	}}
	ar := &workerAccountRepo{accounts: map[int64]*models.TwitterAccount{
		10: {
			ID:           10,
			UserID:       1,
			AccountID:    "111",
			AccessToken:  token,
			AccessSecret: secret,
		},
	}}
	pa := &workerAttemptRepo{}
	client := &workerClient{tweetID: "posted-1"}

	factory := func(accessToken, accessSecret string) twitter.Client { return client }
	return NewWorker(tr, ar, pa, factory, workerTestKey), tr, pa, client
}

func TestPublishTweet(t *testing.T) {
	t.Parallel()

	w, tr, pa, client := newWorkerForTest(t)

	err := w.PublishTweet(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 1, client.posted)
	assert.True(t, tr.tweets["t1"].IsPublished)
	require.Len(t, pa.attempts, 1)
	assert.Equal(t, "posted-1", pa.attempts[0].PostedTweetID)
	assert.Empty(t, pa.attempts[0].ErrorMessage)
}

func TestPublishTweetMissingRowAcks(t *testing.T) {
	t.Parallel()

	w, _, pa, client := newWorkerForTest(t)

	// Cancelled or deleted after the job was enqueued.
	err := w.PublishTweet(context.Background(), "gone")
	require.NoError(t, err)
	assert.Zero(t, client.posted)
	assert.Empty(t, pa.attempts)
}

func TestPublishTweetAlreadyPublishedAcks(t *testing.T) {
	t.Parallel()

	w, tr, _, client := newWorkerForTest(t)
	tr.tweets["t1"].IsPublished = true

	err := w.PublishTweet(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, client.posted)
}

func TestPublishTweetMissingAccountAcks(t *testing.T) {
	t.Parallel()

	w, tr, pa, client := newWorkerForTest(t)
	tr.tweets["t1"].AccountID = 99

	err := w.PublishTweet(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, client.posted)
	require.Len(t, pa.attempts, 1)
	assert.NotEmpty(t, pa.attempts[0].ErrorMessage)
}

func TestPublishTweetUnauthorizedDoesNotRetry(t *testing.T) {
	t.Parallel()

	w, tr, pa, client := newWorkerForTest(t)
	client.err = &twitter.APIError{Kind: twitter.KindUnauthorized, StatusCode: 401}

	err := w.PublishTweet(context.Background(), "t1")
	require.NoError(t, err)

	assert.False(t, tr.tweets["t1"].IsPublished)
	require.Len(t, pa.attempts, 1)
	assert.NotEmpty(t, pa.attempts[0].ErrorMessage)
}

func TestPublishTweetRateLimitedRetries(t *testing.T) {
	t.Parallel()

	w, tr, _, client := newWorkerForTest(t)
	client.err = &twitter.APIError{Kind: twitter.KindRateLimited, StatusCode: 429}

	err := w.PublishTweet(context.Background(), "t1")
	require.Error(t, err)
	assert.False(t, tr.tweets["t1"].IsPublished)
}

func TestPublishTweetTransientErrorRetries(t *testing.T) {
	t.Parallel()

	w, _, _, client := newWorkerForTest(t)
	client.err = errors.New("connection reset")

	err := w.PublishTweet(context.Background(), "t1")
	require.Error(t, err)
}
