package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/scheduler"
	"github.com/GapJohn23/profferex/internal/transfer"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{SecretKey: testSecretKey}
}

// linkedAccount builds an account with encrypted credentials the way the
// callback path stores them.
func linkedAccount(t *testing.T, id int64, externalID string) *models.TwitterAccount {
	t.Helper()

	token, err := utils.Encrypt([]byte("token-"+externalID), []byte(testSecretKey))
	require.NoError(t, err)
	secret, err := utils.Encrypt([]byte("secret-"+externalID), []byte(testSecretKey))
	require.NoError(t, err)

	return &models.TwitterAccount{
		ID:           id,
		UserID:       1,
		Provider:     models.ProviderTwitter,
		AccountID:    externalID,
		AccessToken:  token,
		AccessSecret: secret,
	}
}

type fakeAccountRepo struct {
	accounts []*models.TwitterAccount
	listErr  error
	removed  []int64
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, a *models.TwitterAccount) (int64, error) {
	r.accounts = append(r.accounts, a)
	return int64(len(r.accounts)), nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.TwitterAccount, error) {
	for _, a := range r.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) GetByExternalID(ctx context.Context, userID int64, accountID string) (*models.TwitterAccount, error) {
	for _, a := range r.accounts {
		if a.UserID == userID && a.AccountID == accountID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.TwitterAccount, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.TwitterAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	r.removed = append(r.removed, id)
	for i, a := range r.accounts {
		if a.ID == id {
			r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
			break
		}
	}
	return nil
}

type fakeTweetRepo struct {
	tweets    map[string]*models.ScheduledTweet
	createErr error
	updateOK  bool
	removeOK  bool
}

func newFakeTweetRepo() *fakeTweetRepo {
	return &fakeTweetRepo{
		tweets:   make(map[string]*models.ScheduledTweet),
		updateOK: true,
		removeOK: true,
	}
}

func (r *fakeTweetRepo) Create(ctx context.Context, tx *sql.Tx, t *models.ScheduledTweet) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.tweets[t.ID] = t
	return nil
}

func (r *fakeTweetRepo) GetByID(ctx context.Context, id string) (*models.ScheduledTweet, error) {
	return r.tweets[id], nil
}

func (r *fakeTweetRepo) GetScheduled(ctx context.Context, id string, userID int64) (*models.ScheduledTweet, error) {
	t, ok := r.tweets[id]
	if !ok || t.UserID != userID || !t.IsScheduled || t.IsPublished {
		return nil, nil
	}
	return t, nil
}

func (r *fakeTweetRepo) ListScheduled(ctx context.Context, userID int64) ([]*models.ScheduledTweet, error) {
	var out []*models.ScheduledTweet
	for _, t := range r.tweets {
		if t.UserID == userID && t.IsScheduled && !t.IsPublished {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTweetRepo) ListScheduledByAccount(ctx context.Context, accountID, userID int64) ([]*models.ScheduledTweet, error) {
	var out []*models.ScheduledTweet
	for _, t := range r.tweets {
		if t.AccountID == accountID && t.UserID == userID && t.IsScheduled && !t.IsPublished {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTweetRepo) ListOverdue(ctx context.Context, cutoff time.Time) ([]*models.ScheduledTweet, error) {
	var out []*models.ScheduledTweet
	for _, t := range r.tweets {
		if t.IsScheduled && !t.IsPublished && t.ScheduledFor.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTweetRepo) UpdateGuarded(ctx context.Context, t *models.ScheduledTweet, expectedJobID string) (bool, error) {
	if !r.updateOK {
		return false, nil
	}
	existing, ok := r.tweets[t.ID]
	if !ok || existing.DelayedJobID != expectedJobID {
		return false, nil
	}
	existing.Content = t.Content
	existing.MediaIDs = t.MediaIDs
	existing.ScheduledUnix = t.ScheduledUnix
	existing.ScheduledFor = t.ScheduledFor
	existing.DelayedJobID = t.DelayedJobID
	return true, nil
}

func (r *fakeTweetRepo) RemoveGuarded(ctx context.Context, id, expectedJobID string) (bool, error) {
	if !r.removeOK {
		return false, nil
	}
	existing, ok := r.tweets[id]
	if !ok || existing.DelayedJobID != expectedJobID {
		return false, nil
	}
	delete(r.tweets, id)
	return true, nil
}

func (r *fakeTweetRepo) RemoveByAccount(ctx context.Context, accountID, userID int64) error {
	for id, t := range r.tweets {
		if t.AccountID == accountID && t.UserID == userID && t.IsScheduled && !t.IsPublished {
			delete(r.tweets, id)
		}
	}
	return nil
}

func (r *fakeTweetRepo) MarkPublished(ctx context.Context, id string) (bool, error) {
	t, ok := r.tweets[id]
	if !ok || t.IsPublished {
		return false, nil
	}
	t.IsPublished = true
	return true, nil
}

type fakeAttemptRepo struct {
	attempts []*models.PublishAttempt
}

func (r *fakeAttemptRepo) Create(ctx context.Context, pa *models.PublishAttempt) (int64, error) {
	r.attempts = append(r.attempts, pa)
	return int64(len(r.attempts)), nil
}

func (r *fakeAttemptRepo) ListByTweetID(ctx context.Context, tweetID string) ([]*models.PublishAttempt, error) {
	var out []*models.PublishAttempt
	for _, a := range r.attempts {
		if a.TweetID == tweetID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCache struct {
	accounts map[string]*transfer.CachedAccount
	activeID string
	secrets  map[string]struct {
		secret string
		userID int64
	}
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		accounts: make(map[string]*transfer.CachedAccount),
		secrets: make(map[string]struct {
			secret string
			userID int64
		}),
	}
}

func (c *fakeCache) ListAccounts(ctx context.Context, userID int64) ([]*transfer.CachedAccount, error) {
	var out []*transfer.CachedAccount
	for _, a := range c.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (c *fakeCache) GetAccount(ctx context.Context, userID int64, accountID string) (*transfer.CachedAccount, error) {
	return c.accounts[accountID], nil
}

func (c *fakeCache) CacheAccount(ctx context.Context, userID int64, account *transfer.CachedAccount) error {
	c.accounts[account.AccountID] = account
	return nil
}

func (c *fakeCache) GetActiveAccountID(ctx context.Context, userID int64) (string, error) {
	return c.activeID, nil
}

func (c *fakeCache) SetActiveAccount(ctx context.Context, userID int64, accountID string) error {
	c.activeID = accountID
	return nil
}

func (c *fakeCache) RemoveAccount(ctx context.Context, userID int64, accountID, username string) error {
	delete(c.accounts, accountID)
	if c.activeID == accountID {
		c.activeID = ""
	}
	return nil
}

func (c *fakeCache) SetOAuthSecret(ctx context.Context, requestToken, requestSecret string, userID int64) error {
	c.secrets[requestToken] = struct {
		secret string
		userID int64
	}{requestSecret, userID}
	return nil
}

func (c *fakeCache) TakeOAuthSecret(ctx context.Context, requestToken string) (string, int64, error) {
	entry, ok := c.secrets[requestToken]
	if !ok {
		return "", 0, nil
	}
	delete(c.secrets, requestToken)
	return entry.secret, entry.userID, nil
}

type fakeScheduler struct {
	publishErr error
	cancelErr  map[string]error

	published []string // job ids in creation order
	cancelled []string
	nextJob   int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{cancelErr: make(map[string]error)}
}

func (s *fakeScheduler) Publish(ctx context.Context, tweetID string, notBefore time.Time) (string, error) {
	if s.publishErr != nil {
		return "", s.publishErr
	}
	s.nextJob++
	jobID := fmt.Sprintf("job-%d", s.nextJob)
	s.published = append(s.published, jobID)
	return jobID, nil
}

func (s *fakeScheduler) Cancel(ctx context.Context, jobID string) error {
	if err, ok := s.cancelErr[jobID]; ok {
		return err
	}
	s.cancelled = append(s.cancelled, jobID)
	return nil
}

var _ scheduler.Scheduler = (*fakeScheduler)(nil)

type fakeTwitterClient struct {
	verifyResp *transfer.VerifyCredentialsResponse
	verifyErr  error
	mediaID    string
	mediaErr   error
	tweetID    string
	tweetErr   error

	postedText  string
	postedMedia []string
}

func (c *fakeTwitterClient) VerifyCredentials(ctx context.Context) (*transfer.VerifyCredentialsResponse, error) {
	return c.verifyResp, c.verifyErr
}

func (c *fakeTwitterClient) UploadMedia(ctx context.Context, media []byte, mimeType string) (string, error) {
	return c.mediaID, c.mediaErr
}

func (c *fakeTwitterClient) PostTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	c.postedText = text
	c.postedMedia = mediaIDs
	return c.tweetID, c.tweetErr
}

func fakeFactory(client *fakeTwitterClient) twitter.ClientFactory {
	return func(accessToken, accessSecret string) twitter.Client {
		return client
	}
}
