package service

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/cache"
	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/scheduler"
	"github.com/GapJohn23/profferex/internal/transfer"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

const (
	maxTweetLength = 280

	minScheduleLeadMs = 60_000
	maxScheduleSpan   = 10 * 365 * 24 * time.Hour
)

var (
	ErrTweetEmpty   = errors.New("Tweet cannot be empty")
	ErrTweetTooLong = errors.New("Tweet exceeds 280 characters")

	ErrScheduleTooSoon = errors.New("Schedule time must be at least 1 minute in the future")
	ErrScheduleTooFar  = errors.New("Schedule time cannot be more than 10 years in the future")

	ErrScheduledTweetNotFound = errors.New("Scheduled tweet not found")
	ErrScheduleFailed         = errors.New("Failed to schedule tweet")
	ErrUpdateFailed           = errors.New("Failed to update scheduled tweet")
	ErrCancelExistingFailed   = errors.New("Failed to cancel existing scheduled tweet")
	ErrCancelFailed           = errors.New("Failed to cancel scheduled tweet")
	ErrConcurrentModification = errors.New("Scheduled tweet was modified concurrently")
)

type TweetService interface {
	PostNow(ctx context.Context, userID int64, req *transfer.PostNowRequest) (string, error)
	Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*transfer.ScheduleResult, error)
	ListScheduled(ctx context.Context, userID int64) ([]*transfer.ScheduledTweetInfo, error)
	UpdateScheduled(ctx context.Context, userID int64, req *transfer.UpdateScheduledRequest) (*transfer.ScheduleResult, error)
	CancelScheduled(ctx context.Context, userID int64, tweetID string) error
	PublishHistory(ctx context.Context, userID int64, tweetID string) ([]*models.PublishAttempt, error)
}

type tweetService struct {
	cfg     config.Config
	tr      repository.ScheduledTweetRepository
	ar      repository.TwitterAccountRepository
	pa      repository.PublishAttemptRepository
	ac      cache.AccountCache
	sched   scheduler.Scheduler
	factory twitter.ClientFactory
}

func NewTweetService(
	cfg config.Config,
	tr repository.ScheduledTweetRepository,
	ar repository.TwitterAccountRepository,
	pa repository.PublishAttemptRepository,
	ac cache.AccountCache,
	sched scheduler.Scheduler,
	factory twitter.ClientFactory) TweetService {
	return &tweetService{
		cfg:     cfg,
		tr:      tr,
		ar:      ar,
		pa:      pa,
		ac:      ac,
		sched:   sched,
		factory: factory,
	}
}

func validateTweetText(text string) error {
	if text == "" {
		return ErrTweetEmpty
	}
	if utf8.RuneCountInString(text) > maxTweetLength {
		return ErrTweetTooLong
	}
	return nil
}

// validateScheduleTime enforces the window before any side effect:
// strictly more than one minute out, at most ten years out.
func validateScheduleTime(scheduledUnix int64) error {
	now := time.Now()
	scheduledMs := scheduledUnix * 1000

	if scheduledMs <= now.UnixMilli()+minScheduleLeadMs {
		return ErrScheduleTooSoon
	}
	if scheduledMs > now.Add(maxScheduleSpan).UnixMilli() {
		return ErrScheduleTooFar
	}
	return nil
}

// resolveTarget loads the caller's accounts and applies the resolver
// fallback chain. Cache failures on the active pointer degrade to "no
// active account" rather than failing the operation.
func (s *tweetService) resolveTarget(ctx context.Context, userID, explicitID int64) (*models.TwitterAccount, error) {
	accounts, err := s.ar.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	activeID, err := s.ac.GetActiveAccountID(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		activeID = ""
	}

	return ResolveAccount(explicitID, activeID, accounts)
}

func (s *tweetService) accountClient(account *models.TwitterAccount) (twitter.Client, error) {
	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	accessSecret, err := utils.Decrypt(account.AccessSecret, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	return s.factory(accessToken, accessSecret), nil
}

func (s *tweetService) PostNow(ctx context.Context, userID int64, req *transfer.PostNowRequest) (string, error) {
	if err := validateTweetText(req.Text); err != nil {
		return "", err
	}

	target, err := s.resolveTarget(ctx, userID, req.AccountID)
	if err != nil {
		return "", err
	}

	client, err := s.accountClient(target)
	if err != nil {
		return "", err
	}

	postedID, err := client.PostTweet(ctx, req.Text, req.MediaIDs)
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New(twitter.UserMessage(err))
	}

	return postedID, nil
}

func (s *tweetService) Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*transfer.ScheduleResult, error) {
	if err := validateTweetText(req.Text); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, userID, req.AccountID)
	if err != nil {
		return nil, err
	}

	if err := validateScheduleTime(req.ScheduledUnix); err != nil {
		return nil, err
	}

	tweetID, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrScheduleFailed
	}

	mediaIDs := req.MediaIDs
	if mediaIDs == nil {
		mediaIDs = []string{}
	}

	// Phase 1: the delayed-delivery job; phase 2: the durable row.
	notBefore := time.Unix(req.ScheduledUnix, 0)
	jobID, err := s.sched.Publish(ctx, tweetID, notBefore)
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrScheduleFailed
	}

	tweet := &models.ScheduledTweet{
		ID:            tweetID,
		UserID:        userID,
		AccountID:     target.ID,
		Content:       req.Text,
		MediaIDs:      mediaIDs,
		IsScheduled:   true,
		IsPublished:   false,
		ScheduledUnix: req.ScheduledUnix * 1000,
		ScheduledFor:  time.Unix(req.ScheduledUnix, 0),
		DelayedJobID:  jobID,
	}

	if err := s.tr.Create(ctx, nil, tweet); err != nil {
		// The job exists but the row does not; retire the job so it
		// cannot fire against nothing. Compensation failure is logged
		// only, the caller still sees the original failure.
		if cancelErr := s.sched.Cancel(ctx, jobID); cancelErr != nil && cancelErr != scheduler.ErrJobNotFound {
			log.Printf("Failed to cleanup delayed job %s: %v", jobID, cancelErr)
		}
		return nil, ErrScheduleFailed
	}

	return &transfer.ScheduleResult{
		TweetID:      tweetID,
		ScheduledFor: tweet.ScheduledFor,
		AccountID:    target.ID,
	}, nil
}

func (s *tweetService) ListScheduled(ctx context.Context, userID int64) ([]*transfer.ScheduledTweetInfo, error) {
	accounts, err := s.ar.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	tweets, err := s.tr.ListScheduled(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]*transfer.ScheduledTweetInfo, 0, len(tweets))
	for _, t := range tweets {
		infos = append(infos, &transfer.ScheduledTweetInfo{
			ID:            t.ID,
			Content:       t.Content,
			ScheduledFor:  t.ScheduledFor,
			ScheduledUnix: t.ScheduledUnix,
			MediaIDs:      t.MediaIDs,
			AccountID:     t.AccountID,
			CreatedAt:     t.CreatedAt,
		})
	}

	return infos, nil
}

func (s *tweetService) UpdateScheduled(ctx context.Context, userID int64, req *transfer.UpdateScheduledRequest) (*transfer.ScheduleResult, error) {
	existing, err := s.tr.GetScheduled(ctx, req.TweetID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrScheduledTweetNotFound
	}

	if err := validateTweetText(req.Text); err != nil {
		return nil, err
	}
	if err := validateScheduleTime(req.ScheduledUnix); err != nil {
		return nil, err
	}

	// Retire the old job before creating its replacement. Aborting here
	// keeps the invariant that at most one live job exists per tweet.
	if existing.DelayedJobID != "" {
		if err := s.sched.Cancel(ctx, existing.DelayedJobID); err != nil && err != scheduler.ErrJobNotFound {
			slog.Info(err.Error())
			return nil, ErrCancelExistingFailed
		}
	}

	notBefore := time.Unix(req.ScheduledUnix, 0)
	jobID, err := s.sched.Publish(ctx, req.TweetID, notBefore)
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrUpdateFailed
	}

	mediaIDs := req.MediaIDs
	if mediaIDs == nil {
		mediaIDs = []string{}
	}

	updated := &models.ScheduledTweet{
		ID:            req.TweetID,
		Content:       req.Text,
		MediaIDs:      mediaIDs,
		ScheduledUnix: req.ScheduledUnix * 1000,
		ScheduledFor:  time.Unix(req.ScheduledUnix, 0),
		DelayedJobID:  jobID,
	}

	ok, err := s.tr.UpdateGuarded(ctx, updated, existing.DelayedJobID)
	if err != nil || !ok {
		if cancelErr := s.sched.Cancel(ctx, jobID); cancelErr != nil && cancelErr != scheduler.ErrJobNotFound {
			log.Printf("Failed to cleanup delayed job %s: %v", jobID, cancelErr)
		}
		if err != nil {
			return nil, ErrUpdateFailed
		}
		return nil, ErrConcurrentModification
	}

	return &transfer.ScheduleResult{
		TweetID:      req.TweetID,
		ScheduledFor: updated.ScheduledFor,
		AccountID:    existing.AccountID,
	}, nil
}

func (s *tweetService) CancelScheduled(ctx context.Context, userID int64, tweetID string) error {
	existing, err := s.tr.GetScheduled(ctx, tweetID, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrScheduledTweetNotFound
	}

	// Never delete the row while the job might still fire; a failed
	// cancel leaves everything untouched so the caller can retry.
	if existing.DelayedJobID != "" {
		if err := s.sched.Cancel(ctx, existing.DelayedJobID); err != nil && err != scheduler.ErrJobNotFound {
			slog.Info(err.Error())
			return ErrCancelFailed
		}
	}

	ok, err := s.tr.RemoveGuarded(ctx, tweetID, existing.DelayedJobID)
	if err != nil {
		return ErrCancelFailed
	}
	if !ok {
		return ErrConcurrentModification
	}

	return nil
}

// PublishHistory lists every delivery attempt recorded for the tweet,
// including rows that already published or exhausted retries.
func (s *tweetService) PublishHistory(ctx context.Context, userID int64, tweetID string) ([]*models.PublishAttempt, error) {
	tweet, err := s.tr.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet == nil || tweet.UserID != userID {
		return nil, ErrScheduledTweetNotFound
	}

	return s.pa.ListByTweetID(ctx, tweetID)
}
