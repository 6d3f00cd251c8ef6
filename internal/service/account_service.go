package service

import (
	"context"
	"errors"
	"log"
	"log/slog"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/cache"
	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/scheduler"
	"github.com/GapJohn23/profferex/internal/transfer"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

var (
	ErrAccountNotFound       = errors.New("Account not found or you do not have permission to access it")
	ErrAccountDeleteDenied   = errors.New("Account not found or you do not have permission to delete it")
	ErrAccountDeletionFailed = errors.New("Failed to delete account. Please try again.")
)

type AccountService interface {
	List(ctx context.Context, userID int64) ([]*transfer.CachedAccount, error)
	GetActive(ctx context.Context, userID int64) (*transfer.CachedAccount, error)
	SetActive(ctx context.Context, userID int64, accountID string) error
	Delete(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg     config.Config
	ar      repository.TwitterAccountRepository
	tr      repository.ScheduledTweetRepository
	ac      cache.AccountCache
	sched   scheduler.Scheduler
	factory twitter.ClientFactory
}

func NewAccountService(
	cfg config.Config,
	ar repository.TwitterAccountRepository,
	tr repository.ScheduledTweetRepository,
	ac cache.AccountCache,
	sched scheduler.Scheduler,
	factory twitter.ClientFactory) AccountService {
	return &accountService{
		cfg:     cfg,
		ar:      ar,
		tr:      tr,
		ac:      ac,
		sched:   sched,
		factory: factory,
	}
}

func syntheticUsername(accountID string) string {
	return "user_" + accountID
}

// enrichProfile fetches live profile fields for the account. Any
// failure degrades to a synthetic profile derived from the external
// account id; the fetch error never reaches the caller.
func (s *accountService) enrichProfile(ctx context.Context, account *models.TwitterAccount) *transfer.TwitterProfile {
	profile := &transfer.TwitterProfile{
		Username:    syntheticUsername(account.AccountID),
		DisplayName: syntheticUsername(account.AccountID),
	}

	if !account.HasCredentials() {
		return profile
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return profile
	}
	accessSecret, err := utils.Decrypt(account.AccessSecret, []byte(s.cfg.SecretKey))
	if err != nil {
		return profile
	}

	me, err := s.factory(accessToken, accessSecret).VerifyCredentials(ctx)
	if err != nil {
		slog.Info(err.Error())
		return profile
	}

	if me.ScreenName != "" {
		profile.Username = me.ScreenName
	}
	if me.Name != "" {
		profile.DisplayName = me.Name
	} else if me.ScreenName != "" {
		profile.DisplayName = me.ScreenName
	}
	profile.ProfileImage = me.ProfileImageURL
	profile.Verified = me.Verified

	return profile
}

func (s *accountService) cachedView(account *models.TwitterAccount, profile *transfer.TwitterProfile, isActive bool) *transfer.CachedAccount {
	return &transfer.CachedAccount{
		ID:           account.ID,
		AccountID:    account.AccountID,
		Username:     profile.Username,
		DisplayName:  profile.DisplayName,
		ProfileImage: profile.ProfileImage,
		Verified:     profile.Verified,
		IsActive:     isActive,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

// List serves from the cache when it has anything, otherwise reads the
// database, enriches each account and repopulates the cache.
func (s *accountService) List(ctx context.Context, userID int64) ([]*transfer.CachedAccount, error) {
	activeID, err := s.ac.GetActiveAccountID(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		activeID = ""
	}

	cached, err := s.ac.ListAccounts(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		cached = nil
	}
	if len(cached) > 0 {
		for _, account := range cached {
			account.IsActive = account.AccountID == activeID
		}
		return cached, nil
	}

	accounts, err := s.ar.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return []*transfer.CachedAccount{}, nil
	}

	enriched := make([]*transfer.CachedAccount, 0, len(accounts))
	for _, account := range accounts {
		profile := s.enrichProfile(ctx, account)
		view := s.cachedView(account, profile, account.AccountID == activeID)
		enriched = append(enriched, view)

		if err := s.ac.CacheAccount(ctx, userID, view); err != nil {
			log.Printf("Failed to cache account %s: %v", account.AccountID, err)
		}
	}

	return enriched, nil
}

// GetActive resolves the active pointer to a full view. A pointer to an
// account that no longer exists is cleared and reported as "no active
// account".
func (s *accountService) GetActive(ctx context.Context, userID int64) (*transfer.CachedAccount, error) {
	activeID, err := s.ac.GetActiveAccountID(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil
	}
	if activeID == "" {
		return nil, nil
	}

	cached, err := s.ac.GetAccount(ctx, userID, activeID)
	if err != nil {
		slog.Info(err.Error())
	}
	if cached != nil {
		cached.IsActive = true
		return cached, nil
	}

	account, err := s.ar.GetByExternalID(ctx, userID, activeID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// Stale pointer; self-heal by clearing it.
		if err := s.ac.SetActiveAccount(ctx, userID, ""); err != nil {
			slog.Info(err.Error())
		}
		return nil, nil
	}

	profile := s.enrichProfile(ctx, account)
	view := s.cachedView(account, profile, true)
	if err := s.ac.CacheAccount(ctx, userID, view); err != nil {
		log.Printf("Failed to cache account %s: %v", account.AccountID, err)
	}

	return view, nil
}

func (s *accountService) SetActive(ctx context.Context, userID int64, accountID string) error {
	account, err := s.ar.GetByExternalID(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := s.ac.SetActiveAccount(ctx, userID, accountID); err != nil {
		return err
	}

	// Set-then-verify: the cache has no transactions, so read back
	// within this operation and log any mismatch.
	verified, err := s.ac.GetActiveAccountID(ctx, userID)
	if err != nil || verified != accountID {
		log.Printf("Active account verification mismatch for user %d: set %s, read %s", userID, accountID, verified)
	}

	return nil
}

// Delete cascades: unpublished scheduled rows go first, then the
// account row, then cache eviction. The rows' delayed jobs are
// cancelled best-effort so stale jobs do not fire into nothing; the
// publish worker tolerates the ones that slip through.
func (s *accountService) Delete(ctx context.Context, userID, accountID int64) error {
	account, err := s.ar.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.UserID != userID {
		return ErrAccountDeleteDenied
	}

	username := syntheticUsername(account.AccountID)
	if cached, err := s.ac.GetAccount(ctx, userID, account.AccountID); err == nil && cached != nil && cached.Username != "" {
		username = cached.Username
	}

	pending, err := s.tr.ListScheduledByAccount(ctx, accountID, userID)
	if err != nil {
		return ErrAccountDeletionFailed
	}

	if err := s.tr.RemoveByAccount(ctx, accountID, userID); err != nil {
		return ErrAccountDeletionFailed
	}

	for _, tweet := range pending {
		if tweet.DelayedJobID == "" {
			continue
		}
		if err := s.sched.Cancel(ctx, tweet.DelayedJobID); err != nil && err != scheduler.ErrJobNotFound {
			log.Printf("Failed to cancel delayed job %s for deleted account %d: %v", tweet.DelayedJobID, accountID, err)
		}
	}

	if err := s.ar.Remove(ctx, accountID); err != nil {
		return ErrAccountDeletionFailed
	}

	if err := s.ac.RemoveAccount(ctx, userID, account.AccountID, username); err != nil {
		log.Printf("Failed to evict cached account %s: %v", account.AccountID, err)
	}

	return nil
}
