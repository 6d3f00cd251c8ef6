package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dghubble/oauth1"
	oauth1twitter "github.com/dghubble/oauth1/twitter"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/cache"
	"github.com/GapJohn23/profferex/internal/models"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/transfer"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

var (
	ErrLinkExpired = errors.New("Twitter authorization expired. Please try linking the account again.")
	ErrLinkFailed  = errors.New("Failed to create authentication link")
)

// TwitterLinkService runs the add-account handshake. Only the temporary
// request-secret handoff lives here; the signing itself is oauth1's job.
type TwitterLinkService interface {
	CreateLink(ctx context.Context, userID int64) (string, error)
	Callback(ctx context.Context, requestToken, verifier string) error
}

type twitterLinkService struct {
	cfg     config.Config
	oauth   *oauth1.Config
	ar      repository.TwitterAccountRepository
	ac      cache.AccountCache
	factory twitter.ClientFactory
}

func NewTwitterLinkService(
	cfg config.Config,
	ar repository.TwitterAccountRepository,
	ac cache.AccountCache,
	factory twitter.ClientFactory) TwitterLinkService {
	return &twitterLinkService{
		cfg: cfg,
		oauth: &oauth1.Config{
			ConsumerKey:    cfg.TwitterConsumerKey,
			ConsumerSecret: cfg.TwitterConsumerSecret,
			CallbackURL:    cfg.CallbackBaseURL + "/twitter/callback",
			Endpoint:       oauth1twitter.AuthorizeEndpoint,
		},
		ar:      ar,
		ac:      ac,
		factory: factory,
	}
}

func (s *twitterLinkService) CreateLink(ctx context.Context, userID int64) (string, error) {
	requestToken, requestSecret, err := s.oauth.RequestToken()
	if err != nil {
		slog.Info(err.Error())
		return "", ErrLinkFailed
	}

	if err := s.ac.SetOAuthSecret(ctx, requestToken, requestSecret, userID); err != nil {
		return "", ErrLinkFailed
	}

	authorizationURL, err := s.oauth.AuthorizationURL(requestToken)
	if err != nil {
		slog.Info(err.Error())
		return "", ErrLinkFailed
	}

	return authorizationURL.String(), nil
}

func (s *twitterLinkService) Callback(ctx context.Context, requestToken, verifier string) error {
	requestSecret, userID, err := s.ac.TakeOAuthSecret(ctx, requestToken)
	if err != nil {
		return err
	}
	if requestSecret == "" || userID == 0 {
		return ErrLinkExpired
	}

	accessToken, accessSecret, err := s.oauth.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	me, err := s.factory(accessToken, accessSecret).VerifyCredentials(ctx)
	if err != nil {
		slog.Info(err.Error())
		return errors.New(twitter.UserMessage(err))
	}

	encryptedToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedSecret, err := utils.Encrypt([]byte(accessSecret), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	account := &models.TwitterAccount{
		UserID:       userID,
		Provider:     models.ProviderTwitter,
		AccountID:    me.IDStr,
		Username:     me.ScreenName,
		DisplayName:  me.Name,
		ProfileImage: me.ProfileImageURL,
		Verified:     me.Verified,
		AccessToken:  encryptedToken,
		AccessSecret: encryptedSecret,
	}

	id, err := s.ar.Upsert(ctx, nil, account)
	if err != nil {
		return err
	}
	account.ID = id

	view := &transfer.CachedAccount{
		ID:           account.ID,
		AccountID:    account.AccountID,
		Username:     account.Username,
		DisplayName:  account.DisplayName,
		ProfileImage: account.ProfileImage,
		Verified:     account.Verified,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
	if err := s.ac.CacheAccount(ctx, userID, view); err != nil {
		slog.Info(err.Error())
	}

	return nil
}
