package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/h2non/filetype"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/cache"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/twitter"
	"github.com/GapJohn23/profferex/pkg/utils"
)

// Twitter's limit for regular images.
const maxImageSize = 5 * 1024 * 1024

var (
	ErrMediaTypeNotAllowed = errors.New("Only PNG or JPEG images are allowed")
	ErrMediaEmpty          = errors.New("Failed to fetch media from R2")
)

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

type MediaService interface {
	UploadFromR2(ctx context.Context, userID int64, r2Key string) (string, error)
}

type mediaService struct {
	cfg     config.Config
	ar      repository.TwitterAccountRepository
	ac      cache.AccountCache
	storage ObjectStorage
	factory twitter.ClientFactory
}

func NewMediaService(
	cfg config.Config,
	ar repository.TwitterAccountRepository,
	ac cache.AccountCache,
	storage ObjectStorage,
	factory twitter.ClientFactory) MediaService {
	return &mediaService{
		cfg:     cfg,
		ar:      ar,
		ac:      ac,
		storage: storage,
		factory: factory,
	}
}

// resolveMimeType prefers the stored content type and falls back to the
// key extension when the object was uploaded without one.
func resolveMimeType(contentType, key string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	keyLower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(keyLower, ".png"):
		return "image/png"
	case strings.HasSuffix(keyLower, ".jpg"), strings.HasSuffix(keyLower, ".jpeg"):
		return "image/jpeg"
	}
	return contentType
}

// validateImage enforces the forwarding rules: PNG/JPEG only, capped at
// 5 MB, and the declared type must agree with the actual bytes.
func validateImage(data []byte, mimeType string) error {
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return ErrMediaTypeNotAllowed
	}
	if len(data) == 0 {
		return ErrMediaEmpty
	}
	if len(data) > maxImageSize {
		return fmt.Errorf("Image file too large: %dMB. Twitter limit is 5MB.", len(data)/1024/1024)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind.MIME.Value != mimeType {
		return ErrMediaTypeNotAllowed
	}

	return nil
}

func (s *mediaService) UploadFromR2(ctx context.Context, userID int64, r2Key string) (string, error) {
	accounts, err := s.ar.ListByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrNoAccounts
	}

	activeID, err := s.ac.GetActiveAccountID(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
		activeID = ""
	}

	target, err := ResolveAccount(0, activeID, accounts)
	if err != nil {
		return "", err
	}

	contentType, _, err := s.storage.Head(ctx, r2Key)
	if err != nil {
		slog.Info(err.Error())
		return "", ErrMediaEmpty
	}

	mimeType := resolveMimeType(contentType, r2Key)
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return "", ErrMediaTypeNotAllowed
	}

	data, err := s.storage.Get(ctx, r2Key)
	if err != nil {
		slog.Info(err.Error())
		return "", ErrMediaEmpty
	}

	if err := validateImage(data, mimeType); err != nil {
		return "", err
	}

	accessToken, err := utils.Decrypt(target.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}
	accessSecret, err := utils.Decrypt(target.AccessSecret, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	mediaID, err := s.factory(accessToken, accessSecret).UploadMedia(ctx, data, mimeType)
	if err != nil {
		slog.Info(err.Error())
		return "", errors.New(twitter.UserMessage(err))
	}

	return mediaID, nil
}
