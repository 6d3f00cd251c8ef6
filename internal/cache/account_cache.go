package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GapJohn23/profferex/internal/transfer"
)

// oauthSecretTTL bounds how long a pending twitter link handshake can be
// replayed.
const oauthSecretTTL = 10 * time.Minute

// AccountCache mirrors a subset of twitter_accounts rows per user plus
// the per-user active-account pointer. It is a pure fast path: a miss or
// a redis failure must never be treated as authoritative absence, the
// caller falls back to the database and repopulates.
type AccountCache interface {
	ListAccounts(ctx context.Context, userID int64) ([]*transfer.CachedAccount, error)
	GetAccount(ctx context.Context, userID int64, accountID string) (*transfer.CachedAccount, error)
	CacheAccount(ctx context.Context, userID int64, account *transfer.CachedAccount) error
	GetActiveAccountID(ctx context.Context, userID int64) (string, error)
	SetActiveAccount(ctx context.Context, userID int64, accountID string) error
	RemoveAccount(ctx context.Context, userID int64, accountID, username string) error
	SetOAuthSecret(ctx context.Context, requestToken, requestSecret string, userID int64) error
	TakeOAuthSecret(ctx context.Context, requestToken string) (string, int64, error)
}

type accountCache struct {
	rdb *redis.Client
}

func NewAccountCache(rdb *redis.Client) AccountCache {
	return &accountCache{rdb: rdb}
}

func accountKey(userID int64, accountID string) string {
	return fmt.Sprintf("twitter:account:%d:%s", userID, accountID)
}

func accountSetKey(userID int64) string {
	return fmt.Sprintf("twitter:accounts:%d", userID)
}

func activeKey(userID int64) string {
	return fmt.Sprintf("twitter:active:%d", userID)
}

func usernameKey(userID int64, username string) string {
	return fmt.Sprintf("twitter:username:%d:%s", userID, username)
}

func (c *accountCache) ListAccounts(ctx context.Context, userID int64) ([]*transfer.CachedAccount, error) {
	ids, err := c.rdb.SMembers(ctx, accountSetKey(userID)).Result()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var accounts []*transfer.CachedAccount
	for _, id := range ids {
		account, err := c.GetAccount(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if account == nil {
			// Index entry outlived its value (expiry or partial
			// eviction); drop it so the set self-heals.
			c.rdb.SRem(ctx, accountSetKey(userID), id)
			continue
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (c *accountCache) GetAccount(ctx context.Context, userID int64, accountID string) (*transfer.CachedAccount, error) {
	data, err := c.rdb.Get(ctx, accountKey(userID, accountID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var account transfer.CachedAccount
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		slog.Info(err.Error())
		return nil, nil
	}

	return &account, nil
}

func (c *accountCache) CacheAccount(ctx context.Context, userID int64, account *transfer.CachedAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, accountKey(userID, account.AccountID), data, 0)
	pipe.SAdd(ctx, accountSetKey(userID), account.AccountID)
	if account.Username != "" {
		pipe.Set(ctx, usernameKey(userID, account.Username), account.AccountID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (c *accountCache) GetActiveAccountID(ctx context.Context, userID int64) (string, error) {
	id, err := c.rdb.Get(ctx, activeKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

// SetActiveAccount stores the pointer; an empty account id clears it.
func (c *accountCache) SetActiveAccount(ctx context.Context, userID int64, accountID string) error {
	if accountID == "" {
		if err := c.rdb.Del(ctx, activeKey(userID)).Err(); err != nil {
			slog.Info(err.Error())
			return err
		}
		return nil
	}

	if err := c.rdb.Set(ctx, activeKey(userID), accountID, 0).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RemoveAccount evicts the cached view, its set entry and the username
// index. Callers treat failures here as best-effort.
func (c *accountCache) RemoveAccount(ctx context.Context, userID int64, accountID, username string) error {
	keys := []string{accountKey(userID, accountID)}
	if username != "" {
		keys = append(keys, usernameKey(userID, username))
	}

	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, accountSetKey(userID), accountID)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Info(err.Error())
		return err
	}

	active, err := c.GetActiveAccountID(ctx, userID)
	if err == nil && active == accountID {
		if err := c.SetActiveAccount(ctx, userID, ""); err != nil {
			slog.Info(err.Error())
		}
	}

	return nil
}

func (c *accountCache) SetOAuthSecret(ctx context.Context, requestToken, requestSecret string, userID int64) error {
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, "twitter_oauth_secret:"+requestToken, requestSecret, oauthSecretTTL)
	pipe.Set(ctx, "twitter_oauth_user_id:"+requestToken, userID, oauthSecretTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// TakeOAuthSecret reads and deletes the handshake secret, so a request
// token is exchangeable at most once.
func (c *accountCache) TakeOAuthSecret(ctx context.Context, requestToken string) (string, int64, error) {
	secret, err := c.rdb.GetDel(ctx, "twitter_oauth_secret:"+requestToken).Result()
	if err != nil {
		if err == redis.Nil {
			return "", 0, nil
		}
		slog.Info(err.Error())
		return "", 0, err
	}

	userID, err := c.rdb.GetDel(ctx, "twitter_oauth_user_id:"+requestToken).Int64()
	if err != nil {
		if err == redis.Nil {
			return "", 0, nil
		}
		slog.Info(err.Error())
		return "", 0, err
	}

	return secret, userID, nil
}
