package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GapJohn23/profferex/internal/transfer"
)

func newTestCache(t *testing.T) (AccountCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewAccountCache(rdb), mr
}

func cachedAccount(accountID, username string) *transfer.CachedAccount {
	return &transfer.CachedAccount{
		ID:          1,
		AccountID:   accountID,
		Username:    username,
		DisplayName: username,
	}
}

func TestCacheAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("111", "alice")))

	got, err := c.GetAccount(ctx, 1, "111")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "111", got.AccountID)
	assert.Equal(t, "alice", got.Username)

	accounts, err := c.ListAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "111", accounts[0].AccountID)
}

func TestGetAccountMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	got, err := c.GetAccount(ctx, 1, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAccountsSelfHealsDanglingIndex(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("111", "alice")))
	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("222", "bob")))

	// Drop one value behind the index's back, as an expiry would.
	mr.Del("twitter:account:1:222")

	accounts, err := c.ListAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "111", accounts[0].AccountID)

	// The dangling set entry is gone, so the next list skips the lookup.
	members, err := mr.SMembers("twitter:accounts:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"111"}, members)
}

func TestActiveAccountPointer(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	id, err := c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, c.SetActiveAccount(ctx, 1, "111"))
	id, err = c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "111", id)

	// Empty id clears the pointer.
	require.NoError(t, c.SetActiveAccount(ctx, 1, ""))
	id, err = c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestActivePointerIsPerUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.SetActiveAccount(ctx, 1, "111"))
	require.NoError(t, c.SetActiveAccount(ctx, 2, "222"))

	id, err := c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "111", id)

	id, err = c.GetActiveAccountID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "222", id)
}

func TestRemoveAccountEvictsEverything(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("111", "alice")))
	require.NoError(t, c.SetActiveAccount(ctx, 1, "111"))

	require.NoError(t, c.RemoveAccount(ctx, 1, "111", "alice"))

	got, err := c.GetAccount(ctx, 1, "111")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.False(t, mr.Exists("twitter:username:1:alice"))

	// The active pointer pointed at the removed account, so it clears.
	id, err := c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestRemoveAccountKeepsUnrelatedActivePointer(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("111", "alice")))
	require.NoError(t, c.CacheAccount(ctx, 1, cachedAccount("222", "bob")))
	require.NoError(t, c.SetActiveAccount(ctx, 1, "222"))

	require.NoError(t, c.RemoveAccount(ctx, 1, "111", "alice"))

	id, err := c.GetActiveAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "222", id)
}

func TestTakeOAuthSecretIsSingleUse(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.SetOAuthSecret(ctx, "req-token", "req-secret", 42))

	secret, userID, err := c.TakeOAuthSecret(ctx, "req-token")
	require.NoError(t, err)
	assert.Equal(t, "req-secret", secret)
	assert.Equal(t, int64(42), userID)

	// A second exchange of the same token finds nothing.
	secret, userID, err = c.TakeOAuthSecret(ctx, "req-token")
	require.NoError(t, err)
	assert.Empty(t, secret)
	assert.Zero(t, userID)
}

func TestTakeOAuthSecretExpired(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SetOAuthSecret(ctx, "req-token", "req-secret", 42))
	mr.FastForward(oauthSecretTTL + 1)

	secret, userID, err := c.TakeOAuthSecret(ctx, "req-token")
	require.NoError(t, err)
	assert.Empty(t, secret)
	assert.Zero(t, userID)
}
