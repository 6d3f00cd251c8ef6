package service

import (
	"errors"

	"github.com/GapJohn23/profferex/internal/models"
)

var (
	ErrNoAccounts                = errors.New("No connected Twitter accounts")
	ErrSelectedAccountNotFound   = errors.New("Selected account not found")
	ErrAccountMissingCredentials = errors.New("Account is missing credentials")
)

// ResolveAccount picks the account an operation runs as. Selection is a
// fixed fallback chain: explicit internal id, then the active-account
// pointer (matched by external id), then the first linked account.
// A stale active pointer falls through silently; a missing explicit id
// does not. The resolved account must carry credentials.
func ResolveAccount(explicitID int64, activeAccountID string, accounts []*models.TwitterAccount) (*models.TwitterAccount, error) {
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	var target *models.TwitterAccount

	if explicitID != 0 {
		for _, a := range accounts {
			if a.ID == explicitID {
				target = a
				break
			}
		}
		if target == nil {
			return nil, ErrSelectedAccountNotFound
		}
	} else {
		if activeAccountID != "" {
			for _, a := range accounts {
				if a.AccountID == activeAccountID {
					target = a
					break
				}
			}
		}
		if target == nil {
			target = accounts[0]
		}
	}

	if !target.HasCredentials() {
		return nil, ErrAccountMissingCredentials
	}

	return target, nil
}
