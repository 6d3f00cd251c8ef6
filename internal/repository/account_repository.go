package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/GapJohn23/profferex/internal/models"
)

type TwitterAccountRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, a *models.TwitterAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.TwitterAccount, error)
	GetByExternalID(ctx context.Context, userID int64, accountID string) (*models.TwitterAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.TwitterAccount, error)
	Remove(ctx context.Context, id int64) error
}

type twitterAccountRepository struct {
	db *sql.DB
}

func NewTwitterAccountRepository(db *sql.DB) TwitterAccountRepository {
	return &twitterAccountRepository{db: db}
}

// Upsert inserts the linked account or, when the user re-links the same
// twitter account, refreshes its credentials and profile snapshot. The
// conflict target is the (user_id, account_id, provider) unique tuple.
func (r *twitterAccountRepository) Upsert(ctx context.Context, tx *sql.Tx, a *models.TwitterAccount) (int64, error) {
	var err error
	var id int64

	query := `
		INSERT INTO twitter_accounts(
			user_id,
			provider,
			account_id,
			username,
			display_name,
			profile_image_url,
			verified,
			access_token,
			access_secret
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, account_id, provider) DO UPDATE
		SET username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			profile_image_url = EXCLUDED.profile_image_url,
			verified = EXCLUDED.verified,
			access_token = EXCLUDED.access_token,
			access_secret = EXCLUDED.access_secret,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	if tx != nil {
		err = tx.QueryRowContext(ctx, query,
			a.UserID, a.Provider, a.AccountID, a.Username, a.DisplayName,
			a.ProfileImage, a.Verified, a.AccessToken, a.AccessSecret,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query,
			a.UserID, a.Provider, a.AccountID, a.Username, a.DisplayName,
			a.ProfileImage, a.Verified, a.AccessToken, a.AccessSecret,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *twitterAccountRepository) GetByID(ctx context.Context, id int64) (*models.TwitterAccount, error) {
	query := `
		SELECT id, user_id, provider, account_id, username, display_name,
			profile_image_url, verified, access_token, access_secret, created_at, updated_at
		FROM twitter_accounts WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var a models.TwitterAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.AccountID, &a.Username, &a.DisplayName,
		&a.ProfileImage, &a.Verified, &a.AccessToken, &a.AccessSecret, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &a, nil
}

func (r *twitterAccountRepository) GetByExternalID(ctx context.Context, userID int64, accountID string) (*models.TwitterAccount, error) {
	query := `
		SELECT id, user_id, provider, account_id, username, display_name,
			profile_image_url, verified, access_token, access_secret, created_at, updated_at
		FROM twitter_accounts
		WHERE user_id = $1 AND account_id = $2 AND provider = $3
	`
	row := r.db.QueryRowContext(ctx, query, userID, accountID, models.ProviderTwitter)

	var a models.TwitterAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.AccountID, &a.Username, &a.DisplayName,
		&a.ProfileImage, &a.Verified, &a.AccessToken, &a.AccessSecret, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &a, nil
}

// ListByUserID returns accounts in creation order. The resolver's
// "first account" fallback depends on this order being stable.
func (r *twitterAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.TwitterAccount, error) {
	query := `
		SELECT id, user_id, provider, account_id, username, display_name,
			profile_image_url, verified, access_token, access_secret, created_at, updated_at
		FROM twitter_accounts
		WHERE user_id = $1 AND provider = $2
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.ProviderTwitter)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.TwitterAccount
	for rows.Next() {
		var a models.TwitterAccount
		err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.AccountID, &a.Username, &a.DisplayName,
			&a.ProfileImage, &a.Verified, &a.AccessToken, &a.AccessSecret, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *twitterAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM twitter_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
