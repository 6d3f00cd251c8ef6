package models

import "time"

// ProviderTwitter is the only provider this module links. The column
// exists so the unique constraint matches the wider account table shape.
const ProviderTwitter = "twitter"

type TwitterAccount struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Provider     string    `db:"provider" json:"provider"`
	AccountID    string    `db:"account_id" json:"account_id"`
	Username     string    `db:"username" json:"username"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	ProfileImage string    `db:"profile_image_url" json:"profile_image"`
	Verified     bool      `db:"verified" json:"verified"`
	AccessToken  string    `db:"access_token" json:"-"`
	AccessSecret string    `db:"access_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasCredentials reports whether the stored (encrypted) token pair is
// present. Accounts without it cannot act against the twitter API.
func (a *TwitterAccount) HasCredentials() bool {
	return a.AccessToken != "" && a.AccessSecret != ""
}
