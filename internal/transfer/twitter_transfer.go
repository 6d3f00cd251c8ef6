package transfer

import "time"

// VerifyCredentialsResponse is the v1.1 account/verify_credentials shape,
// trimmed to the fields the profile enricher reads.
type VerifyCredentialsResponse struct {
	IDStr           string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url_https"`
	Verified        bool   `json:"verified"`
}

type MediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

type TweetRequest struct {
	Text  string      `json:"text"`
	Media *TweetMedia `json:"media,omitempty"`
}

type TweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type TweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// TwitterErrorResponse covers both the v1.1 errors array and the v2
// detail field; whichever is present wins.
type TwitterErrorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// TwitterProfile is the enricher's output. Always usable, possibly
// synthetic when the live fetch failed.
type TwitterProfile struct {
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	ProfileImage string `json:"profile_image"`
	Verified     bool   `json:"verified"`
}

// CachedAccount is the denormalized account view served from redis.
type CachedAccount struct {
	ID           int64     `json:"id"`
	AccountID    string    `json:"account_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	ProfileImage string    `json:"profile_image"`
	Verified     bool      `json:"verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
