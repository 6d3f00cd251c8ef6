package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GapJohn23/profferex/internal/transfer"
)

// ErrorKind tags API failures so callers can branch on kind instead of
// scanning message substrings.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthorized
	KindRateLimited
	KindInvalidMedia
	KindTimeout
)

type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string
	ResetAt    time.Time
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return "twitter: unauthorized: " + e.Detail
	case KindRateLimited:
		return "twitter: rate limited until " + e.ResetAt.Format(time.RFC3339)
	case KindInvalidMedia:
		return "twitter: invalid media: " + e.Detail
	case KindTimeout:
		return "twitter: request timed out"
	default:
		return fmt.Sprintf("twitter: api error (%d): %s", e.StatusCode, e.Detail)
	}
}

// newAPIError classifies a non-2xx response from the twitter API.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{Kind: KindUnknown, StatusCode: resp.StatusCode}

	var parsed transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			apiErr.Detail = parsed.Detail
		} else if len(parsed.Errors) > 0 {
			apiErr.Detail = parsed.Errors[0].Message
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Kind = KindUnauthorized
	case http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
			if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
				apiErr.ResetAt = time.Unix(unix, 0)
			}
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(apiErr.Detail), "media") {
			apiErr.Kind = KindInvalidMedia
		}
	}

	return apiErr
}

// UserMessage maps an API error to the message shown to the caller,
// mirroring the upstream wording where one exists.
func UserMessage(err error) string {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindUnauthorized:
		return "Twitter app credentials are invalid. Please check your API key and secret."
	case KindRateLimited:
		return "Rate limit exceeded. Please try again later."
	case KindInvalidMedia:
		return "Failed to process media: " + apiErr.Detail
	case KindTimeout:
		return "Twitter took too long to respond. Please try again."
	default:
		return fmt.Sprintf("Twitter API error (%d): %s", apiErr.StatusCode, apiErr.Detail)
	}
}
