package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/GapJohn23/profferex/internal/transfer"
)

const (
	verifyCredentialsURL = "https://api.twitter.com/1.1/account/verify_credentials.json"
	mediaUploadURL       = "https://upload.twitter.com/1.1/media/upload.json"
	tweetURL             = "https://api.twitter.com/2/tweets"
)

// Client is a per-account twitter API client built from that account's
// stored user credentials.
type Client interface {
	VerifyCredentials(ctx context.Context) (*transfer.VerifyCredentialsResponse, error)
	UploadMedia(ctx context.Context, media []byte, mimeType string) (string, error)
	PostTweet(ctx context.Context, text string, mediaIDs []string) (string, error)
}

// ClientFactory builds a Client for a decrypted access token pair.
// Services hold the factory so tests can substitute a fake.
type ClientFactory func(accessToken, accessSecret string) Client

func NewClientFactory(consumerKey, consumerSecret string) ClientFactory {
	cfg := oauth1.NewConfig(consumerKey, consumerSecret)
	return func(accessToken, accessSecret string) Client {
		httpClient := cfg.Client(oauth1.NoContext, oauth1.NewToken(accessToken, accessSecret))
		httpClient.Timeout = 30 * time.Second
		return &client{httpClient: httpClient}
	}
}

type client struct {
	httpClient *http.Client
}

func (c *client) VerifyCredentials(ctx context.Context) (*transfer.VerifyCredentialsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyCredentialsURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var user transfer.VerifyCredentialsResponse
	if err := json.Unmarshal(body, &user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &user, nil
}

func (c *client) UploadMedia(ctx context.Context, media []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if _, err := part.Write(media); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if err := writer.WriteField("media_type", mimeType); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if err := writer.Close(); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mediaUploadURL, &buf)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var uploaded transfer.MediaUploadResponse
	if err := json.Unmarshal(body, &uploaded); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return uploaded.MediaIDString, nil
}

func (c *client) PostTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := transfer.TweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &transfer.TweetMedia{MediaIDs: mediaIDs}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tweetURL, bytes.NewReader(data))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var posted transfer.TweetResponse
	if err := json.Unmarshal(body, &posted); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return posted.Data.ID, nil
}

func (c *client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, &APIError{Kind: KindTimeout, Detail: err.Error()}
		}
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp, body)
		slog.Info(apiErr.Error())
		return nil, apiErr
	}

	return body, nil
}
