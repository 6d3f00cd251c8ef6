package config

import (
	"errors"
	"os"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	TwitterConsumerKey    string
	TwitterConsumerSecret string
	CallbackBaseURL       string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	SecretKey             string
	CookieName            string
}

func LoadConfig() *Config {
	return &Config{
		TwitterConsumerKey:    getEnv("TWITTER_CONSUMER_KEY", ""),
		TwitterConsumerSecret: getEnv("TWITTER_CONSUMER_SECRET", ""),
		CallbackBaseURL:       getEnv("CALLBACK_BASE_URL", "http://localhost:3000"),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "session"),
	}
}

// Validate fails at startup rather than on the first request that
// happens to need a missing credential.
func (c *Config) Validate() error {
	if c.TwitterConsumerKey == "" || c.TwitterConsumerSecret == "" {
		return errors.New("twitter app credentials are not configured")
	}
	if c.CallbackBaseURL == "" {
		return errors.New("callback base url is not configured")
	}
	if c.PostgresURI == "" {
		return errors.New("postgres uri is not configured")
	}
	if c.RedisURI == "" {
		return errors.New("redis uri is not configured")
	}
	if len(c.SecretKey) != 32 {
		return errors.New("secret key must be 32 bytes")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
