package config

import (
	"os"
	"strconv"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string

	// BaseURL is the public address used to build confirmation links.
	BaseURL string

	SenderEmail string
	SenderName  string

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string

	// PublishConcurrency bounds the newsletter fan-out worker count.
	PublishConcurrency int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BULLETIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("BULLETIN_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	senderEmail := os.Getenv("BULLETIN_SENDER_EMAIL")
	if senderEmail == "" {
		senderEmail = "newsletter@localhost"
	}
	senderName := os.Getenv("BULLETIN_SENDER_NAME")
	if senderName == "" {
		senderName = "Bulletin"
	}

	concurrency := 8
	if raw := os.Getenv("BULLETIN_PUBLISH_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			concurrency = n
		}
	}

	return Server{
		Addr:               addr,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		BaseURL:            baseURL,
		SenderEmail:        senderEmail,
		SenderName:         senderName,
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSAccessKey:       os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		PublishConcurrency: concurrency,
	}
}
