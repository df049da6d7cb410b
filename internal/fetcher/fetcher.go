// Package fetcher pulls raw email records from a mailbox for ingestion.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/model"
)

// ErrNoSource is returned by New when no mailbox source is configured
var ErrNoSource = errors.New("no mailbox source configured")

// EmailFetcher interface for fetching emails
type EmailFetcher interface {
	FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error)
	Close() error
}

// New creates the fetcher selected by cfg.Source
func New(cfg config.MailboxConfig) (EmailFetcher, error) {
	switch strings.ToLower(cfg.Source) {
	case config.SourceGmail:
		return NewGmailAPIFetcher(cfg.Gmail)
	case config.SourceIMAP:
		return NewIMAPFetcher(cfg.IMAP), nil
	case config.SourceEML:
		return NewEMLDirFetcher(cfg.EML.Dir), nil
	case "", config.SourceNone:
		return nil, ErrNoSource
	default:
		return nil, fmt.Errorf("unsupported mailbox source %q", cfg.Source)
	}
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
