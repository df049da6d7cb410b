package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/model"
)

// GmailAPIFetcher implements EmailFetcher using Gmail API
type GmailAPIFetcher struct {
	service    *gmail.Service
	userEmail  string
	query      string
	maxResults int64
	lastCheck  time.Time
}

// OAuthConfig returns the OAuth2 client configuration for read-only Gmail access
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}
}

// NewGmailAPIFetcher creates a new Gmail API fetcher
func NewGmailAPIFetcher(cfg config.GmailConfig) (*GmailAPIFetcher, error) {
	ctx := context.Background()

	tokenSource := OAuthConfig(cfg.ClientID, cfg.ClientSecret, "").
		TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	userEmail := cfg.UserEmail
	if userEmail == "" {
		userEmail = "me"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > 500 {
		maxResults = 500
	}

	return &GmailAPIFetcher{
		service:    service,
		userEmail:  userEmail,
		query:      cfg.Query,
		maxResults: maxResults,
	}, nil
}

// FetchNewEmails lists messages matching the configured query, newer than
// the previous successful fetch
func (f *GmailAPIFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	query := f.query
	if !f.lastCheck.IsZero() {
		query = strings.TrimSpace(fmt.Sprintf("%s after:%d", query, f.lastCheck.Unix()))
	}
	started := time.Now()

	var emails []model.EmailMessage
	pageToken := ""
	for {
		call := f.service.Users.Messages.List(f.userEmail).Q(query).MaxResults(f.maxResults).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, ref := range response.Messages {
			msg, err := f.service.Users.Messages.Get(f.userEmail, ref.Id).Format("full").Context(ctx).Do()
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logrus.WithError(err).WithField("provider_id", ref.Id).Warn("Failed to get Gmail message")
				continue
			}

			email, err := parseGmailMessage(msg)
			if err != nil {
				logrus.WithError(err).WithField("provider_id", ref.Id).Warn("Failed to parse Gmail message")
				continue
			}
			emails = append(emails, email)
		}

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	f.lastCheck = started
	logrus.WithField("count", len(emails)).Info("Fetched emails from Gmail")
	return emails, nil
}

// parseGmailMessage parses a Gmail API message into an email record
func parseGmailMessage(msg *gmail.Message) (model.EmailMessage, error) {
	email := model.EmailMessage{ProviderID: msg.Id}
	if msg.Payload == nil {
		return email, fmt.Errorf("message %s has no payload", msg.Id)
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			email.Subject = header.Value
		case "from":
			email.Sender = header.Value
		case "message-id":
			email.MessageID = strings.TrimSpace(header.Value)
		case "date":
			email.Date = parseDate(header.Value)
		}
	}
	if email.Date.IsZero() && msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate).UTC()
	}

	if err := parseGmailBody(msg.Payload, &email); err != nil {
		return email, err
	}
	return email, nil
}

// parseGmailBody recursively parses Gmail message body parts. The first
// text/plain and text/html parts win.
func parseGmailBody(part *gmail.MessagePart, email *model.EmailMessage) error {
	if part.Body != nil && part.Body.Data != "" && part.Filename == "" {
		data, err := decodeBase64URL(part.Body.Data)
		if err != nil {
			return fmt.Errorf("failed to decode body data: %w", err)
		}

		switch strings.ToLower(part.MimeType) {
		case "text/plain":
			if email.PlainTextBody == "" {
				email.PlainTextBody = string(data)
			}
		case "text/html":
			if email.HTMLBody == "" {
				email.HTMLBody = string(data)
			}
		}
	}

	for _, sub := range part.Parts {
		if err := parseGmailBody(sub, email); err != nil {
			return err
		}
	}
	return nil
}

func decodeBase64URL(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

// Close closes the Gmail API fetcher
func (f *GmailAPIFetcher) Close() error {
	return nil
}
