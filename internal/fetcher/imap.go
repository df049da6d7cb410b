package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/model"
)

// IMAPFetcher implements EmailFetcher using IMAP. The connection is opened
// lazily and dropped after any protocol error.
type IMAPFetcher struct {
	cfg         config.IMAPConfig
	client      *client.Client
	lastCheck   time.Time
	lastUID     uint32
	uidValidity uint32
}

// NewIMAPFetcher creates a new IMAP fetcher
func NewIMAPFetcher(cfg config.IMAPConfig) *IMAPFetcher {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = 1
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPFetcher{
		cfg:       cfg,
		lastCheck: time.Now().AddDate(0, 0, -lookback),
	}
}

func (f *IMAPFetcher) connect() error {
	if f.client != nil {
		return nil
	}

	c, err := client.DialTLS(fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	if err := c.Login(f.cfg.User, f.cfg.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	f.client = c
	return nil
}

func (f *IMAPFetcher) disconnect() {
	if f.client == nil {
		return
	}
	if err := f.client.Logout(); err != nil {
		logrus.WithError(err).Debug("IMAP logout failed")
	}
	f.client = nil
}

// FetchNewEmails fetches messages received since the previous fetch
func (f *IMAPFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.connect(); err != nil {
		return nil, err
	}

	emails, err := f.fetch(ctx)
	if err != nil {
		f.disconnect()
		return nil, err
	}
	return emails, nil
}

func (f *IMAPFetcher) fetch(ctx context.Context) ([]model.EmailMessage, error) {
	mbox, err := f.client.Select(f.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", f.cfg.Mailbox, err)
	}
	if mbox.UidValidity != f.uidValidity {
		f.uidValidity = mbox.UidValidity
		f.lastUID = 0
	}

	started := time.Now()
	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := f.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	seqset := new(imap.SeqSet)
	for _, uid := range uids {
		if uid > f.lastUID {
			seqset.AddNum(uid)
		}
	}
	if seqset.Empty() {
		f.lastCheck = started
		return []model.EmailMessage{}, nil
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.client.UidFetch(seqset, items, messages)
	}()

	var emails []model.EmailMessage
	maxUID := f.lastUID
	for msg := range messages {
		if msg.Uid > maxUID {
			maxUID = msg.Uid
		}

		r := msg.GetBody(section)
		if r == nil {
			logrus.WithField("uid", msg.Uid).Warn("IMAP message has no body")
			continue
		}

		email, err := parseRFC822(r)
		if err != nil {
			logrus.WithError(err).WithField("uid", msg.Uid).Warn("Failed to parse IMAP message")
			continue
		}
		email.ProviderID = fmt.Sprintf("%d:%d", f.uidValidity, msg.Uid)
		if email.Date.IsZero() {
			email.Date = msg.InternalDate.UTC()
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.lastUID = maxUID
	f.lastCheck = started
	logrus.WithFields(logrus.Fields{
		"mailbox": f.cfg.Mailbox,
		"count":   len(emails),
	}).Info("Fetched emails from IMAP")
	return emails, nil
}

// Close closes the IMAP fetcher
func (f *IMAPFetcher) Close() error {
	f.disconnect()
	return nil
}
