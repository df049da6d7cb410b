package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/model"
)

// EMLDirFetcher reads .eml files from a directory. Files are returned once
// unless they are modified afterwards.
type EMLDirFetcher struct {
	dir  string
	seen map[string]time.Time
}

// NewEMLDirFetcher creates a fetcher over dir
func NewEMLDirFetcher(dir string) *EMLDirFetcher {
	return &EMLDirFetcher{dir: dir, seen: make(map[string]time.Time)}
}

// FetchNewEmails parses every new or modified .eml file. Unreadable files are
// logged and skipped.
func (f *EMLDirFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read eml directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	emails := []model.EmailMessage{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(f.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Failed to stat eml file")
			continue
		}
		if modTime, ok := f.seen[path]; ok && !info.ModTime().After(modTime) {
			continue
		}

		email, err := readEMLFile(path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warn("Failed to parse eml file")
			continue
		}
		f.seen[path] = info.ModTime()
		emails = append(emails, email)
	}

	logrus.WithFields(logrus.Fields{
		"dir":   f.dir,
		"count": len(emails),
	}).Info("Fetched emails from eml directory")
	return emails, nil
}

func readEMLFile(path string) (model.EmailMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.EmailMessage{}, err
	}
	defer file.Close()

	env, err := enmime.ReadEnvelope(file)
	if err != nil {
		return model.EmailMessage{}, fmt.Errorf("failed to parse envelope: %w", err)
	}

	return model.EmailMessage{
		MessageID:     strings.TrimSpace(env.GetHeader("Message-Id")),
		ProviderID:    filepath.Base(path),
		Subject:       env.GetHeader("Subject"),
		Sender:        env.GetHeader("From"),
		Date:          parseDate(env.GetHeader("Date")),
		HTMLBody:      env.HTML,
		PlainTextBody: env.Text,
	}, nil
}

// Close closes the eml fetcher
func (f *EMLDirFetcher) Close() error {
	return nil
}
