// Package review implements the reviewer workflow over the candidate store:
// batch fetching, decisions with single-level undo, search, statistics and
// ingestion of scored mailbox records.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/mailtext"
	"flight-mail-review-go/internal/metrics"
	"flight-mail-review-go/internal/model"
	"flight-mail-review-go/internal/repository"
	"flight-mail-review-go/internal/scorer"
)

const maxMessageIDLength = 255

// Service is the sole mutator of candidates, decisions and confirmed flights
type Service struct {
	repo    *repository.Repository
	metrics *metrics.Metrics
	now     func() time.Time

	// serializes mutations across connections
	mu sync.Mutex
}

// NewService creates a new review service. m may be nil.
func NewService(repo *repository.Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

// FetchNextBatch returns up to size unreviewed candidates, highest score first.
// Sizes outside 1..MaxBatchSize are clamped.
func (s *Service) FetchNextBatch(ctx context.Context, size int) (*Batch, error) {
	size = clampBatchSize(size)

	var batch Batch
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		candidates, err := tx.GetUnreviewedCandidates(ctx, size)
		if err != nil {
			return err
		}
		remaining, err := tx.CountUnreviewed(ctx)
		if err != nil {
			return err
		}
		batch = Batch{Candidates: newCandidateViews(candidates, true), TotalRemaining: remaining}
		return nil
	})
	if err != nil {
		return nil, classify("fetch next batch", err)
	}

	s.metrics.SetUnreviewed(batch.TotalRemaining)
	return &batch, nil
}

func clampBatchSize(size int) int {
	switch {
	case size <= 0:
		return DefaultBatchSize
	case size > MaxBatchSize:
		return MaxBatchSize
	default:
		return size
	}
}

// SubmitDecision records a verdict for an unreviewed candidate and returns the
// number of candidates still awaiting review. All writes happen in one transaction.
func (s *Service) SubmitDecision(ctx context.Context, in DecisionInput) (int64, error) {
	messageID := strings.TrimSpace(in.MessageID)
	if messageID == "" {
		return 0, invalidInput("message_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		candidate, err := tx.GetCandidateByMessageID(ctx, messageID)
		if err != nil {
			return err
		}
		if in.Verdict == nil {
			return invalidInput("is_flight_confirmation must be a boolean")
		}
		if candidate.Reviewed {
			return fmt.Errorf("%s: %w", messageID, ErrAlreadyReviewed)
		}

		decision := &model.ReviewDecision{
			CandidateID:          candidate.ID,
			MessageID:            candidate.MessageID,
			IsFlightConfirmation: *in.Verdict,
			Note:                 normalizeNote(in.Note),
			DecidedAt:            s.now().UTC(),
		}
		if err := tx.InsertReviewDecision(ctx, decision); err != nil {
			return err
		}
		if err := tx.MarkAsReviewed(ctx, candidate.ID); err != nil {
			return err
		}

		if *in.Verdict {
			entry := &model.ConfirmedFlight{
				MessageID:  candidate.MessageID,
				ProviderID: candidate.ProviderID,
				Subject:    candidate.Subject,
			}
			if _, err := tx.InsertConfirmed(ctx, entry); err != nil {
				return err
			}
		}

		remaining, err = tx.CountUnreviewed(ctx)
		return err
	})
	if err != nil {
		return 0, classify("submit decision", err)
	}

	s.metrics.ObserveDecision(*in.Verdict)
	s.metrics.SetUnreviewed(remaining)
	logrus.WithFields(logrus.Fields{
		"message_id":             messageID,
		"is_flight_confirmation": *in.Verdict,
		"remaining":              remaining,
	}).Info("Review decision recorded")

	return remaining, nil
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UndoLast reverses the most recent decision and returns its message id.
// Only one level of undo is available.
func (s *Service) UndoLast(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var undone *model.ReviewDecision
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		last, err := tx.GetLastDecision(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: nothing to undo", ErrNotFound)
		}
		if err != nil {
			return err
		}
		if !last.Undoable {
			return fmt.Errorf("%w: nothing to undo", ErrNotFound)
		}

		if err := tx.DeleteDecision(ctx, last.ID); err != nil {
			return err
		}
		if err := tx.MarkAsUnreviewed(ctx, last.CandidateID); err != nil {
			return err
		}
		if last.IsFlightConfirmation {
			if _, err := tx.DeleteConfirmedByMessageID(ctx, last.MessageID); err != nil {
				return err
			}
		}

		undone = last
		return nil
	})
	if err != nil {
		return "", classify("undo last decision", err)
	}

	s.metrics.ObserveUndo()
	logrus.WithFields(logrus.Fields{
		"message_id":             undone.MessageID,
		"is_flight_confirmation": undone.IsFlightConfirmation,
	}).Info("Review decision undone")

	return undone.MessageID, nil
}

// Stats returns aggregate review progress from a single consistent snapshot
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if stats.TotalCandidates, err = tx.CountTotal(ctx); err != nil {
			return err
		}
		if stats.Reviewed, err = tx.CountReviewed(ctx); err != nil {
			return err
		}
		if stats.Unreviewed, err = tx.CountUnreviewed(ctx); err != nil {
			return err
		}
		if stats.ConfirmedCount, err = tx.CountDecisionsByVerdict(ctx, true); err != nil {
			return err
		}
		stats.RejectedCount, err = tx.CountDecisionsByVerdict(ctx, false)
		return err
	})
	if err != nil {
		return nil, classify("get stats", err)
	}

	stats.ReviewRatePercent = ReviewRate(stats.Reviewed, stats.TotalCandidates)
	return &stats, nil
}

// ReviewRate returns reviewed/total as a percentage rounded half up, or 0 when total is 0
func ReviewRate(reviewed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((reviewed*200 + total) / (2 * total))
}

// Search finds candidates whose subject, sender or message id contains query
func (s *Service) Search(ctx context.Context, query string, reviewed *bool) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidInput("search query is required")
	}

	candidates, err := s.repo.SearchCandidates(ctx, query, reviewed)
	if err != nil {
		return nil, classify("search candidates", err)
	}

	views := newCandidateViews(candidates, false)
	return &SearchResult{Results: views, Count: len(views)}, nil
}

// GetCandidate returns a single candidate with its body
func (s *Service) GetCandidate(ctx context.Context, messageID string) (*CandidateView, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, invalidInput("message id is required")
	}

	candidate, err := s.repo.GetCandidateByMessageID(ctx, messageID)
	if err != nil {
		return nil, classify("get candidate", err)
	}

	view := NewCandidateView(*candidate, true)
	return &view, nil
}

// ListDecisions returns the decision history newest first
func (s *Service) ListDecisions(ctx context.Context, page, limit int) (*DecisionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	decisions, total, err := s.repo.ListDecisions(ctx, page, limit)
	if err != nil {
		return nil, classify("list decisions", err)
	}
	return &DecisionPage{Decisions: decisions, Total: total, Page: page, Limit: limit}, nil
}

// ListConfirmed returns confirmed flights, optionally filtered by forwarding status
func (s *Service) ListConfirmed(ctx context.Context, status string) ([]model.ConfirmedFlight, error) {
	if status != "" && !model.ValidForwardStatus(status) {
		return nil, invalidInput(fmt.Sprintf("unknown forward status %q", status))
	}

	entries, err := s.repo.ListConfirmed(ctx, status)
	if err != nil {
		return nil, classify("list confirmed flights", err)
	}
	return entries, nil
}

// UpdateForwarding records the forwarding outcome for a confirmed flight
func (s *Service) UpdateForwarding(ctx context.Context, messageID, status string, tripID *string) (*model.ConfirmedFlight, error) {
	if !model.ValidForwardStatus(status) {
		return nil, invalidInput(fmt.Sprintf("unknown forward status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.repo.UpdateForwardStatus(ctx, messageID, status, tripID, s.now().UTC())
	if err != nil {
		return nil, classify("update forwarding status", err)
	}
	return entry, nil
}

// Ping checks that the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// IngestEmails scores raw mailbox records and stores the candidates among
// them. Records without any identifier are skipped, records below the
// threshold are discarded, and already stored message ids are left untouched.
func (s *Service) IngestEmails(ctx context.Context, emails []model.EmailMessage) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{Received: len(emails)}

	ingestedAt := s.now().UTC()
	rows := make([]model.Candidate, 0, len(emails))
	for _, email := range emails {
		messageID := strings.TrimSpace(email.MessageID)
		if messageID == "" {
			messageID = strings.TrimSpace(email.ProviderID)
		}
		if messageID == "" || len(messageID) > maxMessageIDLength {
			result.Skipped++
			logrus.WithFields(logrus.Fields{
				"provider_id": email.ProviderID,
				"subject":     email.Subject,
			}).Warn("Skipping email without a usable message id")
			continue
		}

		scored := scorer.Score(scorer.Input{
			Subject:       email.Subject,
			Sender:        email.Sender,
			HTMLBody:      email.HTMLBody,
			PlainTextBody: email.PlainTextBody,
		})
		if !scorer.IsCandidate(scored.Score) {
			result.Discarded++
			continue
		}

		rows = append(rows, newCandidate(messageID, email, scored, ingestedAt))
	}
	result.Candidates = len(rows)

	var remaining int64
	if len(rows) > 0 {
		s.mu.Lock()
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			inserted, err := tx.InsertCandidates(ctx, rows)
			if err != nil {
				return err
			}
			result.Inserted = inserted
			remaining, err = tx.CountUnreviewed(ctx)
			return err
		})
		s.mu.Unlock()
		if err != nil {
			return nil, classify("ingest emails", err)
		}
		result.Duplicates = result.Candidates - result.Inserted
		s.metrics.SetUnreviewed(remaining)
	}

	s.metrics.ObserveIngest(result.Received, result.Skipped, result.Discarded, result.Inserted, result.Duplicates, time.Since(start))
	logrus.WithFields(logrus.Fields{
		"received":   result.Received,
		"skipped":    result.Skipped,
		"discarded":  result.Discarded,
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
	}).Info("Ingestion batch processed")

	return result, nil
}

func newCandidate(messageID string, email model.EmailMessage, scored scorer.Result, ingestedAt time.Time) model.Candidate {
	date := email.Date
	if date.IsZero() {
		date = ingestedAt
	}

	c := model.Candidate{
		MessageID:   messageID,
		ProviderID:  email.ProviderID,
		Subject:     email.Subject,
		Sender:      email.Sender,
		Date:        date.UTC(),
		PreviewText: mailtext.Preview(email.PlainTextBody, email.HTMLBody, mailtext.DefaultPreviewLength),
		Score:       scored.Score,
		Reasons:     scored.Reasons,
		IngestedAt:  ingestedAt,
	}
	if email.HTMLBody != "" {
		html := email.HTMLBody
		c.BodyHTML = &html
	}
	if email.PlainTextBody != "" {
		text := email.PlainTextBody
		c.BodyText = &text
	}
	return c
}
