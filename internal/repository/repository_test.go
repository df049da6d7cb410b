package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/db"
	"flight-mail-review-go/internal/model"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	gdb, err := db.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "review.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return New(gdb), gdb
}

func candidate(id string, score int, date time.Time) model.Candidate {
	return model.Candidate{
		MessageID:   id,
		Subject:     "Subject " + id,
		Sender:      "noreply@united.com",
		Date:        date,
		PreviewText: "preview",
		Score:       score,
		Reasons:     []string{"Known airline/OTA sender"},
	}
}

func TestInsertCandidatesIdempotent(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	inserted, err := repo.InsertCandidates(ctx, []model.Candidate{
		candidate("m1", 50, baseTime),
		candidate("m2", 40, baseTime),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	dup := candidate("m1", 99, baseTime)
	dup.Subject = "overwritten"
	inserted, err = repo.InsertCandidates(ctx, []model.Candidate{dup, candidate("m3", 30, baseTime)})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	total, err := repo.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	stored, err := repo.GetCandidateByMessageID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Subject m1", stored.Subject)
	assert.Equal(t, 50, stored.Score)
	assert.Equal(t, []string{"Known airline/OTA sender"}, stored.Reasons)
	assert.False(t, stored.Reviewed)
}

func TestGetUnreviewedCandidatesOrdering(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_, err := repo.InsertCandidates(ctx, []model.Candidate{
		candidate("low", 30, baseTime.Add(2*time.Hour)),
		candidate("high-old", 70, baseTime),
		candidate("high-new", 70, baseTime.Add(time.Hour)),
		candidate("mid", 45, baseTime),
	})
	require.NoError(t, err)

	first, err := repo.GetUnreviewedCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 4)

	ids := make([]string, len(first))
	for i, c := range first {
		ids[i] = c.MessageID
	}
	assert.Equal(t, []string{"high-new", "high-old", "mid", "low"}, ids)

	second, err := repo.GetUnreviewedCandidates(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	limited, err := repo.GetUnreviewedCandidates(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, repo.MarkAsReviewed(ctx, first[0].ID))
	rest, err := repo.GetUnreviewedCandidates(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	assert.Equal(t, "high-old", rest[0].MessageID)
}

func TestMarkReviewedCounts(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_, err := repo.InsertCandidates(ctx, []model.Candidate{
		candidate("a", 30, baseTime),
		candidate("b", 30, baseTime),
		candidate("c", 30, baseTime),
	})
	require.NoError(t, err)

	a, err := repo.GetCandidateByMessageID(ctx, "a")
	require.NoError(t, err)

	checkCounts := func(reviewed, unreviewed int64) {
		total, err := repo.CountTotal(ctx)
		require.NoError(t, err)
		r, err := repo.CountReviewed(ctx)
		require.NoError(t, err)
		u, err := repo.CountUnreviewed(ctx)
		require.NoError(t, err)
		assert.Equal(t, reviewed, r)
		assert.Equal(t, unreviewed, u)
		assert.Equal(t, total, r+u)
	}

	checkCounts(0, 3)
	require.NoError(t, repo.MarkAsReviewed(ctx, a.ID))
	checkCounts(1, 2)
	require.NoError(t, repo.MarkAsReviewed(ctx, a.ID))
	checkCounts(1, 2)
	require.NoError(t, repo.MarkAsUnreviewed(ctx, a.ID))
	checkCounts(0, 3)

	err = repo.MarkAsReviewed(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetCandidateNotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.GetCandidateByMessageID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchCandidates(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	united := candidate("<abc@united.com>", 60, baseTime)
	united.Subject = "Your Flight Confirmation"
	delta := candidate("<xyz@delta.com>", 40, baseTime.Add(time.Hour))
	delta.Subject = "Trip receipt"
	delta.Sender = "receipts@Delta.com"
	_, err := repo.InsertCandidates(ctx, []model.Candidate{united, delta})
	require.NoError(t, err)

	results, err := repo.SearchCandidates(ctx, "CONFIRMATION", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "<abc@united.com>", results[0].MessageID)

	results, err = repo.SearchCandidates(ctx, "delta", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = repo.SearchCandidates(ctx, ".com", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "<xyz@delta.com>", results[0].MessageID)

	d, err := repo.GetCandidateByMessageID(ctx, "<xyz@delta.com>")
	require.NoError(t, err)
	require.NoError(t, repo.MarkAsReviewed(ctx, d.ID))

	reviewed := true
	results, err = repo.SearchCandidates(ctx, ".com", &reviewed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "<xyz@delta.com>", results[0].MessageID)

	notReviewed := false
	results, err = repo.SearchCandidates(ctx, ".com", &notReviewed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "<abc@united.com>", results[0].MessageID)
}

func TestSearchCandidatesLiteralWildcards(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	plain := candidate("plain-id", 40, baseTime)
	plain.Subject = "Your booking ABC"
	plain.Sender = "noreply@united.com"
	_, err := repo.InsertCandidates(ctx, []model.Candidate{plain})
	require.NoError(t, err)

	for _, q := range []string{"A_C", "%", "_", "bo%ng", "!", "bo!ok"} {
		results, err := repo.SearchCandidates(ctx, q, nil)
		require.NoError(t, err)
		assert.Empty(t, results, "query %q", q)
	}

	special := candidate("fare_50%!off", 40, baseTime.Add(time.Hour))
	special.Subject = "Fare 50% off"
	_, err = repo.InsertCandidates(ctx, []model.Candidate{special})
	require.NoError(t, err)

	for _, q := range []string{"50%", "_50", "%!off", "e_5"} {
		results, err := repo.SearchCandidates(ctx, q, nil)
		require.NoError(t, err)
		require.Len(t, results, 1, "query %q", q)
		assert.Equal(t, "fare_50%!off", results[0].MessageID)
	}
}

func TestSearchCandidatesNonASCII(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	c := candidate("<ete@airfrance.fr>", 40, baseTime)
	c.Subject = "Vol Été Paris"
	_, err := repo.InsertCandidates(ctx, []model.Candidate{c})
	require.NoError(t, err)

	results, err := repo.SearchCandidates(ctx, "Été", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = repo.SearchCandidates(ctx, "VOL Été", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchCandidatesLimit(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	rows := make([]model.Candidate, 0, SearchLimit+5)
	for i := 0; i < SearchLimit+5; i++ {
		rows = append(rows, candidate(time.Duration(i).String(), 30, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	_, err := repo.InsertCandidates(ctx, rows)
	require.NoError(t, err)

	results, err := repo.SearchCandidates(ctx, "subject", nil)
	require.NoError(t, err)
	assert.Len(t, results, SearchLimit)
}

func TestDecisionLog(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	_, err := repo.InsertCandidates(ctx, []model.Candidate{candidate("a", 30, baseTime), candidate("b", 30, baseTime)})
	require.NoError(t, err)
	a, _ := repo.GetCandidateByMessageID(ctx, "a")
	b, _ := repo.GetCandidateByMessageID(ctx, "b")

	_, err = repo.GetLastDecision(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &model.ReviewDecision{CandidateID: a.ID, MessageID: a.MessageID, IsFlightConfirmation: true, DecidedAt: baseTime}
	require.NoError(t, repo.InsertReviewDecision(ctx, first))
	note := "newsletter"
	second := &model.ReviewDecision{CandidateID: b.ID, MessageID: b.MessageID, IsFlightConfirmation: false, Note: &note, DecidedAt: baseTime}
	require.NoError(t, repo.InsertReviewDecision(ctx, second))

	last, err := repo.GetLastDecision(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
	assert.True(t, last.Undoable)
	require.NotNil(t, last.Note)
	assert.Equal(t, "newsletter", *last.Note)

	decisions, total, err := repo.ListDecisions(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, decisions, 2)
	assert.Equal(t, second.ID, decisions[0].ID)
	assert.False(t, decisions[1].Undoable)
	require.NotNil(t, decisions[0].Candidate)
	assert.Equal(t, "b", decisions[0].Candidate.MessageID)

	positive, err := repo.CountDecisionsByVerdict(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), positive)

	require.NoError(t, repo.DeleteDecision(ctx, second.ID))
	assert.ErrorIs(t, repo.DeleteDecision(ctx, second.ID), ErrNotFound)

	last, err = repo.GetLastDecision(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, last.ID)
	assert.False(t, last.Undoable)
}

func TestConfirmedSet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ok, err := repo.InsertConfirmed(ctx, &model.ConfirmedFlight{MessageID: "m1", Subject: "Flight"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.InsertConfirmed(ctx, &model.ConfirmedFlight{MessageID: "m1", Subject: "Again"})
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := repo.CountConfirmed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	pending, err := repo.ListConfirmed(ctx, model.ForwardStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Flight", pending[0].Subject)

	trip := "trip-42"
	updated, err := repo.UpdateForwardStatus(ctx, "m1", model.ForwardStatusSuccess, &trip, baseTime)
	require.NoError(t, err)
	assert.Equal(t, model.ForwardStatusSuccess, updated.ForwardStatus)
	require.NotNil(t, updated.TripID)
	assert.Equal(t, "trip-42", *updated.TripID)
	require.NotNil(t, updated.ForwardedAt)

	_, err = repo.UpdateForwardStatus(ctx, "missing", model.ForwardStatusFailed, nil, baseTime)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := repo.DeleteConfirmedByMessageID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err = repo.CountConfirmed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTransactionRollback(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx *Repository) error {
		if _, err := tx.InsertCandidates(ctx, []model.Candidate{candidate("a", 30, baseTime)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	total, err := repo.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
