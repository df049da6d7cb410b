package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"flight-mail-review-go/internal/model"
)

// InsertCandidates stores rows keyed by message id. Rows whose message id is
// already present are left untouched. Returns the number of rows actually
// inserted; callers needing atomicity run it inside Transaction.
func (r *Repository) InsertCandidates(ctx context.Context, rows []model.Candidate) (int, error) {
	inserted := 0
	for i := range rows {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
			Create(&rows[i])
		if result.Error != nil {
			return inserted, fmt.Errorf("failed to insert candidate %s: %w", rows[i].MessageID, result.Error)
		}
		inserted += int(result.RowsAffected)
	}
	return inserted, nil
}

func (r *Repository) GetUnreviewedCandidates(ctx context.Context, limit int) ([]model.Candidate, error) {
	var candidates []model.Candidate
	result := r.db.WithContext(ctx).
		Where("reviewed = ?", false).
		Order("score DESC").Order("date DESC").Order("id DESC").
		Limit(limit).
		Find(&candidates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get unreviewed candidates: %w", result.Error)
	}
	return candidates, nil
}

func (r *Repository) GetCandidateByMessageID(ctx context.Context, messageID string) (*model.Candidate, error) {
	var candidate model.Candidate
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&candidate)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", messageID, notFound(result.Error))
	}
	return &candidate, nil
}

func (r *Repository) MarkAsReviewed(ctx context.Context, id uint) error {
	return r.setReviewed(ctx, id, true)
}

func (r *Repository) MarkAsUnreviewed(ctx context.Context, id uint) error {
	return r.setReviewed(ctx, id, false)
}

func (r *Repository) setReviewed(ctx context.Context, id uint, reviewed bool) error {
	result := r.db.WithContext(ctx).Model(&model.Candidate{}).Where("id = ?", id).Update("reviewed", reviewed)
	if result.Error != nil {
		return fmt.Errorf("failed to update reviewed flag: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the value is unchanged.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Candidate{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check candidate: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	return nil
}

// SearchCandidates matches text as a literal substring of subject, sender and
// message id, newest first. A non-nil reviewed filters on review state.
// Case folding covers ASCII letters only, since SQLite's LOWER leaves other
// characters untouched.
func (r *Repository) SearchCandidates(ctx context.Context, text string, reviewed *bool) ([]model.Candidate, error) {
	pattern := "%" + escapeLike(asciiLower(text)) + "%"

	query := r.db.WithContext(ctx).
		Where("LOWER(subject) LIKE ? ESCAPE '!' OR LOWER(sender) LIKE ? ESCAPE '!' OR LOWER(message_id) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern)
	if reviewed != nil {
		query = query.Where("reviewed = ?", *reviewed)
	}

	var candidates []model.Candidate
	result := query.Order("date DESC").Order("id DESC").Limit(SearchLimit).Find(&candidates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", result.Error)
	}
	return candidates, nil
}

func (r *Repository) CountTotal(ctx context.Context) (int64, error) {
	return r.countCandidates(ctx, nil)
}

func (r *Repository) CountReviewed(ctx context.Context) (int64, error) {
	reviewed := true
	return r.countCandidates(ctx, &reviewed)
}

func (r *Repository) CountUnreviewed(ctx context.Context) (int64, error) {
	reviewed := false
	return r.countCandidates(ctx, &reviewed)
}

func (r *Repository) countCandidates(ctx context.Context, reviewed *bool) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Candidate{})
	if reviewed != nil {
		query = query.Where("reviewed = ?", *reviewed)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return count, nil
}

// '!' is the LIKE escape character; a backslash literal would need escaping
// itself on MySQL.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
