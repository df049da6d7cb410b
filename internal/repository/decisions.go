package repository

import (
	"context"
	"fmt"

	"flight-mail-review-go/internal/model"
)

// InsertReviewDecision appends a decision and makes it the only undoable one.
// Run it inside Transaction.
func (r *Repository) InsertReviewDecision(ctx context.Context, decision *model.ReviewDecision) error {
	result := r.db.WithContext(ctx).Model(&model.ReviewDecision{}).
		Where("undoable = ?", true).
		Update("undoable", false)
	if result.Error != nil {
		return fmt.Errorf("failed to clear undoable decisions: %w", result.Error)
	}

	decision.Undoable = true
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("failed to insert review decision: %w", err)
	}
	return nil
}

// GetLastDecision returns the most recent decision
func (r *Repository) GetLastDecision(ctx context.Context) (*model.ReviewDecision, error) {
	var decision model.ReviewDecision
	result := r.db.WithContext(ctx).Order("decided_at DESC").Order("id DESC").First(&decision)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get last decision: %w", notFound(result.Error))
	}
	return &decision, nil
}

func (r *Repository) DeleteDecision(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.ReviewDecision{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete decision: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("decision %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) CountDecisionsByVerdict(ctx context.Context, verdict bool) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.ReviewDecision{}).
		Where("is_flight_confirmation = ?", verdict).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", result.Error)
	}
	return count, nil
}

// ListDecisions returns a page of decisions newest first together with the total count
func (r *Repository) ListDecisions(ctx context.Context, page, limit int) ([]model.ReviewDecision, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.ReviewDecision{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count decisions: %w", err)
	}

	var decisions []model.ReviewDecision
	result := r.db.WithContext(ctx).
		Preload("Candidate").
		Order("decided_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&decisions)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to list decisions: %w", result.Error)
	}
	return decisions, total, nil
}
