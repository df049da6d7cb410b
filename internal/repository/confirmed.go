package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"flight-mail-review-go/internal/model"
)

// InsertConfirmed adds a confirmed flight unless one already exists for the
// same message id. Reports whether a row was written.
func (r *Repository) InsertConfirmed(ctx context.Context, entry *model.ConfirmedFlight) (bool, error) {
	if entry.ForwardStatus == "" {
		entry.ForwardStatus = model.ForwardStatusPending
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert confirmed flight: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) DeleteConfirmedByMessageID(ctx context.Context, messageID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&model.ConfirmedFlight{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete confirmed flight: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) CountConfirmed(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ConfirmedFlight{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count confirmed flights: %w", err)
	}
	return count, nil
}

// ListConfirmed returns confirmed flights newest first, optionally filtered by forwarding status
func (r *Repository) ListConfirmed(ctx context.Context, status string) ([]model.ConfirmedFlight, error) {
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("forward_status = ?", status)
	}

	var entries []model.ConfirmedFlight
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list confirmed flights: %w", err)
	}
	return entries, nil
}

func (r *Repository) GetConfirmedByMessageID(ctx context.Context, messageID string) (*model.ConfirmedFlight, error) {
	var entry model.ConfirmedFlight
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&entry)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get confirmed flight %s: %w", messageID, notFound(result.Error))
	}
	return &entry, nil
}

// UpdateForwardStatus records the outcome reported by the forwarding collaborator
func (r *Repository) UpdateForwardStatus(ctx context.Context, messageID, status string, tripID *string, at time.Time) (*model.ConfirmedFlight, error) {
	updates := map[string]interface{}{"forward_status": status}
	if status != model.ForwardStatusPending {
		updates["forwarded_at"] = at
	}
	if tripID != nil {
		updates["trip_id"] = *tripID
	}

	result := r.db.WithContext(ctx).Model(&model.ConfirmedFlight{}).Where("message_id = ?", messageID).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update forward status: %w", result.Error)
	}

	return r.GetConfirmedByMessageID(ctx, messageID)
}
