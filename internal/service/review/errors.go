package review

import (
	"errors"
	"fmt"

	"flight-mail-review-go/internal/repository"
)

// Error kinds reported by the review service
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage failure")

	// ErrAlreadyReviewed rejects a second decision on a reviewed candidate
	ErrAlreadyReviewed = fmt.Errorf("candidate already reviewed: %w", ErrInvalidInput)
)

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// classify maps repository errors onto the service error kinds. Errors that
// already carry a kind pass through unchanged.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}
