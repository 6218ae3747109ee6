package domain

import "errors"

var (
	// ErrNotFound is returned when an opportunity, draft, job, account or profile does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput marks values rejected at the boundary (bad enum, malformed id).
	ErrInvalidInput = errors.New("invalid input")

	// ErrJobAlreadySucceeded is returned when retrying a SUCCESS publish job.
	ErrJobAlreadySucceeded = errors.New("publish job is already successful")

	// ErrDraftBlocked is returned when retrying a job whose draft is BLOCKED.
	ErrDraftBlocked = errors.New("blocked draft cannot be retried")

	// ErrReviewRequired is returned when retrying a REVIEW draft without allowReview.
	ErrReviewRequired = errors.New("draft is in review status, pass allowReview=true to force publish retry")

	// ErrDraftAlreadyDelivered is returned when enqueuing a SUBMITTED or PUBLISHED draft.
	ErrDraftAlreadyDelivered = errors.New("draft is already submitted/published and cannot be enqueued again")
)

// IsStateConflict reports whether err is one of the illegal state transition errors.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrJobAlreadySucceeded) ||
		errors.Is(err, ErrDraftBlocked) ||
		errors.Is(err, ErrReviewRequired) ||
		errors.Is(err, ErrDraftAlreadyDelivered)
}
