package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaycrm/outreach-engine/pkg/apperrors"
)

// storeFailure wraps an unexpected persistence error so callers can detect
// store unavailability with errors.Is while keeping the original cause.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(apperrors.ErrStoreUnavailable, err))
}

// uuidOrNil maps the zero UUID to SQL NULL for nullable UUID columns.
func uuidOrNil(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
