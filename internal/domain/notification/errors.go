package notification

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PartialDeliveryError indicates the notification row was written but some
// or all recipient rows were not. The notification is considered partially
// delivered; the caller records the failure without rolling back.
type PartialDeliveryError struct {
	NotificationID uuid.UUID
	Err            error
}

// Error implements the error interface
func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("notification %s partially delivered: %v", e.NotificationID, e.Err)
}

// Unwrap returns the underlying error
func (e *PartialDeliveryError) Unwrap() error {
	return e.Err
}

// IsPartialDelivery reports whether err is a partial delivery failure
func IsPartialDelivery(err error) bool {
	var pd *PartialDeliveryError
	return errors.As(err, &pd)
}
