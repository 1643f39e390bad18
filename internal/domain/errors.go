package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")

	// ErrStoreUnavailable is returned while the record store is refusing work.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// ValidationError reports an inbound payload that could not become a record.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid reading: %s: %v", e.Reason, e.Err)
	}
	return "invalid reading: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError reports a failed append. The reading is dropped and not broadcast.
type StorageError struct {
	PatientID string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store reading for patient %s: %v", e.PatientID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DeliveryError reports a failed send to one subscriber.
type DeliveryError struct {
	SessionID string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver to session %s: %v", e.SessionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
