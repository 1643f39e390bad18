package domain

import (
	"context"
	"time"
)

// VitalSignRepository is the persistence gateway for vital-sign records.
// Append assigns ID; the caller supplies ServerReceivedAt.
type VitalSignRepository interface {
	Append(ctx context.Context, rec VitalSignRecord) (VitalSignRecord, error)
	GetByID(ctx context.Context, id int64) (VitalSignRecord, error)
	ListAll(ctx context.Context) ([]VitalSignRecord, error)

	// ListByPatient returns the patient's records, most recent first.
	ListByPatient(ctx context.Context, patientID string) ([]VitalSignRecord, error)
	ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]VitalSignRecord, error)

	// ListMostRecentPerPatient returns the highest-id record of every patient.
	ListMostRecentPerPatient(ctx context.Context) ([]VitalSignRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]VitalSignRecord, error)

	DeleteByPatient(ctx context.Context, patientID string) (int64, error)

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
}

// RecordPublisher fans a persisted record out to live listeners.
type RecordPublisher interface {
	Publish(ctx context.Context, rec VitalSignRecord) error
}
