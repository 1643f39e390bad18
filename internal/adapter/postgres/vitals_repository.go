package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafaelspotto/helthgo/internal/domain"
)

var _ domain.VitalSignRepository = (*VitalSignRepo)(nil)

const selectColumns = `id, device_timestamp, patient_id, patient_name, patient_identifier,
	heart_rate, oxygen_saturation, systolic_pressure, diastolic_pressure,
	temperature, respiratory_rate, status, received_at`

type VitalSignRepo struct {
	pool *pgxpool.Pool
}

func NewVitalSignRepo(pool *pgxpool.Pool) *VitalSignRepo {
	return &VitalSignRepo{pool: pool}
}

func (r *VitalSignRepo) Append(ctx context.Context, rec domain.VitalSignRecord) (domain.VitalSignRecord, error) {
	const q = `INSERT INTO vital_signs (device_timestamp, patient_id, patient_name, patient_identifier,
		heart_rate, oxygen_saturation, systolic_pressure, diastolic_pressure,
		temperature, respiratory_rate, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := r.pool.QueryRow(ctx, q,
		rec.DeviceTimestamp, rec.PatientID, rec.PatientName, rec.PatientIdentifier,
		rec.HeartRate, rec.OxygenSaturation, rec.SystolicPressure, rec.DiastolicPressure,
		rec.Temperature, rec.RespiratoryRate, string(rec.Status), rec.ServerReceivedAt,
	).Scan(&rec.ID)
	if err != nil {
		return domain.VitalSignRecord{}, fmt.Errorf("failed to insert vital signs: %w", err)
	}
	return rec, nil
}

func (r *VitalSignRepo) GetByID(ctx context.Context, id int64) (domain.VitalSignRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM vital_signs WHERE id = $1`, id)
	if err != nil {
		return domain.VitalSignRecord{}, fmt.Errorf("failed to get vital signs by ID: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VitalSignRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.VitalSignRecord{}, fmt.Errorf("failed to get vital signs by ID: %w", err)
	}
	return rec, nil
}

func (r *VitalSignRepo) ListAll(ctx context.Context) ([]domain.VitalSignRecord, error) {
	return r.list(ctx, "list all", `SELECT `+selectColumns+` FROM vital_signs ORDER BY id`)
}

func (r *VitalSignRepo) ListByPatient(ctx context.Context, patientID string) ([]domain.VitalSignRecord, error) {
	return r.list(ctx, "list by patient",
		`SELECT `+selectColumns+` FROM vital_signs WHERE patient_id = $1 ORDER BY received_at DESC, id DESC`,
		patientID)
}

func (r *VitalSignRepo) ListByPatientBetween(ctx context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error) {
	return r.list(ctx, "list by patient and period",
		`SELECT `+selectColumns+` FROM vital_signs
		WHERE patient_id = $1 AND received_at BETWEEN $2 AND $3
		ORDER BY received_at DESC, id DESC`,
		patientID, from, to)
}

func (r *VitalSignRepo) ListMostRecentPerPatient(ctx context.Context) ([]domain.VitalSignRecord, error) {
	return r.list(ctx, "list most recent",
		`SELECT DISTINCT ON (patient_id) `+selectColumns+` FROM vital_signs
		ORDER BY patient_id, id DESC`)
}

func (r *VitalSignRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.VitalSignRecord, error) {
	return r.list(ctx, "list by status",
		`SELECT `+selectColumns+` FROM vital_signs WHERE status = $1 ORDER BY id`,
		string(status))
}

func (r *VitalSignRepo) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vital_signs WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vital signs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *VitalSignRepo) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM vital_signs`)
}

func (r *VitalSignRepo) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM vital_signs WHERE status = $1`, string(status))
}

func (r *VitalSignRepo) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM vital_signs WHERE patient_id = $1`, patientID)
}

func (r *VitalSignRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.VitalSignRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s vital signs: %w", op, err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to %s vital signs: %w", op, err)
	}
	return recs, nil
}

func (r *VitalSignRepo) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vital signs: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.CollectableRow) (domain.VitalSignRecord, error) {
	var (
		rec    domain.VitalSignRecord
		status string
	)
	err := row.Scan(
		&rec.ID, &rec.DeviceTimestamp, &rec.PatientID, &rec.PatientName, &rec.PatientIdentifier,
		&rec.HeartRate, &rec.OxygenSaturation, &rec.SystolicPressure, &rec.DiastolicPressure,
		&rec.Temperature, &rec.RespiratoryRate, &status, &rec.ServerReceivedAt,
	)
	rec.Status = domain.Status(status)
	// pgx hands timestamptz back in time.Local; live frames carry UTC.
	rec.ServerReceivedAt = rec.ServerReceivedAt.UTC()
	return rec, err
}
