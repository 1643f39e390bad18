package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow feeds fixed column values to scanRecord.
type fakeRow struct {
	values []any
}

func (r fakeRow) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}

func (r fakeRow) Values() ([]any, error) {
	return r.values, nil
}

func (r fakeRow) RawValues() [][]byte {
	return nil
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *float64:
			*p = r.values[i].(float64)
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func TestScanRecord_NormalizesReceivedAtToUTC(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	received := time.Date(2025, 3, 14, 7, 0, 0, 123000, saoPaulo)

	want := reading("PAC001", domain.StatusAlert, received.UTC())
	want.ID = 7

	row := fakeRow{values: []any{
		want.ID, want.DeviceTimestamp, want.PatientID, want.PatientName, want.PatientIdentifier,
		want.HeartRate, want.OxygenSaturation, want.SystolicPressure, want.DiastolicPressure,
		want.Temperature, want.RespiratoryRate, string(want.Status), received,
	}}

	got, err := scanRecord(row)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, time.UTC, got.ServerReceivedAt.Location())
}
