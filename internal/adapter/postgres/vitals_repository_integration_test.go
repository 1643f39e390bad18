package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func reading(patient string, status domain.Status, at time.Time) domain.VitalSignRecord {
	return domain.VitalSignRecord{
		DeviceTimestamp:   at.Format("15:04:05"),
		PatientID:         patient,
		PatientName:       "Paciente " + patient,
		PatientIdentifier: "000.000.000-00",
		HeartRate:         88,
		OxygenSaturation:  96,
		SystolicPressure:  125,
		DiastolicPressure: 82,
		Temperature:       36.9,
		RespiratoryRate:   17,
		Status:            status,
		ServerReceivedAt:  at,
	}
}

func TestVitalSignRepo_AppendAndGet(t *testing.T) {
	repo := NewVitalSignRepo(setupTestDB(t))
	ctx := context.Background()

	in := reading("PAC001", domain.StatusNormal, t0)
	stored, err := repo.Append(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ID)

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, in.PatientName, got.PatientName)
	assert.Equal(t, in.Temperature, got.Temperature)
	assert.Equal(t, domain.StatusNormal, got.Status)
	assert.True(t, in.ServerReceivedAt.Equal(got.ServerReceivedAt))
}

func TestVitalSignRepo_ReadsMatchAppendedJSON(t *testing.T) {
	repo := NewVitalSignRepo(setupTestDB(t))
	ctx := context.Background()

	stored, err := repo.Append(ctx, reading("PAC001", domain.StatusNormal, t0.Add(123456*time.Microsecond)))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)

	want, err := json.Marshal(stored)
	require.NoError(t, err)
	read, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(read))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, time.UTC, all[0].ServerReceivedAt.Location())
}

func TestVitalSignRepo_GetByID_NotFound(t *testing.T) {
	repo := NewVitalSignRepo(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestVitalSignRepo_Queries(t *testing.T) {
	repo := NewVitalSignRepo(setupTestDB(t))
	ctx := context.Background()

	seed := []struct {
		patient string
		status  domain.Status
	}{
		{"PAC001", domain.StatusNormal},
		{"PAC002", domain.StatusAlert},
		{"PAC001", domain.StatusAlert},
		{"PAC003", domain.StatusNormal},
		{"PAC001", domain.StatusNormal},
	}
	for i, s := range seed {
		_, err := repo.Append(ctx, reading(s.patient, s.status, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	byPatient, err := repo.ListByPatient(ctx, "PAC001")
	require.NoError(t, err)
	require.Len(t, byPatient, 3)
	assert.Equal(t, int64(5), byPatient[0].ID)
	assert.Equal(t, int64(1), byPatient[2].ID)

	between, err := repo.ListByPatientBetween(ctx, "PAC001", t0.Add(time.Minute), t0.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, int64(3), between[0].ID)

	recent, err := repo.ListMostRecentPerPatient(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{5, 2, 4}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})

	alerts, err := repo.ListByStatus(ctx, domain.StatusAlert)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	normal, err := repo.CountByStatus(ctx, domain.StatusNormal)
	require.NoError(t, err)
	assert.Equal(t, int64(3), normal)

	perPatient, err := repo.CountByPatient(ctx, "PAC001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), perPatient)

	deleted, err := repo.DeleteByPatient(ctx, "PAC001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	remaining, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestVitalSignRepo_ConcurrentAppendsGetDistinctIDs(t *testing.T) {
	repo := NewVitalSignRepo(setupTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := repo.Append(ctx, reading("PAC001", domain.StatusNormal, t0))
			assert.NoError(t, err)
			ids <- rec.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{})
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 20)
}

func TestRunMigrationsWithLock_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	require.NoError(t, RunMigrationsWithLock(context.Background(), pool))
}
