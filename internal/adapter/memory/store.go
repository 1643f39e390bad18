// Package memory provides an in-process VitalSignRepository for development
// and tests. Contents are lost on restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rafaelspotto/helthgo/internal/domain"
)

var _ domain.VitalSignRepository = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records []domain.VitalSignRecord
}

func NewStore() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Append(_ context.Context, rec domain.VitalSignRecord) (domain.VitalSignRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (domain.VitalSignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.VitalSignRecord{}, domain.ErrRecordNotFound
}

func (s *Store) ListAll(_ context.Context) ([]domain.VitalSignRecord, error) {
	return s.filter(func(domain.VitalSignRecord) bool { return true }), nil
}

func (s *Store) ListByPatient(_ context.Context, patientID string) ([]domain.VitalSignRecord, error) {
	out := s.filter(func(r domain.VitalSignRecord) bool { return r.PatientID == patientID })
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListByPatientBetween(_ context.Context, patientID string, from, to time.Time) ([]domain.VitalSignRecord, error) {
	out := s.filter(func(r domain.VitalSignRecord) bool {
		return r.PatientID == patientID && !r.ServerReceivedAt.Before(from) && !r.ServerReceivedAt.After(to)
	})
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListMostRecentPerPatient(_ context.Context) ([]domain.VitalSignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]domain.VitalSignRecord)
	for _, r := range s.records {
		if cur, ok := latest[r.PatientID]; !ok || r.ID > cur.ID {
			latest[r.PatientID] = r
		}
	}

	out := make([]domain.VitalSignRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.VitalSignRecord) int { return cmp.Compare(a.PatientID, b.PatientID) })
	return out, nil
}

func (s *Store) ListByStatus(_ context.Context, status domain.Status) ([]domain.VitalSignRecord, error) {
	return s.filter(func(r domain.VitalSignRecord) bool { return r.Status == status }), nil
}

func (s *Store) DeleteByPatient(_ context.Context, patientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(r domain.VitalSignRecord) bool { return r.PatientID == patientID })
	return int64(before - len(s.records)), nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) CountByStatus(_ context.Context, status domain.Status) (int64, error) {
	return int64(len(s.filter(func(r domain.VitalSignRecord) bool { return r.Status == status }))), nil
}

func (s *Store) CountByPatient(_ context.Context, patientID string) (int64, error) {
	return int64(len(s.filter(func(r domain.VitalSignRecord) bool { return r.PatientID == patientID }))), nil
}

func (s *Store) filter(keep func(domain.VitalSignRecord) bool) []domain.VitalSignRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.VitalSignRecord, 0)
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Ties on receive time fall back to id so ordering is stable.
func sortNewestFirst(recs []domain.VitalSignRecord) {
	slices.SortFunc(recs, func(a, b domain.VitalSignRecord) int {
		if c := b.ServerReceivedAt.Compare(a.ServerReceivedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
