package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type dayKey struct {
	subject string
	kind    SubjectKind
	date    string
}

// MemoryStore is a mutex-guarded Store for dev and tests.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]*Record
	days map[dayKey]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]*Record{}, days: map[dayKey]string{}}
}

func keyOf(rec Record) dayKey {
	return dayKey{subject: rec.SubjectID, kind: rec.SubjectKind, date: dateArg(rec.WorkDate)}
}

func (m *MemoryStore) upsert(rec Record, fill func(existing *Record) bool) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	k := keyOf(rec)
	if id, ok := m.days[k]; ok {
		existing := m.byID[id]
		if !fill(existing) {
			return Record{}, false
		}
		existing.UpdatedAt = now
		return *existing, true
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	stored := rec
	m.byID[rec.ID] = &stored
	m.days[k] = rec.ID
	return rec, true
}

// StartDay implements Store.
func (m *MemoryStore) StartDay(_ context.Context, rec Record) (Record, error) {
	saved, ok := m.upsert(rec, func(existing *Record) bool {
		if existing.CheckIn != nil {
			return false
		}
		existing.TenantID = rec.TenantID
		existing.CheckIn = rec.CheckIn
		existing.LoginTime = rec.LoginTime
		existing.Status, existing.Remark = rec.Status, rec.Remark
		return true
	})
	if !ok {
		return Record{}, ErrAlreadyCheckedIn
	}
	return saved, nil
}

// MarkAbsent implements Store.
func (m *MemoryStore) MarkAbsent(_ context.Context, rec Record) (Record, error) {
	saved, ok := m.upsert(rec, func(existing *Record) bool {
		if existing.CheckIn != nil {
			return false
		}
		existing.Status, existing.Remark = StatusAbsent, StatusAbsent
		return true
	})
	if !ok {
		return Record{}, ErrDayStarted
	}
	return saved, nil
}

// FindDay implements Store.
func (m *MemoryStore) FindDay(_ context.Context, subj Subject, day time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.days[dayKey{subject: subj.ID, kind: subj.Kind, date: dateArg(day)}]
	if !ok {
		return nil, nil
	}
	rec := *m.byID[id]
	return &rec, nil
}

// CloseDay implements Store.
func (m *MemoryStore) CloseDay(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[rec.ID]
	if !ok || existing.CheckIn == nil || existing.CheckOut != nil {
		return Record{}, ErrAlreadyCheckedOut
	}
	existing.CheckOut = rec.CheckOut
	existing.LogoutTime = rec.LogoutTime
	existing.TotalHours = rec.TotalHours
	existing.Status, existing.Remark = rec.Status, rec.Remark
	existing.AutoClosed = rec.AutoClosed
	existing.UpdatedAt = time.Now().UTC()
	return *existing, nil
}

// ListOpen implements Store.
func (m *MemoryStore) ListOpen(_ context.Context, day time.Time, afterID string, limit int) ([]Record, error) {
	return m.collect(func(r *Record) bool {
		return dateArg(r.WorkDate) == dateArg(day) && r.State() == CheckedIn && r.ID > afterID
	}, func(a, b Record) bool { return a.ID < b.ID }, limit), nil
}

// ListRange implements Store.
func (m *MemoryStore) ListRange(_ context.Context, kind SubjectKind, ids []string, from, to time.Time) ([]Record, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	lo, hi := dateArg(from), dateArg(to)
	return m.collect(func(r *Record) bool {
		d := dateArg(r.WorkDate)
		return r.SubjectKind == kind && want[r.SubjectID] && d >= lo && d <= hi
	}, func(a, b Record) bool {
		if da, db := dateArg(a.WorkDate), dateArg(b.WorkDate); da != db {
			return da < db
		}
		return a.SubjectID < b.SubjectID
	}, 0), nil
}

// Put stores rec as is, replacing any record for the same subject and day.
func (m *MemoryStore) Put(rec Record) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if id, ok := m.days[keyOf(rec)]; ok {
		delete(m.byID, id)
	}
	stored := rec
	m.byID[rec.ID] = &stored
	m.days[keyOf(rec)] = rec.ID
	return rec
}

// Get returns a copy of the record with id.
func (m *MemoryStore) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (m *MemoryStore) collect(keep func(*Record) bool, less func(a, b Record) bool, limit int) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.byID {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
