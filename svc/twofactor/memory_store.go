package twofactor

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It backs tests and local
// development; records are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Enable(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.records[rec.UserID]; ok && cur.Enabled {
		return ErrAlreadyEnabled
	}
	s.records[rec.UserID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Disable(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	rec.Secret = ""
	rec.Enabled = false
	rec.BackupCodes = nil
	rec.EnabledAt = nil
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ReplaceBackupCodes(_ context.Context, userID string, codes []BackupCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || !rec.Enabled {
		return ErrNotEnabled
	}
	rec.BackupCodes = cloneBackupCodes(codes)
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkBackupCodeUsed(_ context.Context, userID, codeID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || !rec.Enabled {
		return false, nil
	}
	for i := range rec.BackupCodes {
		c := &rec.BackupCodes[i]
		if c.ID != codeID {
			continue
		}
		if c.Used {
			return false, nil
		}
		c.Used = true
		c.UsedAt = &at
		rec.UpdatedAt = at
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) AdvanceStep(_ context.Context, userID string, step int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || !rec.Enabled || rec.LastUsedStep >= step {
		return false, nil
	}
	rec.LastUsedStep = step
	return true, nil
}
