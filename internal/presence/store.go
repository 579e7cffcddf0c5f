package presence

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// Store persists presence records and their cleanup handles. A handle
// exists per (resource, slot, user) while a record is live and carries
// the generation token of the one cleanup job allowed to remove it.
type Store interface {
	// Upsert writes a record for every slot with the shared updated time,
	// all or nothing. It returns slot -> token for each handle it had to
	// create; slots whose handle already existed are absent.
	Upsert(ctx context.Context, resourceID string, slots []string, user string, updated time.Time, data json.RawMessage) (map[string]string, error)

	// Expire runs the cleanup identified by token. When the handle's token
	// differs the call is a no-op. When the record is stale (updated at
	// least timeout before now) the record and handle are deleted and
	// removed is true. When it is fresh, nothing is deleted and left is the
	// time until it goes stale.
	Expire(ctx context.Context, resourceID, slot, user, token string, timeout time.Duration, now time.Time) (removed bool, left time.Duration, err error)

	// Remove deletes the records and handles of user on slots.
	Remove(ctx context.Context, resourceID string, slots []string, user string) error

	// ListDate returns the records of a resource whose slot key starts
	// with date.
	ListDate(ctx context.Context, resourceID, date string) ([]model.PresenceRecord, error)
}

type recordKey struct {
	resourceID string
	slot       string
	user       string
}

// MemoryStore keeps presence in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]model.PresenceRecord
	handles map[recordKey]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]model.PresenceRecord),
		handles: make(map[recordKey]string),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, resourceID string, slots []string, user string, updated time.Time, data json.RawMessage) (map[string]string, error) {
	if err := validate(resourceID, slots, user); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := make(map[string]string)
	for _, sl := range slots {
		k := recordKey{resourceID, sl, user}
		s.records[k] = model.PresenceRecord{
			ResourceID: resourceID,
			Slot:       sl,
			User:       user,
			Updated:    updated,
			Data:       append(json.RawMessage(nil), data...),
		}
		if _, ok := s.handles[k]; !ok {
			token := uuid.NewString()
			s.handles[k] = token
			claimed[sl] = token
		}
	}
	return claimed, nil
}

func (s *MemoryStore) Expire(_ context.Context, resourceID, slot, user, token string, timeout time.Duration, now time.Time) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey{resourceID, slot, user}
	if current, ok := s.handles[k]; !ok || current != token {
		return false, 0, nil
	}
	if rec, ok := s.records[k]; ok {
		if left := rec.Updated.Add(timeout).Sub(now); left > 0 {
			return false, left, nil
		}
	}
	delete(s.records, k)
	delete(s.handles, k)
	return true, 0, nil
}

func (s *MemoryStore) Remove(_ context.Context, resourceID string, slots []string, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range slots {
		k := recordKey{resourceID, sl, user}
		delete(s.records, k)
		delete(s.handles, k)
	}
	return nil
}

func (s *MemoryStore) ListDate(_ context.Context, resourceID, date string) ([]model.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.PresenceRecord{}
	for k, rec := range s.records {
		if k.resourceID == resourceID && strings.HasPrefix(k.slot, date) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}
