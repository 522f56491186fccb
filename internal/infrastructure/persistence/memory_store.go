package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

type recordKey struct {
	tenantID      uuid.UUID
	aggregateType string
	id            uuid.UUID
}

// InMemoryAggregateStore is a process-local shared.AggregateStore with the
// same version and uniqueness rules as the GORM store. Saved events are kept
// in order and can be read back with Events.
type InMemoryAggregateStore struct {
	mu      sync.RWMutex
	records map[recordKey]shared.Record
	events  []shared.DomainEvent
}

// NewInMemoryAggregateStore creates an empty store
func NewInMemoryAggregateStore() *InMemoryAggregateStore {
	return &InMemoryAggregateStore{records: make(map[recordKey]shared.Record)}
}

func (s *InMemoryAggregateStore) Get(_ context.Context, tenantID uuid.UUID, aggregateType string, id uuid.UUID) (shared.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{tenantID, aggregateType, id}]
	if !ok {
		return shared.Record{}, shared.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *InMemoryAggregateStore) GetByBusinessKey(_ context.Context, tenantID uuid.UUID, aggregateType, key string) (shared.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.findByKey(tenantID, aggregateType, key); ok {
		return copyRecord(rec), nil
	}
	return shared.Record{}, shared.ErrNotFound
}

func (s *InMemoryAggregateStore) List(_ context.Context, tenantID uuid.UUID, aggregateType string, filter shared.Filter) (shared.Paginated[shared.Record], error) {
	f := filter.Normalize()

	s.mu.RLock()
	matched := make([]shared.Record, 0)
	for k, rec := range s.records {
		if k.tenantID != tenantID || k.aggregateType != aggregateType {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		matched = append(matched, copyRecord(rec))
	}
	s.mu.RUnlock()

	less := recordLess(ValidateSortField(f.SortBy, RecordSortFields, "created_at"))
	desc := ValidateSortOrder(f.OrderDir) == "DESC"
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := int64(len(matched))
	start := f.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return shared.NewPaginated(matched[start:end], total, f.Page, f.PageSize), nil
}

func (s *InMemoryAggregateStore) Save(_ context.Context, rec shared.Record, expectedVersion int, events ...shared.DomainEvent) error {
	if rec.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant id is required", shared.ErrInvalidInput)
	}
	if rec.Version <= expectedVersion {
		return fmt.Errorf("%w: record version %d does not advance expected version %d",
			shared.ErrInvalidInput, rec.Version, expectedVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{rec.TenantID, rec.AggregateType, rec.ID}
	current, exists := s.records[key]
	if other, ok := s.findByKey(rec.TenantID, rec.AggregateType, rec.BusinessKey); ok && other.ID != rec.ID {
		return fmt.Errorf("%s %q: %w", rec.AggregateType, rec.BusinessKey, shared.ErrAlreadyExists)
	}

	switch {
	case expectedVersion == 0 && exists:
		return fmt.Errorf("%s %s: %w", rec.AggregateType, rec.ID, shared.ErrAlreadyExists)
	case expectedVersion > 0 && !exists:
		return shared.ErrNotFound
	case expectedVersion > 0 && current.Version != expectedVersion:
		return &shared.ConflictError{AggregateType: rec.AggregateType, ID: rec.ID, ExpectedVersion: expectedVersion}
	}

	s.records[key] = copyRecord(rec)
	s.events = append(s.events, events...)
	return nil
}

// Events returns the events saved so far, oldest first
func (s *InMemoryAggregateStore) Events() []shared.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]shared.DomainEvent(nil), s.events...)
}

// Len returns the number of stored records
func (s *InMemoryAggregateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *InMemoryAggregateStore) findByKey(tenantID uuid.UUID, aggregateType, key string) (shared.Record, bool) {
	for k, rec := range s.records {
		if k.tenantID == tenantID && k.aggregateType == aggregateType && rec.BusinessKey == key {
			return rec, true
		}
	}
	return shared.Record{}, false
}

func recordLess(field string) func(a, b shared.Record) bool {
	switch field {
	case "updated_at":
		return func(a, b shared.Record) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "business_key":
		return func(a, b shared.Record) bool { return strings.Compare(a.BusinessKey, b.BusinessKey) < 0 }
	case "status":
		return func(a, b shared.Record) bool { return a.Status < b.Status }
	case "version":
		return func(a, b shared.Record) bool { return a.Version < b.Version }
	default:
		return func(a, b shared.Record) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func copyRecord(rec shared.Record) shared.Record {
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec
}

var _ shared.AggregateStore = (*InMemoryAggregateStore)(nil)
