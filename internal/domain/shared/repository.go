package shared

import (
	"context"

	"github.com/google/uuid"
)

// AggregateStore persists aggregate records. Implementations scope every
// query by tenant and enforce optimistic concurrency on Save.
type AggregateStore interface {
	// Get loads a record by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, tenantID uuid.UUID, aggregateType string, id uuid.UUID) (Record, error)
	// GetByBusinessKey loads a record by its tenant-unique business key
	GetByBusinessKey(ctx context.Context, tenantID uuid.UUID, aggregateType, key string) (Record, error)
	// List returns one page of records of a type
	List(ctx context.Context, tenantID uuid.UUID, aggregateType string, filter Filter) (Paginated[Record], error)
	// Save writes rec if the stored version still equals expectedVersion
	// (0 inserts a new record) and appends events to the outbox atomically.
	// Returns a ConflictError when another writer advanced the version first.
	Save(ctx context.Context, rec Record, expectedVersion int, events ...DomainEvent) error
}

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	Status   string
	SortBy   string
	OrderDir string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderDir: "desc",
	}
}

// Normalize clamps paging values into range
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	if f.OrderDir != "asc" {
		f.OrderDir = "desc"
	}
	return f
}

// Offset returns the number of rows to skip
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
