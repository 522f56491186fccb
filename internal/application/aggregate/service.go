package aggregate

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// Viewable is an aggregate root that renders a public view of payload P
type Viewable[P any] interface {
	shared.AggregateRoot
	ToPublic() (shared.PublicView[P], error)
}

// Service is the read side and command plumbing shared by all command
// services. Context services embed it and add one method per operation.
type Service[A Viewable[P], P any] struct {
	repo *Repository[A]
}

// NewService wraps repo
func NewService[A Viewable[P], P any](repo *Repository[A]) *Service[A, P] {
	return &Service[A, P]{repo: repo}
}

// Repository returns the underlying repository
func (s *Service[A, P]) Repository() *Repository[A] {
	return s.repo
}

// Get returns the public view of the aggregate with id
func (s *Service[A, P]) Get(ctx context.Context, tenantID, id uuid.UUID) (shared.PublicView[P], error) {
	return view[A, P](s.repo.Get(ctx, tenantID, id))
}

// GetByBusinessKey returns the public view of the aggregate with key
func (s *Service[A, P]) GetByBusinessKey(ctx context.Context, tenantID uuid.UUID, key string) (shared.PublicView[P], error) {
	return view[A, P](s.repo.GetByBusinessKey(ctx, tenantID, key))
}

// List returns one page of public views
func (s *Service[A, P]) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[shared.PublicView[P]], error) {
	page, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[shared.PublicView[P]]{}, err
	}
	return MapPage(page, func(a A) (shared.PublicView[P], error) { return a.ToPublic() })
}

// Create builds and inserts a new aggregate
func (s *Service[A, P]) Create(ctx context.Context, tenantID uuid.UUID, build func(opts ...shared.Option) (A, error)) (shared.PublicView[P], error) {
	return view[A, P](s.repo.Create(ctx, tenantID, build))
}

// Do runs one operation against the stored aggregate
func (s *Service[A, P]) Do(ctx context.Context, tenantID, id uuid.UUID, op string, mutate func(A) error) (shared.PublicView[P], error) {
	return view[A, P](s.repo.Update(ctx, tenantID, id, op, mutate))
}

// MapPage converts the items of a page, keeping its paging fields
func MapPage[T, V any](page shared.Paginated[T], fn func(T) (V, error)) (shared.Paginated[V], error) {
	items := make([]V, 0, len(page.Items))
	for _, it := range page.Items {
		v, err := fn(it)
		if err != nil {
			return shared.Paginated[V]{}, err
		}
		items = append(items, v)
	}
	return shared.Paginated[V]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

func view[A Viewable[P], P any](agg A, err error) (shared.PublicView[P], error) {
	if err != nil {
		return shared.PublicView[P]{}, err
	}
	return agg.ToPublic()
}
