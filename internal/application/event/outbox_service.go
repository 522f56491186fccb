// Package event holds operator use cases around the transactional outbox:
// inspecting dead letters, re-queuing them and reading status counts.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrEntryNotDead is returned when re-queuing an entry that is not dead-lettered
var ErrEntryNotDead = shared.NewDomainError("INVALID_STATUS", "Only dead letter entries can be retried")

// OutboxService handles outbox event management operations
type OutboxService struct {
	repo   shared.OutboxRepository
	clock  shared.Clock
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, clock: shared.SystemClock{}, logger: logger.Named("outbox_service")}
}

// WithClock replaces the clock used to stamp re-queued entries
func (s *OutboxService) WithClock(clock shared.Clock) *OutboxService {
	s.clock = clock
	return s
}

// OutboxEntryView is the operator-facing view of an outbox entry. The payload is omitted.
type OutboxEntryView struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	EventID          uuid.UUID  `json:"event_id"`
	EventType        string     `json:"event_type"`
	Topic            string     `json:"topic"`
	AggregateID      uuid.UUID  `json:"aggregate_id"`
	AggregateType    string     `json:"aggregate_type"`
	AggregateVersion int        `json:"aggregate_version"`
	Status           string     `json:"status"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	LastError        string     `json:"last_error,omitempty"`
	NextRetryAt      *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// OutboxStats counts entries per status
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// DeadLetters returns one page of dead-lettered entries
func (s *OutboxService) DeadLetters(ctx context.Context, filter shared.Filter) (shared.Paginated[OutboxEntryView], error) {
	f := filter.Normalize()
	entries, total, err := s.repo.FindDead(ctx, f.Page, f.PageSize)
	if err != nil {
		s.logger.Error("Failed to find dead letter entries", zap.Error(err))
		return shared.Paginated[OutboxEntryView]{}, fmt.Errorf("find dead letters: %w", err)
	}

	views := make([]OutboxEntryView, len(entries))
	for i, e := range entries {
		views[i] = toView(e)
	}
	return shared.NewPaginated(views, total, f.Page, f.PageSize), nil
}

// Entry returns a single entry
func (s *OutboxService) Entry(ctx context.Context, id uuid.UUID) (OutboxEntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return OutboxEntryView{}, err
	}
	return toView(entry), nil
}

// RetryDead moves one dead letter back to pending
func (s *OutboxService) RetryDead(ctx context.Context, id uuid.UUID) (OutboxEntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return OutboxEntryView{}, err
	}
	if err := s.requeue(ctx, entry); err != nil {
		return OutboxEntryView{}, err
	}
	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	return toView(entry), nil
}

// RetryAllDead re-queues every dead letter and returns how many were reset.
// Entries that fail to update are logged and skipped.
func (s *OutboxService) RetryAllDead(ctx context.Context) (int64, error) {
	const pageSize = 100
	var count int64
	for {
		// requeued entries leave the dead set, so the first page always holds what is left
		entries, _, err := s.repo.FindDead(ctx, 1, pageSize)
		if err != nil {
			return count, fmt.Errorf("find dead letters: %w", err)
		}
		progressed := false
		for _, entry := range entries {
			if err := s.requeue(ctx, entry); err != nil {
				s.logger.Error("Failed to reset dead letter entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			progressed = true
			count++
		}
		if len(entries) < pageSize || !progressed {
			break
		}
	}

	s.logger.Info("Retried dead letter entries", zap.Int64("count", count))
	return count, nil
}

// Stats returns the number of entries per status
func (s *OutboxService) Stats(ctx context.Context) (OutboxStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return OutboxStats{}, fmt.Errorf("count outbox entries: %w", err)
	}
	stats := OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Sent + stats.Failed + stats.Dead
	return stats, nil
}

func (s *OutboxService) requeue(ctx context.Context, entry *shared.OutboxEntry) error {
	if !entry.IsDead() {
		return fmt.Errorf("outbox entry %s is %s: %w", entry.ID, entry.Status, ErrEntryNotDead)
	}
	if err := entry.ResetForRetry(s.clock.Now()); err != nil {
		return errors.Join(ErrEntryNotDead, err)
	}
	return s.repo.Update(ctx, entry)
}

func toView(e *shared.OutboxEntry) OutboxEntryView {
	return OutboxEntryView{
		ID:               e.ID,
		TenantID:         e.TenantID,
		EventID:          e.EventID,
		EventType:        e.EventType,
		Topic:            e.Topic,
		AggregateID:      e.AggregateID,
		AggregateType:    e.AggregateType,
		AggregateVersion: e.AggregateVersion,
		Status:           string(e.Status),
		RetryCount:       e.RetryCount,
		MaxRetries:       e.MaxRetries,
		LastError:        e.LastError,
		NextRetryAt:      e.NextRetryAt,
		ProcessedAt:      e.ProcessedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
