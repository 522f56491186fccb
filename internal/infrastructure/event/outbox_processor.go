package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EntryPublisher delivers one outbox entry to a downstream bus
type EntryPublisher interface {
	PublishEntry(ctx context.Context, entry *shared.OutboxEntry) error
}

// RelayRecorder receives the outcome of every relay pass
type RelayRecorder interface {
	RecordRelay(ctx context.Context, sent, failed, dead int)
	RecordBacklog(ctx context.Context, counts map[shared.OutboxStatus]int64)
}

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	BaseBackoff      time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		BaseBackoff:      shared.DefaultBaseBackoff,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// BatchResult summarizes one relay pass
type BatchResult struct {
	Claimed int
	Sent    int
	Failed  int
	Dead    int
}

// OutboxProcessor relays outbox entries to an EntryPublisher in the background
type OutboxProcessor struct {
	repo      shared.OutboxRepository
	publisher EntryPublisher
	config    OutboxProcessorConfig
	clock     shared.Clock
	recorder  RelayRecorder
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher EntryPublisher,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxProcessorConfig().PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultOutboxProcessorConfig().CleanupInterval
	}
	return &OutboxProcessor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		clock:     shared.SystemClock{},
		logger:    logger.Named("outbox_relay"),
	}
}

// WithClock replaces the processor's clock
func (p *OutboxProcessor) WithClock(clock shared.Clock) *OutboxProcessor {
	p.clock = clock
	return p
}

// WithRecorder reports relay outcomes and the per-status backlog after each pass
func (p *OutboxProcessor) WithRecorder(r RelayRecorder) *OutboxProcessor {
	p.recorder = r
	return p
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("relay pass failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce relays one batch of pending entries followed by one batch of
// failed entries whose retry time has come
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (BatchResult, error) {
	result, err := p.processBatch(ctx)
	p.record(ctx, result)
	return result, err
}

func (p *OutboxProcessor) processBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		return result, err
	}
	if err := p.processEntries(ctx, pending, &result); err != nil {
		return result, err
	}

	retryable, err := p.repo.FindRetryable(ctx, p.clock.Now(), p.config.BatchSize)
	if err != nil {
		return result, err
	}
	if err := p.processEntries(ctx, retryable, &result); err != nil {
		return result, err
	}
	return result, nil
}

func (p *OutboxProcessor) record(ctx context.Context, result BatchResult) {
	if p.recorder == nil {
		return
	}
	p.recorder.RecordRelay(ctx, result.Sent, result.Failed, result.Dead)
	counts, err := p.repo.CountByStatus(ctx)
	if err != nil {
		p.logger.Warn("failed to count outbox backlog", zap.Error(err))
		return
	}
	p.recorder.RecordBacklog(ctx, counts)
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry, result *BatchResult) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		return err
	}
	result.Claimed += len(claimed)

	for _, entry := range claimed {
		p.processEntry(ctx, entry, result)
	}
	return nil
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry, result *BatchResult) {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("topic", entry.Topic),
	)

	if err := p.publisher.PublishEntry(ctx, entry); err != nil {
		entry.MarkFailed(err.Error(), p.clock.Now(), p.config.BaseBackoff)
		if entry.IsDead() {
			result.Dead++
			log.Warn("event moved to dead letter queue",
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("retry_count", entry.RetryCount),
				zap.String("last_error", entry.LastError),
			)
		} else {
			result.Failed++
			log.Error("failed to publish event", zap.Int("retry_count", entry.RetryCount), zap.Error(err))
		}
		if updateErr := p.repo.Update(ctx, entry); updateErr != nil {
			log.Error("failed to update entry", zap.Error(updateErr))
		}
		return
	}

	entry.MarkSent(p.clock.Now())
	result.Sent++
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("failed to mark entry as sent", zap.Error(err))
		return
	}
	log.Debug("event relayed")
}

// RetryDead moves a dead letter back to pending so the next pass relays it again
func (p *OutboxProcessor) RetryDead(ctx context.Context, id uuid.UUID) error {
	entry, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.ResetForRetry(p.clock.Now()); err != nil {
		return err
	}
	return p.repo.Update(ctx, entry)
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(ctx)
		}
	}
}

// Cleanup removes delivered entries older than the retention window
func (p *OutboxProcessor) Cleanup(ctx context.Context) int64 {
	cutoff := p.clock.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return 0
	}

	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
