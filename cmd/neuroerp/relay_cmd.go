package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neuroerp/backend/internal/application/aggregate"
	appintegration "github.com/neuroerp/backend/internal/application/integration"
	"github.com/neuroerp/backend/internal/domain/contracts"
	"github.com/neuroerp/backend/internal/domain/crm"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/integration"
	"github.com/neuroerp/backend/internal/infrastructure/cache"
	"github.com/neuroerp/backend/internal/infrastructure/event"
	"github.com/neuroerp/backend/internal/infrastructure/persistence"
	"github.com/neuroerp/backend/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	targetRedis = "redis"
	targetBus   = "bus"
	targetBoth  = "both"

	shutdownTimeout = 15 * time.Second
)

func newRelayCmd(a *app) *cobra.Command {
	var (
		once   bool
		target string
	)
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver outbox entries to Redis Streams or the in-process bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch target {
			case targetRedis, targetBus, targetBoth:
			default:
				return fmt.Errorf("unknown relay target %q", target)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runRelay(ctx, target, once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single relay pass and exit")
	cmd.Flags().StringVar(&target, "target", targetRedis, "Delivery target: redis, bus or both")
	return cmd
}

// newSerializer registers the event types of every aggregate
func newSerializer() *event.EventSerializer {
	s := event.NewEventSerializer()
	for _, t := range []string{
		contracts.AggregateTypeContract,
		crm.AggregateTypeCustomer,
		crm.AggregateTypeOpportunity,
		hr.AggregateTypeEmployee,
		hr.AggregateTypeLeaveRequest,
		hr.AggregateTypeShift,
		hr.AggregateTypeTimeEntry,
		integration.AggregateTypeIntegration,
	} {
		s.RegisterAggregate(t)
	}
	s.RegisterAggregate(integration.AggregateTypeWebhook, integration.EventKindTriggered)
	return s
}

func (a *app) runRelay(ctx context.Context, target string, once bool) error {
	cfg := a.cfg
	log := a.log

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			log.Warn("Failed to shut down telemetry", zap.Error(err))
		}
	}()

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewAggregateMetrics(providers.Meter.Meter("neuroerp/relay"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	serializer := newSerializer()
	var publishers event.FanoutPublisher

	if target == targetRedis || target == targetBoth {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		publishers = append(publishers, event.NewRedisStreamPublisher(client, cfg.Redis.StreamPrefix, cfg.Redis.StreamMaxLen))
	}

	if target == targetBus || target == targetBoth {
		bus, closeBus, err := a.newDispatchBus(ctx, db, serializer, metrics)
		if err != nil {
			return err
		}
		defer closeBus()
		publishers = append(publishers, event.NewBusEntryPublisher(bus, serializer))
	}

	var publisher event.EntryPublisher = publishers
	if len(publishers) == 1 {
		publisher = publishers[0]
	}

	processor := event.NewOutboxProcessor(
		event.NewGormOutboxRepository(db.DB),
		publisher,
		event.OutboxProcessorConfig{
			BatchSize:        cfg.Outbox.BatchSize,
			PollInterval:     cfg.Outbox.PollInterval,
			BaseBackoff:      cfg.Outbox.BaseBackoff,
			CleanupEnabled:   cfg.Outbox.CleanupEnabled,
			CleanupRetention: cfg.Outbox.CleanupRetention,
		},
		log,
	).WithRecorder(metrics)

	if once {
		res, err := processor.ProcessOnce(ctx)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, res)
	}

	if !cfg.Outbox.RelayEnabled {
		log.Warn("Outbox relay is disabled in configuration, nothing to do")
		return nil
	}
	if err := processor.Start(ctx); err != nil {
		return err
	}
	log.Info("Outbox relay running", zap.String("target", target))

	<-ctx.Done()
	log.Info("Shutting down outbox relay")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return processor.Stop(sctx)
}

// newDispatchBus builds the in-process bus with the webhook dispatcher
// subscribed behind an idempotency guard. Webhook triggers it records go back
// through the outbox of the same database.
func (a *app) newDispatchBus(
	ctx context.Context,
	db *persistence.Database,
	serializer *event.EventSerializer,
	metrics *telemetry.AggregateMetrics,
) (*event.InMemoryEventBus, func(), error) {
	store, err := cache.NewIdempotencyStoreFactory(a.cfg.Redis, cache.WithLogger(a.log)).CreateStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create idempotency store: %w", err)
	}

	outbox := event.NewOutboxPublisher(serializer, event.WithMaxRetries(a.cfg.Outbox.MaxRetries))
	webhooks := appintegration.NewWebhookService(
		persistence.NewGormAggregateStore(db.DB, outbox),
		aggregate.WithLogger(a.log),
		aggregate.WithMetrics(metrics),
	)

	bus := event.NewInMemoryEventBus(a.log)
	dispatcher := appintegration.NewWebhookDispatcher(webhooks, a.log)
	bus.Subscribe(event.NewIdempotentHandler("webhook-dispatcher", dispatcher, store, a.log))

	closeFn := func() {
		if err := store.Close(); err != nil {
			a.log.Warn("Failed to close idempotency store", zap.Error(err))
		}
	}
	return bus, closeFn, nil
}
