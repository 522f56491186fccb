package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	appevent "github.com/neuroerp/backend/internal/application/event"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/event"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOutboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair the transactional outbox",
	}
	cmd.AddCommand(
		newOutboxDeadCmd(a),
		newOutboxRetryCmd(a),
		newOutboxStatsCmd(a),
	)
	return cmd
}

// withOutbox opens the database and runs fn with an outbox service on it
func (a *app) withOutbox(fn func(svc *appevent.OutboxService) error) error {
	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.log.Warn("Failed to close database", zap.Error(cerr))
		}
	}()
	return fn(appevent.NewOutboxService(event.NewGormOutboxRepository(db.DB), a.log))
}

func newOutboxDeadCmd(a *app) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOutbox(func(svc *appevent.OutboxService) error {
				res, err := svc.DeadLetters(cmd.Context(), shared.Filter{Page: page, PageSize: pageSize})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Entries per page (max 100)")
	return cmd
}

func newOutboxRetryCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "retry [ENTRY_ID]",
		Short: "Re-queue one dead-lettered entry, or all of them with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either an entry id or --all")
			}
			return a.withOutbox(func(svc *appevent.OutboxService) error {
				if all {
					n, err := svc.RetryAllDead(cmd.Context())
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), map[string]int64{"requeued": n})
				}
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid entry id %q: %w", args[0], err)
				}
				view, err := svc.RetryDead(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Re-queue every dead-lettered entry")
	return cmd
}

func newOutboxStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count outbox entries per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withOutbox(func(svc *appevent.OutboxService) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}
