package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	ctx := context.Background()

	first := newTestEntry("Contract", shared.EventKindCreated, testNow)
	second := newTestEntry("Contract", shared.EventKindStatusChanged, testNow.Add(time.Second))
	require.NoError(t, repo.Save(ctx, second, first))
	require.NoError(t, repo.Save(ctx))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, "Contract.Created", pending[0].Topic)
	assert.Equal(t, 2, pending[0].AggregateVersion)
	assert.JSONEq(t, `{}`, string(pending[0].Payload))

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	clock := newStepClock()
	repo := NewGormOutboxRepository(setupSQLiteDB(t)).WithClock(clock)
	ctx := context.Background()

	pending := newTestEntry("Shift", shared.EventKindUpdated, testNow)
	sent := newTestEntry("Shift", shared.EventKindUpdated, testNow)
	sent.MarkSent(testNow)
	require.NoError(t, repo.Save(ctx, pending, sent))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID, sent.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry can only be claimed once")

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormOutboxRepository_MarkProcessing_SkipsLockedRowsOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := repo.MarkProcessing(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_UpdateAndRetryable(t *testing.T) {
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	ctx := context.Background()

	entry := newTestEntry("Webhook", "Triggered", testNow)
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkFailed("connection refused", testNow, time.Minute)
	require.NoError(t, repo.Update(ctx, entry))

	due, err := repo.FindRetryable(ctx, testNow.Add(30*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindRetryable(ctx, testNow.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "connection refused", due[0].LastError)

	missing := newTestEntry("Webhook", "Triggered", testNow)
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrNotFound)
}

func TestGormOutboxRepository_FindByID(t *testing.T) {
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	ctx := context.Background()

	entry := newTestEntry("Employee", shared.EventKindCreated, testNow)
	require.NoError(t, repo.Save(ctx, entry))

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, found.EventID)
	assert.Equal(t, "EmployeeCreated", found.EventType)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_DeadLettersAndCounts(t *testing.T) {
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	ctx := context.Background()

	dead := newTestEntry("Integration", shared.EventKindUpdated, testNow)
	dead.MaxRetries = 1
	dead.MarkFailed("bad gateway", testNow, time.Second)
	require.True(t, dead.IsDead())
	pending := newTestEntry("Integration", shared.EventKindUpdated, testNow)
	require.NoError(t, repo.Save(ctx, dead, pending))

	entries, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, dead.ID, entries[0].ID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	repo := NewGormOutboxRepository(setupSQLiteDB(t))
	ctx := context.Background()

	old := newTestEntry("Customer", shared.EventKindCreated, testNow)
	old.MarkSent(testNow)
	recent := newTestEntry("Customer", shared.EventKindCreated, testNow)
	recent.MarkSent(testNow.Add(48 * time.Hour))
	pending := newTestEntry("Customer", shared.EventKindCreated, testNow)
	require.NoError(t, repo.Save(ctx, old, recent, pending))

	deleted, err := repo.DeleteSentBefore(ctx, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}
