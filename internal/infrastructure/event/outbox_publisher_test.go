package event

import (
	"context"
	"errors"
	"testing"

	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db := setupSQLiteDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer(), WithPublisherClock(newStepClock()), WithMaxRetries(3))
	ctx := context.Background()

	events := []shared.DomainEvent{
		newTestEvent("Contract", shared.EventKindCreated),
		newTestEvent("Contract", shared.EventKindStatusChanged),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(ctx, tx, events...)
	})
	require.NoError(t, err)

	var rows []models.OutboxEntryModel
	require.NoError(t, db.Order("event_type").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "ContractCreated", rows[0].EventType)
	assert.Equal(t, "Contract.Created", rows[0].Topic)
	assert.Equal(t, events[0].EventID(), rows[0].EventID)
	assert.Equal(t, shared.OutboxStatusPending, rows[0].Status)
	assert.Equal(t, 3, rows[0].MaxRetries)
	assert.True(t, rows[0].CreatedAt.Equal(testNow))
	assert.Contains(t, string(rows[0].Payload), `"kind":"Created"`)
}

func TestOutboxPublisher_RollsBackWithTransaction(t *testing.T) {
	db := setupSQLiteDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer())
	ctx := context.Background()

	testErr := errors.New("aggregate write failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.SaveEvents(ctx, tx, newTestEvent("Shift", shared.EventKindUpdated)); err != nil {
			return err
		}
		return testErr
	})
	assert.Equal(t, testErr, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	publisher := NewOutboxPublisher(NewEventSerializer())
	ctx := context.Background()

	t.Run("no events is a no-op", func(t *testing.T) {
		assert.NoError(t, publisher.SaveEvents(ctx, nil))
	})

	t.Run("rejects foreign transaction handles", func(t *testing.T) {
		err := publisher.SaveEvents(ctx, "not-a-tx", newTestEvent("Shift", shared.EventKindUpdated))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "*gorm.DB")
	})
}
