package event

import (
	"context"
	"errors"
	"testing"

	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1736499600000-0", nil)
}

func TestRedisStreamPublisher_PublishEntry(t *testing.T) {
	client := &fakeStream{}
	pub := newRedisStreamPublisher(client, "", 10000)
	entry := newTestEntry("Contract", shared.EventKindStatusChanged, testNow)

	require.NoError(t, pub.PublishEntry(context.Background(), entry))

	require.Len(t, client.calls, 1)
	args := client.calls[0]
	assert.Equal(t, "neuroerp:events:Contract.StatusChanged", args.Stream)
	assert.Equal(t, int64(10000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, entry.EventID.String(), values["event_id"])
	assert.Equal(t, "ContractStatusChanged", values["event_type"])
	assert.Equal(t, entry.TenantID.String(), values["tenant_id"])
	assert.Equal(t, "2", values["aggregate_version"])
	assert.Equal(t, "{}", values["payload"])
}

func TestRedisStreamPublisher_Unbounded(t *testing.T) {
	client := &fakeStream{}
	pub := newRedisStreamPublisher(client, "erp:", 0)

	require.NoError(t, pub.PublishEntry(context.Background(), newTestEntry("Shift", shared.EventKindCreated, testNow)))

	assert.Equal(t, "erp:Shift.Created", client.calls[0].Stream)
	assert.Zero(t, client.calls[0].MaxLen)
	assert.False(t, client.calls[0].Approx)
}

func TestRedisStreamPublisher_WrapsErrors(t *testing.T) {
	boom := errors.New("READONLY")
	pub := newRedisStreamPublisher(&fakeStream{err: boom}, "", 0)

	err := pub.PublishEntry(context.Background(), newTestEntry("Shift", shared.EventKindCreated, testNow))

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "neuroerp:events:Shift.Created")
}
