package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func selectRecords() (string, int64) {
	return "SELECT * FROM aggregate_records WHERE id = ?", 1
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info, WithSlowThreshold(time.Second))
	newLogger := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
	assert.Equal(t, time.Second, newGormLog.slowThreshold)
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Warn)

	gormLog.Info(context.Background(), "suppressed %s", "info")
	gormLog.Warn(context.Background(), "warning message %d", 42)
	gormLog.Error(context.Background(), "error message")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "warning message 42", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
	assert.Equal(t, "gorm", logs[0].LoggerName)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Time
		err     error
		wantMsg string
	}{
		{name: "error", level: gormlogger.Error, begin: time.Now(), err: errors.New("boom"), wantMsg: "SQL Error"},
		{name: "record not found is quiet", level: gormlogger.Error, begin: time.Now(), err: gormlogger.ErrRecordNotFound},
		{
			name:    "slow query",
			level:   gormlogger.Warn,
			opts:    []GormLoggerOption{WithSlowThreshold(time.Nanosecond)},
			begin:   time.Now().Add(-time.Second),
			wantMsg: "SLOW SQL",
		},
		{
			name:  "slow query disabled",
			level: gormlogger.Warn,
			opts:  []GormLoggerOption{WithSlowThreshold(0)},
			begin: time.Now().Add(-time.Second),
		},
		{name: "normal query", level: gormlogger.Info, begin: time.Now(), wantMsg: "SQL Query"},
		{name: "silent", level: gormlogger.Silent, begin: time.Now(), err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gormLog := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gormLog.Trace(context.Background(), tt.begin, selectRecords, tt.err)

			logs := recorded.All()
			if tt.wantMsg == "" {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
		})
	}
}

func TestGormLogger_Trace_CarriesContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info)
	tenant := uuid.New()
	ctx := WithTenantID(WithRequestID(context.Background(), "req-9"), tenant)

	gormLog.Trace(ctx, time.Now(), selectRecords, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, tenant.String(), fields["tenant_id"])
	assert.Equal(t, int64(1), fields["rows"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	const stmt = "UPDATE aggregate_records SET payload = ? WHERE id = ?"
	params := []any{`{"iban":"DE89370400440532013000"}`, uuid.New()}

	sql, vars := NewGormLogger(zap.NewNop(), gormlogger.Info).ParamsFilter(context.Background(), stmt, params...)
	assert.Equal(t, stmt, sql)
	assert.Nil(t, vars)

	_, vars = NewGormLogger(zap.NewNop(), gormlogger.Info, WithBoundParameters()).ParamsFilter(context.Background(), stmt, params...)
	assert.Equal(t, params, vars)
}
