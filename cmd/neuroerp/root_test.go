package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	apphr "github.com/neuroerp/backend/internal/application/hr"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/infrastructure/config"
	"github.com/neuroerp/backend/internal/infrastructure/event"
	"github.com/neuroerp/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Setenv("NEUROERP_LOG_OUTPUT", "stderr")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Tree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"migrate", "force"},
		{"migrate", "create"},
		{"relay"},
		{"outbox", "dead"},
		{"outbox", "retry"},
		{"outbox", "stats"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestMigrateCreate(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := run(t, "migrate", "create", "add_shift_location", "index shifts by location", "--dir", dir)
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRelay_RejectsUnknownTarget(t *testing.T) {
	clearEnv(t)
	_, err := run(t, "relay", "--once", "--target", "kafka")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestOutboxRetry_NeedsIDOrAll(t *testing.T) {
	clearEnv(t)

	_, err := run(t, "outbox", "retry")
	assert.Error(t, err)

	_, err = run(t, "outbox", "retry", uuid.NewString(), "--all")
	assert.Error(t, err)
}

func TestOutboxStats(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "neuroerp.db")
	t.Setenv("NEUROERP_DATABASE_DRIVER", "sqlite")
	t.Setenv("NEUROERP_DATABASE_PATH", path)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: path}, persistence.WithAutoMigrate())
	require.NoError(t, err)
	outbox := event.NewOutboxPublisher(newSerializer())
	svc := apphr.NewEmployeeService(persistence.NewGormAggregateStore(db.DB, outbox))
	_, err = svc.Create(context.Background(), uuid.New(), hr.EmployeePayload{
		EmployeeNumber: "E-0001",
		FirstName:      "Jana",
		LastName:       "Brandt",
		HireDate:       "2024-04-01",
		WeeklyHours:    40,
	}, "hr-admin")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "outbox", "stats")
	require.NoError(t, err)

	var stats struct {
		Pending int64 `json:"pending"`
		Total   int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Total)
}
