package engine_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ora-schema/internal/engine"
)

// fakeExec records statements and fails the ones listed in fail.
type fakeExec struct {
	mu      sync.Mutex
	queries []string
	args    [][]any
	fail    map[string]error
}

func (f *fakeExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if err, ok := f.fail[query]; ok {
		return nil, err
	}
	return driver.RowsAffected(0), nil
}

func TestMigratorRunsInOrder(t *testing.T) {
	ex := &fakeExec{}
	var progressed []string
	m := engine.NewMigrator(ex, nil, engine.WithProgress(func(r engine.StepResult) {
		progressed = append(progressed, r.Status)
	}))

	results, err := m.Run(context.Background(), []engine.Statement{
		{SQL: "CREATE TABLE a (x INT)"},
		{SQL: "CREATE TABLE b (y INT)"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, ex.queries)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, []string{engine.StatusOK, engine.StatusOK}, progressed)
}

func TestMigratorIgnoresExpectedFailures(t *testing.T) {
	missing := errors.New("ORA-00942: table or view does not exist")
	ex := &fakeExec{fail: map[string]error{"DROP TABLE a CASCADE CONSTRAINTS": missing}}
	core, logs := observer.New(zapcore.WarnLevel)
	m := engine.NewMigrator(ex, zap.New(core).Sugar())

	results, err := m.Run(context.Background(), []engine.Statement{
		{SQL: "DROP TABLE a CASCADE CONSTRAINTS", IgnoreError: true},
		{SQL: "CREATE TABLE a (x INT)"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, engine.StatusIgnored, results[0].Status)
	assert.ErrorIs(t, results[0].Err, missing)
	assert.Equal(t, engine.StatusOK, results[1].Status)
	assert.Equal(t, 1, logs.FilterMessage("statement failed, continuing").Len())
}

func TestMigratorStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("ORA-00955: name is already used by an existing object")
	ex := &fakeExec{fail: map[string]error{"CREATE TABLE b (y INT)": boom}}
	m := engine.NewMigrator(ex, nil)

	results, err := m.Run(context.Background(), []engine.Statement{
		{SQL: "CREATE TABLE a (x INT)"},
		{SQL: "CREATE TABLE b (y INT)"},
		{SQL: "CREATE TABLE c (z INT)"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 2/3")

	require.Len(t, results, 2)
	assert.Equal(t, engine.StatusFailed, results[1].Status)
	assert.Len(t, ex.queries, 2)
}

func TestMigratorDryRun(t *testing.T) {
	ex := &fakeExec{}
	core, logs := observer.New(zapcore.InfoLevel)
	m := engine.NewMigrator(ex, zap.New(core).Sugar(), engine.WithDryRun(true))

	results, err := m.Run(context.Background(), []engine.Statement{{SQL: "CREATE TABLE a (x INT)"}})
	require.NoError(t, err)

	assert.Empty(t, ex.queries)
	require.Len(t, results, 1)
	assert.Equal(t, engine.StatusSkipped, results[0].Status)
	entries := logs.FilterMessage("dry-run").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "CREATE TABLE a (x INT)", entries[0].ContextMap()["sql"])
}

func TestMigratorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &fakeExec{}
	results, err := engine.NewMigrator(ex, nil).Run(ctx, []engine.Statement{{SQL: "CREATE TABLE a (x INT)"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, ex.queries)
}
