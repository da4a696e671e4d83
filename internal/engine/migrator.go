package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ora-schema/internal/dialect"
)

// Step statuses reported in StepResult.
const (
	StatusOK      = "OK"
	StatusSkipped = "SKIPPED"
	StatusIgnored = "IGNORED"
	StatusFailed  = "FAILED"
)

// StepResult reports the outcome of one statement.
type StepResult struct {
	Index    int
	SQL      string
	Status   string
	Err      error
	Duration time.Duration
}

// Migrator executes statements one by one. DDL commits implicitly on
// Oracle and MySQL, so a failure stops the run without any rollback.
type Migrator struct {
	ex         dialect.Execer
	log        *zap.SugaredLogger
	dryRun     bool
	onProgress func(StepResult)
}

type MigratorOption func(*Migrator)

// WithDryRun logs statements instead of executing them.
func WithDryRun(dryRun bool) MigratorOption {
	return func(m *Migrator) { m.dryRun = dryRun }
}

// WithProgress registers a callback invoked after every statement.
func WithProgress(fn func(StepResult)) MigratorOption {
	return func(m *Migrator) { m.onProgress = fn }
}

func NewMigrator(ex dialect.Execer, log *zap.SugaredLogger, opts ...MigratorOption) *Migrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Migrator{ex: ex, log: log}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run executes stmts in order and returns a result per attempted statement.
// The error of the first failing statement is returned wrapped; statements
// marked IgnoreError are logged and skipped over.
func (m *Migrator) Run(ctx context.Context, stmts []Statement) ([]StepResult, error) {
	results := make([]StepResult, 0, len(stmts))

	for i, s := range stmts {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := StepResult{Index: i, SQL: s.SQL}
		start := time.Now()

		switch {
		case m.dryRun:
			res.Status = StatusSkipped
			m.log.Infow("dry-run", "step", i+1, "sql", s.SQL)
		default:
			_, err := m.ex.ExecContext(ctx, s.SQL)
			res.Duration = time.Since(start)
			switch {
			case err == nil:
				res.Status = StatusOK
				m.log.Debugw("executed", "step", i+1, "sql", s.SQL, "elapsed", res.Duration)
			case s.IgnoreError:
				res.Status = StatusIgnored
				res.Err = err
				m.log.Warnw("statement failed, continuing", "step", i+1, "sql", s.SQL, "error", err)
			default:
				res.Status = StatusFailed
				res.Err = err
				m.log.Errorw("statement failed", "step", i+1, "sql", s.SQL, "error", err)
			}
		}

		results = append(results, res)
		if m.onProgress != nil {
			m.onProgress(res)
		}
		if res.Status == StatusFailed {
			return results, fmt.Errorf("failed to execute step %d/%d: %w", i+1, len(stmts), res.Err)
		}
	}

	return results, nil
}
