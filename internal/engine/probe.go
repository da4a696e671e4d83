package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/sync/errgroup"

	"ora-schema/internal/dialect"
	"ora-schema/internal/schema"
)

// Tx is the part of *sql.Tx a probe needs.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rollback() error
}

// TxStarter opens a transaction.
type TxStarter func(ctx context.Context) (Tx, error)

// SQLTxStarter starts transactions on db.
func SQLTxStarter(db *sql.DB) TxStarter {
	return func(ctx context.Context) (Tx, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// ProbeResult reports whether a foreign key rejected an orphan row.
type ProbeResult struct {
	Table      string
	Constraint string
	Column     string
	Rejected   bool
	Err        error
}

// ProbeRow builds an INSERT into t whose column points at a parent row that
// cannot exist. Required columns get fake values, nullable ones stay NULL.
func ProbeRow(d dialect.Dialect, t *schema.Table, column string, faker *gofakeit.Faker) (string, []any, error) {
	var cols []string
	var args []any

	// Oracle keys without a trigger have to be supplied.
	if t.Options.HasID() && d.UsesSequences() && !t.Options.PrimaryKeyTrigger {
		cols = append(cols, t.Options.PrimaryKeyColumn())
		args = append(args, int64(faker.Number(100000000, 999999999)))
	}

	found := false
	for _, c := range t.AllColumns() {
		switch {
		case strings.EqualFold(c.Name, column):
			found = true
			cols = append(cols, c.Name)
			// Sequences and identities never hand out negative keys.
			args = append(args, -int64(faker.Number(1, 1000000)))
		case c.Nullable() || c.Default != "":
			continue
		default:
			v, err := fakeValue(c, faker)
			if err != nil {
				return "", nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
			cols = append(cols, c.Name)
			args = append(args, v)
		}
	}
	if !found {
		return "", nil, fmt.Errorf("table %s has no column %s", t.Name, column)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), dialect.GeneratePlaceholders(len(cols), d.Placeholder))
	return query, args, nil
}

// fakeValue generates a value that fits the column type.
func fakeValue(c *schema.Column, faker *gofakeit.Faker) (any, error) {
	switch c.Type {
	case schema.TypeString:
		n := c.Limit
		if n <= 0 || n > 12 {
			n = 12
		}
		return faker.LetterN(uint(n)), nil
	case schema.TypeText:
		return faker.Sentence(6), nil
	case schema.TypeBinary:
		return []byte(faker.LetterN(16)), nil
	case schema.TypeInteger, schema.TypeBigInt:
		return int64(faker.Number(1, 100000)), nil
	case schema.TypeDecimal:
		return float64(faker.Number(0, 9)), nil
	case schema.TypeFloat:
		return faker.Float64Range(0, 1), nil
	case schema.TypeDate, schema.TypeDatetime, schema.TypeTimestamp:
		return faker.Date(), nil
	case schema.TypeBoolean:
		return faker.Bool(), nil
	}
	return nil, fmt.Errorf("column %s: no probe value for type %q", c.Name, c.Type)
}

// Probe inserts an orphan row inside a transaction that is always rolled
// back, and reports whether the database refused it as a foreign key
// violation.
func (g *Generator) Probe(ctx context.Context, begin TxStarter, t *schema.Table, fk *schema.ForeignKey, faker *gofakeit.Faker) ProbeResult {
	column := fk.ResolvedColumn()
	res := ProbeResult{Table: t.Name, Column: column}

	name, err := g.ForeignKeyName(t.Name, column, fk.Name)
	if err != nil {
		res.Err = err
		return res
	}
	res.Constraint = name

	query, args, err := ProbeRow(g.d, t, column, faker)
	if err != nil {
		res.Err = err
		return res
	}

	tx, err := begin(ctx)
	if err != nil {
		res.Err = fmt.Errorf("failed to begin probe transaction: %w", err)
		return res
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			g.log.Warnw("probe rollback failed", "table", t.Name, "error", rbErr)
		}
	}()

	_, err = tx.ExecContext(ctx, query, args...)
	switch {
	case err == nil:
		g.log.Warnw("orphan row accepted", "table", t.Name, "constraint", name)
	case g.d.IsForeignKeyViolation(err):
		violated := g.d.ViolatedForeignKey(err)
		switch {
		case violated != "" && !strings.EqualFold(violated, name):
			res.Err = fmt.Errorf("probe insert into %s was rejected by %s, not %s: %w", t.Name, violated, name, err)
		case violated == "" && otherRequiredReferences(t, column):
			res.Err = fmt.Errorf("probe insert into %s was rejected by an unnamed foreign key, %s cannot be told apart: %w", t.Name, name, err)
		default:
			res.Rejected = true
		}
	default:
		res.Err = fmt.Errorf("probe insert into %s: %w", t.Name, err)
	}
	return res
}

// otherRequiredReferences reports whether t has a NOT NULL foreign key column
// besides column. Probe rows fill it with a value that may itself have no
// parent.
func otherRequiredReferences(t *schema.Table, column string) bool {
	required := make(map[string]bool)
	for _, c := range t.AllColumns() {
		if !c.Nullable() && c.Default == "" {
			required[strings.ToLower(c.Name)] = true
		}
	}
	for _, fk := range t.AllForeignKeys() {
		col := fk.ResolvedColumn()
		if !strings.EqualFold(col, column) && required[strings.ToLower(col)] {
			return true
		}
	}
	return false
}

// ProbeAll probes every foreign key of the definition's tables with at most
// limit probes in flight. Each probe gets its own faker seeded from seed, so
// runs are repeatable.
func (g *Generator) ProbeAll(ctx context.Context, begin TxStarter, def *schema.Definition, seed int64, limit int) ([]ProbeResult, error) {
	type target struct {
		table *schema.Table
		fk    *schema.ForeignKey
	}
	var targets []target
	for _, t := range def.Tables {
		for _, fk := range t.AllForeignKeys() {
			targets = append(targets, target{table: t, fk: fk})
		}
	}

	results := make([]ProbeResult, len(targets))
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, tg := range targets {
		i, tg := i, tg
		eg.Go(func() error {
			faker := gofakeit.New(seed + int64(i))
			results[i] = g.Probe(ctx, begin, tg.table, tg.fk, faker)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return results, fmt.Errorf("probing foreign keys: %w", err)
	}
	return results, nil
}
