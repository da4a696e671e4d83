package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ora-schema/internal/dialect"
	"ora-schema/internal/naming"
	"ora-schema/internal/schema"
)

// DefaultSequenceStart is the first value of generated primary key sequences.
const DefaultSequenceStart = 10000

// Statement is one DDL statement. IgnoreError marks statements whose failure
// is expected, such as dropping a table that may not exist.
type Statement struct {
	SQL         string
	IgnoreError bool
}

// Options carry the naming and sequence settings into a Generator. Zero
// naming fields fall back to the dialect's rules.
type Options struct {
	Naming               naming.Config
	DefaultSequenceStart int64
}

// DefaultOptions returns the dialect's naming rules and the default sequence
// start.
func DefaultOptions(d dialect.Dialect) Options {
	return Options{Naming: d.Naming(), DefaultSequenceStart: DefaultSequenceStart}
}

func (o Options) namingFor(d dialect.Dialect) naming.Config {
	cfg := d.Naming()
	if o.Naming.MaxLength > 0 {
		cfg.MaxLength = o.Naming.MaxLength
	}
	if o.Naming.HashLength > 0 {
		cfg.HashLength = o.Naming.HashLength
	}
	if o.Naming.AbbreviateWidth > 0 {
		cfg.AbbreviateWidth = o.Naming.AbbreviateWidth
	}
	if o.Naming.Fold != naming.FoldDefault {
		cfg.Fold = o.Naming.Fold
	}
	if len(o.Naming.HashFallback) > 0 {
		cfg.HashFallback = o.Naming.HashFallback
	}
	return cfg
}

// Generator renders schema definitions into DDL statements for one dialect.
// It performs no I/O and is safe for concurrent use.
type Generator struct {
	d     dialect.Dialect
	namer *naming.Namer
	start int64
	log   *zap.SugaredLogger
}

func NewGenerator(d dialect.Dialect, opts Options, log *zap.SugaredLogger) *Generator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	start := opts.DefaultSequenceStart
	if start <= 0 {
		start = DefaultSequenceStart
	}
	return &Generator{
		d:     d,
		namer: naming.New(opts.namingFor(d)),
		start: start,
		log:   log,
	}
}

// Namer returns the identifier namer used for generated names.
func (g *Generator) Namer() *naming.Namer {
	return g.namer
}

// Dialect returns the target dialect.
func (g *Generator) Dialect() dialect.Dialect {
	return g.d
}

// CreateTable renders the table, its key sequence and trigger, comments,
// indexes and foreign keys.
func (g *Generator) CreateTable(t *schema.Table) ([]Statement, error) {
	stmts, err := g.forcedDrops([]*schema.Table{t})
	if err != nil {
		return nil, err
	}
	create, err := g.createTable(t)
	if err != nil {
		return nil, err
	}
	fks, err := g.foreignKeys(t.Name, t.AllForeignKeys())
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, create...)
	return append(stmts, fks...), nil
}

// forcedDrops drops the tables marked force, in the given order, ignoring
// missing tables.
func (g *Generator) forcedDrops(tables []*schema.Table) ([]Statement, error) {
	var stmts []Statement
	for _, t := range tables {
		if !t.Options.Force {
			continue
		}
		drops, err := g.DropTable(t, true)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, drops...)
	}
	return stmts, nil
}

func (g *Generator) createTable(t *schema.Table) ([]Statement, error) {
	if err := g.namer.Validate(baseName(t.Name)); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}

	var stmts []Statement
	var defs []string
	if t.Options.HasID() {
		defs = append(defs, g.d.IdentityColumn(t.Options.PrimaryKeyColumn(), g.startValue(t.Options.SequenceStartValue).Value))
	}
	for _, c := range t.AllColumns() {
		def, err := g.columnDefinition(c)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("table %s: no columns", t.Name)
	}

	stmts = append(stmts, Statement{SQL: g.d.CreateTable(t.Name, defs, t.Comment)})
	stmts = append(stmts, g.comments(t.Name, t.Comment, t.Columns)...)

	if t.Options.HasID() {
		keys, err := g.primaryKeyObjects(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, keys...)
	} else if t.Options.PrimaryKeyTrigger {
		return nil, fmt.Errorf("table %s: primary_key_trigger requires an id column", t.Name)
	}

	for _, idx := range t.Indexes {
		s, err := g.AddIndex(t.Name, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// primaryKeyObjects renders the sequence and optional trigger on Oracle, or
// the identity start adjustment elsewhere.
func (g *Generator) primaryKeyObjects(t *schema.Table) ([]Statement, error) {
	start := g.startValue(t.Options.SequenceStartValue)

	if !g.d.UsesSequences() {
		if t.Options.PrimaryKeyTrigger {
			_, err := g.d.PrimaryKeyTrigger(t.Name, "", "", t.Options.PrimaryKeyColumn())
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		var stmts []Statement
		for _, sql := range g.d.IdentityStart(t.Name, start.Value) {
			stmts = append(stmts, Statement{SQL: sql})
		}
		return stmts, nil
	}

	seq, err := g.objectName(t.Options.SequenceName, g.namer.SequenceName(baseName(t.Name)))
	if err != nil {
		return nil, fmt.Errorf("table %s: sequence: %w", t.Name, err)
	}
	createSeq, err := g.d.CreateSequence(seq, start.String())
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}
	stmts := []Statement{{SQL: createSeq}}

	if t.Options.PrimaryKeyTrigger {
		trigger, err := g.objectName(t.Options.TriggerName, g.namer.TriggerName(baseName(t.Name)))
		if err != nil {
			return nil, fmt.Errorf("table %s: trigger: %w", t.Name, err)
		}
		sql, err := g.d.PrimaryKeyTrigger(t.Name, trigger, seq, t.Options.PrimaryKeyColumn())
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		stmts = append(stmts, Statement{SQL: sql})
	}
	return stmts, nil
}

func (g *Generator) startValue(sv schema.StartValue) schema.StartValue {
	if sv.IsZero() {
		return schema.StartAt(g.start)
	}
	return sv
}

// objectName returns the user supplied name after validation, or def.
func (g *Generator) objectName(given, def string) (string, error) {
	if given == "" {
		return def, nil
	}
	if err := g.namer.Validate(given); err != nil {
		return "", err
	}
	return g.namer.Normalize(given), nil
}

func (g *Generator) columnDefinition(c *schema.Column) (string, error) {
	if err := g.namer.Validate(c.Name); err != nil {
		return "", fmt.Errorf("column %s: %w", c.Name, err)
	}
	sqlType, err := g.d.ColumnType(string(c.Type), c.Limit, c.Precision, c.Scale)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", c.Name, err)
	}
	return g.d.ColumnDefinition(c.Name, sqlType, c.Nullable(), defaultLiteral(c), c.Comment), nil
}

func (g *Generator) comments(table, comment string, cols []*schema.Column) []Statement {
	var stmts []Statement
	if comment != "" {
		for _, sql := range g.d.TableComment(table, comment) {
			stmts = append(stmts, Statement{SQL: sql})
		}
	}
	for _, c := range cols {
		if c.Comment == "" {
			continue
		}
		for _, sql := range g.d.ColumnComment(table, c.Name, c.Comment) {
			stmts = append(stmts, Statement{SQL: sql})
		}
	}
	return stmts
}

// defaultLiteral renders a column default. Numbers are kept as they are,
// booleans become 1/0 and everything else is quoted.
func defaultLiteral(c *schema.Column) string {
	if c.Default == "" {
		return ""
	}
	if c.Type == schema.TypeBoolean {
		if b, err := strconv.ParseBool(c.Default); err == nil {
			if b {
				return dialect.QuoteString("1")
			}
			return dialect.QuoteString("0")
		}
	}
	if _, err := strconv.ParseFloat(c.Default, 64); err == nil {
		return c.Default
	}
	return dialect.QuoteString(c.Default)
}

// DropTable drops the table and, on Oracle, its key sequence. The trigger
// goes with the table.
func (g *Generator) DropTable(t *schema.Table, ignoreMissing bool) ([]Statement, error) {
	stmts := []Statement{{SQL: g.d.DropTable(t.Name), IgnoreError: ignoreMissing}}
	if t.Options.HasID() && g.d.UsesSequences() {
		seq, err := g.objectName(t.Options.SequenceName, g.namer.SequenceName(baseName(t.Name)))
		if err != nil {
			return nil, fmt.Errorf("table %s: sequence: %w", t.Name, err)
		}
		sql, err := g.d.DropSequence(seq)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{SQL: sql, IgnoreError: ignoreMissing})
	}
	return stmts, nil
}

// AddColumn renders an ALTER TABLE for one column plus its comment.
func (g *Generator) AddColumn(table string, c *schema.Column) ([]Statement, error) {
	def, err := g.columnDefinition(c)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	stmts := []Statement{{SQL: g.d.AddColumn(table, def)}}
	return append(stmts, g.comments(table, "", []*schema.Column{c})...), nil
}

// IndexName resolves the name of idx on table.
func (g *Generator) IndexName(table string, idx *schema.Index) (string, error) {
	name, err := g.namer.Generate(naming.Request{
		Kind:    naming.KindIndex,
		Table:   baseName(table),
		Columns: idx.Columns,
		Name:    idx.Name,
	})
	if err != nil {
		return "", fmt.Errorf("index on %s: %w", table, err)
	}
	return name, nil
}

func (g *Generator) AddIndex(table string, idx *schema.Index) (Statement, error) {
	name, err := g.IndexName(table, idx)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: g.d.CreateIndex(name, table, idx.Columns, idx.Unique)}, nil
}

func (g *Generator) RemoveIndex(table string, idx *schema.Index) (Statement, error) {
	name, err := g.IndexName(table, idx)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: g.d.DropIndex(name, table)}, nil
}

// ForeignKeyName resolves the constraint name for column on table. A name
// that had to be shortened is logged, since it differs from what the caller
// will see in the schema file.
func (g *Generator) ForeignKeyName(table, column, explicit string) (string, error) {
	name, err := g.namer.ForeignKeyName(baseName(table), column, explicit)
	if err != nil {
		return "", fmt.Errorf("foreign key on %s: %w", table, err)
	}
	req := naming.Request{Kind: naming.KindForeignKey, Table: baseName(table), Columns: []string{column}, Name: explicit}
	if candidate := g.namer.Candidate(req); !strings.EqualFold(candidate, name) {
		g.log.Warnw("foreign key name shortened",
			"table", table,
			"original", candidate,
			"name", name,
			"max_length", g.namer.MaxLength())
	}
	return name, nil
}

func (g *Generator) AddForeignKey(table string, fk *schema.ForeignKey) (Statement, error) {
	if err := fk.Validate(); err != nil {
		return Statement{}, fmt.Errorf("table %s: %w", table, err)
	}
	column := fk.ResolvedColumn()
	name, err := g.ForeignKeyName(table, column, fk.Name)
	if err != nil {
		return Statement{}, err
	}
	onDelete, err := dialect.OnDeleteClause(fk.Dependent)
	if err != nil {
		return Statement{}, fmt.Errorf("foreign key %s: %w", name, err)
	}
	return Statement{SQL: g.d.AddForeignKey(table, name, column, fk.ToTable, fk.ResolvedPrimaryKey(), onDelete)}, nil
}

// RemoveForeignKey regenerates the constraint name the same way
// AddForeignKey did and drops it.
func (g *Generator) RemoveForeignKey(table string, r *schema.ForeignKeyRemoval) (Statement, error) {
	if err := r.Validate(); err != nil {
		return Statement{}, fmt.Errorf("table %s: %w", table, err)
	}
	name, err := g.ForeignKeyName(table, r.ResolvedColumn(), r.Name)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: g.d.DropForeignKey(table, name)}, nil
}

// AddPrimaryKeyTrigger adds the key trigger to an existing table whose
// sequence already exists.
func (g *Generator) AddPrimaryKeyTrigger(table string, opts *schema.TriggerOptions) (Statement, error) {
	if opts == nil {
		opts = &schema.TriggerOptions{}
	}
	seq, err := g.objectName(opts.SequenceName, g.namer.SequenceName(baseName(table)))
	if err != nil {
		return Statement{}, fmt.Errorf("table %s: sequence: %w", table, err)
	}
	trigger, err := g.objectName(opts.TriggerName, g.namer.TriggerName(baseName(table)))
	if err != nil {
		return Statement{}, fmt.Errorf("table %s: trigger: %w", table, err)
	}
	pk := opts.PrimaryKey
	if pk == "" {
		pk = "id"
	}
	sql, err := g.d.PrimaryKeyTrigger(table, trigger, seq, pk)
	if err != nil {
		return Statement{}, fmt.Errorf("table %s: %w", table, err)
	}
	return Statement{SQL: sql}, nil
}

func (g *Generator) foreignKeys(table string, fks []*schema.ForeignKey) ([]Statement, error) {
	var stmts []Statement
	for _, fk := range fks {
		s, err := g.AddForeignKey(table, fk)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// Plan renders a whole definition: forced drops children first, tables in
// dependency order, then every foreign key, then the changes in file order.
// Adding constraints after all tables exist lets circular references apply.
func (g *Generator) Plan(def *schema.Definition) ([]Statement, error) {
	sorted, broken := schema.SortByDependencies(def.Tables, g.log)
	if len(broken) > 0 {
		g.log.Infow("circular table references, constraints are added after all tables", "tables", broken)
	}

	// Without CASCADE a parent cannot be dropped while a child still refers to it.
	stmts, err := g.forcedDrops(schema.Reverse(sorted))
	if err != nil {
		return nil, err
	}
	for _, t := range sorted {
		s, err := g.createTable(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	for _, t := range sorted {
		s, err := g.foreignKeys(t.Name, t.AllForeignKeys())
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	for _, c := range def.Changes {
		s, err := g.change(c)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	return stmts, nil
}

func (g *Generator) change(c *schema.Change) ([]Statement, error) {
	var stmts []Statement
	add := func(s Statement, err error) error {
		if err != nil {
			return err
		}
		stmts = append(stmts, s)
		return nil
	}

	for _, col := range c.AddColumns {
		s, err := g.AddColumn(c.Table, col)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	for _, r := range c.AddReferences {
		s, err := g.AddColumn(c.Table, r.AsColumn())
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
		if r.ForeignKey {
			if err := add(g.AddForeignKey(c.Table, r.AsForeignKey())); err != nil {
				return nil, err
			}
		}
	}
	for _, fk := range c.AddForeignKeys {
		if err := add(g.AddForeignKey(c.Table, fk)); err != nil {
			return nil, err
		}
	}
	for _, r := range c.RemoveForeignKeys {
		if err := add(g.RemoveForeignKey(c.Table, r)); err != nil {
			return nil, err
		}
	}
	for _, idx := range c.AddIndexes {
		if err := add(g.AddIndex(c.Table, idx)); err != nil {
			return nil, err
		}
	}
	for _, idx := range c.RemoveIndexes {
		if err := add(g.RemoveIndex(c.Table, idx)); err != nil {
			return nil, err
		}
	}
	if c.PrimaryKeyTrigger != nil {
		if err := add(g.AddPrimaryKeyTrigger(c.Table, c.PrimaryKeyTrigger)); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

// DropPlan drops the definition's tables in reverse dependency order.
func (g *Generator) DropPlan(def *schema.Definition, ignoreMissing bool) ([]Statement, error) {
	sorted, _ := schema.SortByDependencies(def.Tables, g.log)
	var stmts []Statement
	for _, t := range schema.Reverse(sorted) {
		s, err := g.DropTable(t, ignoreMissing)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	return stmts, nil
}

// baseName strips a "schema." qualifier; generated names derive from the
// bare table name.
func baseName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}
