package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// Definition is the content of a schema file.
type Definition struct {
	// TablePrefix is prepended to every table name, referenced tables
	// included, before any object name is derived.
	TablePrefix string    `mapstructure:"table_prefix"`
	Tables      []*Table  `mapstructure:"tables"`
	Changes     []*Change `mapstructure:"changes"`
}

// ApplyPrefix renames the tables of the definition with TablePrefix and
// clears it. Columns derived from a table name are pinned first, so a
// reference to "posts" keeps its "post_id" column under any prefix.
func (d *Definition) ApplyPrefix() {
	p := d.TablePrefix
	if p == "" {
		return
	}
	for _, t := range d.Tables {
		t.Name = prefixed(p, t.Name)
		prefixReferences(p, t.References)
		prefixForeignKeys(p, t.ForeignKeys)
	}
	for _, c := range d.Changes {
		c.Table = prefixed(p, c.Table)
		prefixReferences(p, c.AddReferences)
		prefixForeignKeys(p, c.AddForeignKeys)
		for _, r := range c.RemoveForeignKeys {
			if r.ToTable == "" {
				continue
			}
			r.Column = r.ResolvedColumn()
			r.ToTable = prefixed(p, r.ToTable)
		}
	}
	d.TablePrefix = ""
}

func prefixReferences(p string, refs []*Reference) {
	for _, r := range refs {
		r.ToTable = prefixed(p, r.Table())
	}
}

func prefixForeignKeys(p string, fks []*ForeignKey) {
	for _, fk := range fks {
		fk.Column = fk.ResolvedColumn()
		fk.ToTable = prefixed(p, fk.ToTable)
	}
}

// prefixed keeps a schema qualifier in front: "app.posts" gives "app.t_posts".
func prefixed(p, table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[:i+1] + p + table[i+1:]
	}
	return p + table
}

type Table struct {
	Name        string        `mapstructure:"name"`
	Comment     string        `mapstructure:"comment"`
	Options     TableOptions  `mapstructure:",squash"`
	Columns     []*Column     `mapstructure:"columns"`
	References  []*Reference  `mapstructure:"references"`
	ForeignKeys []*ForeignKey `mapstructure:"foreign_keys"`
	Indexes     []*Index      `mapstructure:"indexes"`
}

// TableOptions are the recognised create-table options. Zero values select
// the documented defaults.
type TableOptions struct {
	// ID creates a surrogate numeric primary key (default true).
	ID *bool `mapstructure:"id"`
	// PrimaryKey is the surrogate key column (default "id").
	PrimaryKey string `mapstructure:"primary_key"`
	// PrimaryKeyTrigger adds a before-insert trigger filling the key from the
	// sequence (Oracle only, default false).
	PrimaryKeyTrigger bool `mapstructure:"primary_key_trigger"`
	// SequenceName overrides "<table>_seq".
	SequenceName string `mapstructure:"sequence_name"`
	// SequenceStartValue overrides the configured default start value.
	SequenceStartValue StartValue `mapstructure:"sequence_start_value"`
	// TriggerName overrides "<table>_pkt".
	TriggerName string `mapstructure:"trigger_name"`
	// Force drops the table first and ignores a missing table.
	Force bool `mapstructure:"force"`
}

// HasID reports whether a surrogate primary key is created.
func (o TableOptions) HasID() bool {
	return o.ID == nil || *o.ID
}

// PrimaryKeyColumn returns the key column name.
func (o TableOptions) PrimaryKeyColumn() string {
	if o.PrimaryKey == "" {
		return "id"
	}
	return o.PrimaryKey
}

type ColumnType string

const (
	TypeString    ColumnType = "string"
	TypeText      ColumnType = "text"
	TypeBinary    ColumnType = "binary"
	TypeInteger   ColumnType = "integer"
	TypeBigInt    ColumnType = "bigint"
	TypeDecimal   ColumnType = "decimal"
	TypeFloat     ColumnType = "float"
	TypeDate      ColumnType = "date"
	TypeDatetime  ColumnType = "datetime"
	TypeTimestamp ColumnType = "timestamp"
	TypeBoolean   ColumnType = "boolean"
)

type Column struct {
	Name      string     `mapstructure:"name"`
	Type      ColumnType `mapstructure:"type"`
	Limit     int        `mapstructure:"limit"`
	Precision int        `mapstructure:"precision"`
	Scale     int        `mapstructure:"scale"`
	Null      *bool      `mapstructure:"null"`
	Default   string     `mapstructure:"default"`
	Comment   string     `mapstructure:"comment"`
}

// Nullable defaults to true.
func (c *Column) Nullable() bool {
	return c.Null == nil || *c.Null
}

// Reference adds a "<name>_id" column pointing at another table and
// optionally its foreign key constraint.
type Reference struct {
	Name       string `mapstructure:"name"`
	ToTable    string `mapstructure:"to_table"`
	ForeignKey bool   `mapstructure:"foreign_key"`
	Null       *bool  `mapstructure:"null"`
	Dependent  string `mapstructure:"dependent"`
}

// Column is the generated column name.
func (r *Reference) Column() string {
	return r.Name + "_id"
}

// Table is the referenced table, the plural of Name unless set.
func (r *Reference) Table() string {
	if r.ToTable != "" {
		return r.ToTable
	}
	return inflection.Plural(r.Name)
}

// AsColumn returns the column definition the reference adds.
func (r *Reference) AsColumn() *Column {
	return &Column{Name: r.Column(), Type: TypeBigInt, Null: r.Null}
}

// AsForeignKey returns the constraint the reference adds.
func (r *Reference) AsForeignKey() *ForeignKey {
	return &ForeignKey{ToTable: r.Table(), Column: r.Column(), Dependent: r.Dependent}
}

const (
	DependentNone    = ""
	DependentDelete  = "delete"
	DependentNullify = "nullify"
)

type ForeignKey struct {
	ToTable    string `mapstructure:"to_table"`
	Column     string `mapstructure:"column"`
	PrimaryKey string `mapstructure:"primary_key"`
	Name       string `mapstructure:"name"`
	Dependent  string `mapstructure:"dependent"`
}

// ResolvedColumn is Column, or the singular of ToTable suffixed with "_id".
func (fk *ForeignKey) ResolvedColumn() string {
	if fk.Column != "" {
		return fk.Column
	}
	return ColumnFor(fk.ToTable)
}

// ResolvedPrimaryKey defaults to "id".
func (fk *ForeignKey) ResolvedPrimaryKey() string {
	if fk.PrimaryKey != "" {
		return fk.PrimaryKey
	}
	return "id"
}

// ForeignKeyRemoval identifies a constraint by explicit name, by column or by
// referenced table, in that order of precedence.
type ForeignKeyRemoval struct {
	ToTable string `mapstructure:"to_table"`
	Column  string `mapstructure:"column"`
	Name    string `mapstructure:"name"`
}

// ResolvedColumn mirrors ForeignKey.ResolvedColumn.
func (r *ForeignKeyRemoval) ResolvedColumn() string {
	if r.Column != "" {
		return r.Column
	}
	if r.ToTable == "" {
		return ""
	}
	return ColumnFor(r.ToTable)
}

type Index struct {
	Columns []string `mapstructure:"columns"`
	Name    string   `mapstructure:"name"`
	Unique  bool     `mapstructure:"unique"`
}

// TriggerOptions configure a primary key trigger added to an existing table.
type TriggerOptions struct {
	PrimaryKey   string `mapstructure:"primary_key"`
	SequenceName string `mapstructure:"sequence_name"`
	TriggerName  string `mapstructure:"trigger_name"`
}

// Change alters an existing table.
type Change struct {
	Table             string               `mapstructure:"table"`
	AddColumns        []*Column            `mapstructure:"add_columns"`
	AddReferences     []*Reference         `mapstructure:"add_references"`
	AddForeignKeys    []*ForeignKey        `mapstructure:"add_foreign_keys"`
	RemoveForeignKeys []*ForeignKeyRemoval `mapstructure:"remove_foreign_keys"`
	AddIndexes        []*Index             `mapstructure:"add_indexes"`
	RemoveIndexes     []*Index             `mapstructure:"remove_indexes"`
	PrimaryKeyTrigger *TriggerOptions      `mapstructure:"primary_key_trigger"`
}

// ColumnFor derives the foreign key column for a referenced table:
// "test_posts" gives "test_post_id".
func ColumnFor(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		table = table[i+1:]
	}
	return inflection.Singular(table) + "_id"
}

// AllColumns returns declared columns followed by reference columns.
func (t *Table) AllColumns() []*Column {
	cols := make([]*Column, 0, len(t.Columns)+len(t.References))
	cols = append(cols, t.Columns...)
	for _, r := range t.References {
		cols = append(cols, r.AsColumn())
	}
	return cols
}

// AllForeignKeys returns declared constraints followed by those requested by
// references.
func (t *Table) AllForeignKeys() []*ForeignKey {
	fks := make([]*ForeignKey, 0, len(t.ForeignKeys)+len(t.References))
	fks = append(fks, t.ForeignKeys...)
	for _, r := range t.References {
		if r.ForeignKey {
			fks = append(fks, r.AsForeignKey())
		}
	}
	return fks
}

// Dependencies lists the other tables this table's foreign keys point at.
func (t *Table) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, fk := range t.AllForeignKeys() {
		k := key(fk.ToTable)
		if strings.EqualFold(fk.ToTable, t.Name) || seen[k] {
			continue
		}
		seen[k] = true
		deps = append(deps, fk.ToTable)
	}
	return deps
}

// Validate checks the structural invariants of a table definition.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table without name")
	}
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %s: column %d has no name", t.Name, i+1)
		}
		if c.Type == "" {
			return fmt.Errorf("table %s: column %s has no type", t.Name, c.Name)
		}
	}
	for _, r := range t.References {
		if r.Name == "" {
			return fmt.Errorf("table %s: reference without name", t.Name)
		}
		if err := validateDependent(r.Dependent); err != nil {
			return fmt.Errorf("table %s: reference %s: %w", t.Name, r.Name, err)
		}
	}
	for _, fk := range t.ForeignKeys {
		if err := fk.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	for _, idx := range t.Indexes {
		if len(idx.Columns) == 0 {
			return fmt.Errorf("table %s: index without columns", t.Name)
		}
	}
	return nil
}

func (fk *ForeignKey) Validate() error {
	if fk.ToTable == "" {
		return fmt.Errorf("foreign key without to_table")
	}
	return validateDependent(fk.Dependent)
}

func (r *ForeignKeyRemoval) Validate() error {
	if r.Name == "" && r.Column == "" && r.ToTable == "" {
		return fmt.Errorf("foreign key removal needs name, column or to_table")
	}
	return nil
}

func validateDependent(d string) error {
	switch d {
	case DependentNone, DependentDelete, DependentNullify:
		return nil
	}
	return fmt.Errorf("unknown dependent option %q (want delete or nullify)", d)
}

// Validate checks every table and change.
func (d *Definition) Validate() error {
	for _, t := range d.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Changes {
		if c.Table == "" {
			return fmt.Errorf("change without table")
		}
		for _, fk := range c.AddForeignKeys {
			if err := fk.Validate(); err != nil {
				return fmt.Errorf("change %s: %w", c.Table, err)
			}
		}
		for _, r := range c.RemoveForeignKeys {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("change %s: %w", c.Table, err)
			}
		}
	}
	return nil
}
