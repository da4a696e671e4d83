package dialect

import (
	"context"
	"database/sql"
	"errors"

	"ora-schema/internal/naming"
)

// ErrUnsupported is returned for schema features a database cannot express.
var ErrUnsupported = errors.New("not supported by dialect")

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect abstracts database-specific DDL.
type Dialect interface {
	Name() string
	Naming() naming.Config

	// Metadata Queries (Catalog Introspection)
	GetTablesQuery(schema string) string
	GetForeignKeysQuery(schema string) string
	GetIndexesQuery(schema string) string
	// GetCommentsQuery returns (table, column, comment) rows. Column is NULL
	// for a table comment.
	GetCommentsQuery(schema string) string
	GetSchemaName(input string) string
	Placeholder(index int) string

	// Column Definitions
	ColumnType(kind string, limit, precision, scale int) (string, error)
	ColumnDefinition(name, sqlType string, nullable bool, def, comment string) string
	IdentityColumn(column string, start int64) string
	IdentityStart(table string, start int64) []string

	// Table Statements
	CreateTable(table string, defs []string, comment string) string
	DropTable(table string) string
	AddColumn(table, def string) string
	TableComment(table, comment string) []string
	ColumnComment(table, column, comment string) []string

	// Sequences and Triggers
	UsesSequences() bool
	CreateSequence(name, start string) (string, error)
	DropSequence(name string) (string, error)
	PrimaryKeyTrigger(table, trigger, sequence, column string) (string, error)
	NextSequenceValueQuery(sequence string) (string, error)

	// Indexes and Constraints
	CreateIndex(name, table string, columns []string, unique bool) string
	DropIndex(name, table string) string
	AddForeignKey(table, name, column, refTable, refColumn, onDelete string) string
	DropForeignKey(table, name string) string
	IsForeignKeyViolation(err error) bool
	// ViolatedForeignKey names the constraint a violation error reports, or
	// returns "" when the error does not say.
	ViolatedForeignKey(err error) string

	// Execution Hooks (Drop Level)
	BeforeDrop(ctx context.Context, ex Execer) error
	AfterDrop(ctx context.Context, ex Execer) error
}
