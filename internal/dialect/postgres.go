package dialect

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ora-schema/internal/naming"
)

// postgresMaxLength is NAMEDATALEN - 1.
const postgresMaxLength = 63

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) Naming() naming.Config {
	return naming.Config{MaxLength: postgresMaxLength}
}

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	// use $1 placeholder
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = $1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name WHERE kcu.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'`
}

func (d *PostgresDialect) GetIndexesQuery(schema string) string {
	return `SELECT tablename, indexname FROM pg_indexes WHERE schemaname = $1`
}

func (d *PostgresDialect) GetCommentsQuery(schema string) string {
	// objsubid 0 is the table itself.
	return `
SELECT c.relname, a.attname, d.description
FROM pg_description d
JOIN pg_class c ON c.oid = d.objoid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = d.objsubid AND d.objsubid > 0
WHERE c.relkind = 'r' AND n.nspname = $1`
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) ColumnType(kind string, limit, precision, scale int) (string, error) {
	switch kind {
	case "string":
		if limit <= 0 {
			return "VARCHAR", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", limit), nil
	case "text":
		return "TEXT", nil
	case "binary":
		return "BYTEA", nil
	case "integer":
		return "INTEGER", nil
	case "bigint":
		return "BIGINT", nil
	case "decimal":
		return numeric("NUMERIC", precision, scale), nil
	case "float":
		return "DOUBLE PRECISION", nil
	case "date":
		return "DATE", nil
	case "datetime", "timestamp":
		return "TIMESTAMP", nil
	case "boolean":
		return "BOOLEAN", nil
	}
	return "", unknownType(d.Name(), kind)
}

func (d *PostgresDialect) ColumnDefinition(name, sqlType string, nullable bool, def, comment string) string {
	return ansiColumnDefinition(name, sqlType, nullable, def)
}

func (d *PostgresDialect) IdentityColumn(column string, start int64) string {
	return fmt.Sprintf("%s BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH %d) PRIMARY KEY", column, start)
}

func (d *PostgresDialect) IdentityStart(table string, start int64) []string {
	return nil
}

func (d *PostgresDialect) CreateTable(table string, defs []string, comment string) string {
	return ansiCreateTable(table, defs)
}

func (d *PostgresDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s CASCADE", table)
}

func (d *PostgresDialect) AddColumn(table, def string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def)
}

func (d *PostgresDialect) TableComment(table, comment string) []string {
	return []string{fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, QuoteString(comment))}
}

func (d *PostgresDialect) ColumnComment(table, column, comment string) []string {
	return []string{fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", table, column, QuoteString(comment))}
}

func (d *PostgresDialect) UsesSequences() bool {
	return false
}

func (d *PostgresDialect) CreateSequence(name, start string) (string, error) {
	return "", fmt.Errorf("postgres: standalone primary key sequence: %w", ErrUnsupported)
}

func (d *PostgresDialect) DropSequence(name string) (string, error) {
	return "", fmt.Errorf("postgres: standalone primary key sequence: %w", ErrUnsupported)
}

func (d *PostgresDialect) PrimaryKeyTrigger(table, trigger, sequence, column string) (string, error) {
	return "", fmt.Errorf("postgres: primary key trigger (identity columns are used instead): %w", ErrUnsupported)
}

func (d *PostgresDialect) NextSequenceValueQuery(sequence string) (string, error) {
	return fmt.Sprintf("SELECT nextval(%s)", QuoteString(sequence)), nil
}

func (d *PostgresDialect) CreateIndex(name, table string, columns []string, unique bool) string {
	return ansiCreateIndex(name, table, columns, unique)
}

func (d *PostgresDialect) DropIndex(name, table string) string {
	return fmt.Sprintf("DROP INDEX %s", name)
}

func (d *PostgresDialect) AddForeignKey(table, name, column, refTable, refColumn, onDelete string) string {
	return ansiAddForeignKey(table, name, column, refTable, refColumn, onDelete)
}

func (d *PostgresDialect) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name)
}

// IsForeignKeyViolation matches SQLSTATE 23503.
func (d *PostgresDialect) IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

func (d *PostgresDialect) ViolatedForeignKey(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return pqErr.Constraint
	}
	return ""
}

func (d *PostgresDialect) BeforeDrop(ctx context.Context, ex Execer) error {
	// DROP TABLE ... CASCADE handles referencing constraints.
	return nil
}

func (d *PostgresDialect) AfterDrop(ctx context.Context, ex Execer) error {
	return nil
}
