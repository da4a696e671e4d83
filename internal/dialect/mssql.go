package dialect

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	mssql "github.com/denisenkom/go-mssqldb" // SQL Server Driver

	"ora-schema/internal/naming"
)

// mssqlMaxLength is the sysname length.
const mssqlMaxLength = 128

var mssqlFKViolation = regexp.MustCompile(`FOREIGN KEY constraint "([^"]+)"`)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string {
	return "sqlserver"
}

func (d *MSSQLDialect) Naming() naming.Config {
	return naming.Config{MaxLength: mssqlMaxLength}
}

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	// Use @p1 for schema binding
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME WHERE KCU1.TABLE_SCHEMA = @p1`
}

func (d *MSSQLDialect) GetIndexesQuery(schema string) string {
	return `
		SELECT t.name AS TABLE_NAME, idx.name AS INDEX_NAME
		FROM sys.indexes idx
		JOIN sys.tables t ON idx.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE idx.name IS NOT NULL AND s.name = @p1
	`
}

func (d *MSSQLDialect) GetCommentsQuery(schema string) string {
	return `
		SELECT t.name, col.name, CAST(ep.value AS NVARCHAR(4000))
		FROM sys.extended_properties ep
		JOIN sys.tables t ON ep.major_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		LEFT JOIN sys.columns col ON col.object_id = ep.major_id AND col.column_id = ep.minor_id AND ep.minor_id > 0
		WHERE ep.class = 1 AND ep.name = 'MS_Description' AND s.name = @p1
	`
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

// Placeholder returns @p1, @p2: go-mssqldb does not accept ?.
func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) ColumnType(kind string, limit, precision, scale int) (string, error) {
	switch kind {
	case "string":
		if limit <= 0 {
			limit = 255
		}
		if limit > 4000 {
			return "NVARCHAR(MAX)", nil
		}
		return fmt.Sprintf("NVARCHAR(%d)", limit), nil
	case "text":
		return "NVARCHAR(MAX)", nil
	case "binary":
		return "VARBINARY(MAX)", nil
	case "integer":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "decimal":
		return numeric("DECIMAL", precision, scale), nil
	case "float":
		return "FLOAT", nil
	case "date":
		return "DATE", nil
	case "datetime", "timestamp":
		return "DATETIME2", nil
	case "boolean":
		return "BIT", nil
	}
	return "", unknownType(d.Name(), kind)
}

func (d *MSSQLDialect) ColumnDefinition(name, sqlType string, nullable bool, def, comment string) string {
	return ansiColumnDefinition(name, sqlType, nullable, def)
}

func (d *MSSQLDialect) IdentityColumn(column string, start int64) string {
	return fmt.Sprintf("%s BIGINT IDENTITY(%d,1) NOT NULL PRIMARY KEY", column, start)
}

func (d *MSSQLDialect) IdentityStart(table string, start int64) []string {
	return nil
}

func (d *MSSQLDialect) CreateTable(table string, defs []string, comment string) string {
	return ansiCreateTable(table, defs)
}

func (d *MSSQLDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", table)
}

func (d *MSSQLDialect) AddColumn(table, def string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", table, def)
}

// Comments are stored as MS_Description extended properties.
func (d *MSSQLDialect) TableComment(table, comment string) []string {
	return []string{fmt.Sprintf(
		"EXEC sp_addextendedproperty @name = N'MS_Description', @value = N%s, @level0type = N'SCHEMA', @level0name = N'dbo', @level1type = N'TABLE', @level1name = N%s",
		QuoteString(comment), QuoteString(table))}
}

func (d *MSSQLDialect) ColumnComment(table, column, comment string) []string {
	return []string{fmt.Sprintf(
		"EXEC sp_addextendedproperty @name = N'MS_Description', @value = N%s, @level0type = N'SCHEMA', @level0name = N'dbo', @level1type = N'TABLE', @level1name = N%s, @level2type = N'COLUMN', @level2name = N%s",
		QuoteString(comment), QuoteString(table), QuoteString(column))}
}

func (d *MSSQLDialect) UsesSequences() bool {
	return false
}

func (d *MSSQLDialect) CreateSequence(name, start string) (string, error) {
	return "", fmt.Errorf("sqlserver: primary key sequence (IDENTITY is used instead): %w", ErrUnsupported)
}

func (d *MSSQLDialect) DropSequence(name string) (string, error) {
	return "", fmt.Errorf("sqlserver: primary key sequence: %w", ErrUnsupported)
}

func (d *MSSQLDialect) PrimaryKeyTrigger(table, trigger, sequence, column string) (string, error) {
	return "", fmt.Errorf("sqlserver: primary key trigger: %w", ErrUnsupported)
}

func (d *MSSQLDialect) NextSequenceValueQuery(sequence string) (string, error) {
	return fmt.Sprintf("SELECT NEXT VALUE FOR %s", sequence), nil
}

func (d *MSSQLDialect) CreateIndex(name, table string, columns []string, unique bool) string {
	return ansiCreateIndex(name, table, columns, unique)
}

func (d *MSSQLDialect) DropIndex(name, table string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", name, table)
}

func (d *MSSQLDialect) AddForeignKey(table, name, column, refTable, refColumn, onDelete string) string {
	return ansiAddForeignKey(table, name, column, refTable, refColumn, onDelete)
}

func (d *MSSQLDialect) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name)
}

// IsForeignKeyViolation matches error 547 (statement conflicted with a constraint).
func (d *MSSQLDialect) IsForeignKeyViolation(err error) bool {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 547
	}
	return false
}

func (d *MSSQLDialect) ViolatedForeignKey(err error) string {
	var msErr mssql.Error
	if errors.As(err, &msErr) && msErr.Number == 547 {
		return constraintFrom(mssqlFKViolation, msErr.Message)
	}
	return ""
}

func (d *MSSQLDialect) BeforeDrop(ctx context.Context, ex Execer) error {
	// Tables are dropped children first, so no constraint juggling is needed.
	return nil
}

func (d *MSSQLDialect) AfterDrop(ctx context.Context, ex Execer) error {
	return nil
}
