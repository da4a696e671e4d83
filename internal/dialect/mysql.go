package dialect

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"

	"ora-schema/internal/naming"
)

const mysqlMaxLength = 64

// mysqlFKViolation matches "... CONSTRAINT `name` FOREIGN KEY ..." in error 1452.
var mysqlFKViolation = regexp.MustCompile("CONSTRAINT `([^`]+)`")

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string {
	return "mysql"
}

func (d *MysqlDialect) Naming() naming.Config {
	return naming.Config{MaxLength: mysqlMaxLength}
}

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL`
}

func (d *MysqlDialect) GetIndexesQuery(schema string) string {
	return `SELECT DISTINCT TABLE_NAME, INDEX_NAME FROM information_schema.STATISTICS WHERE TABLE_SCHEMA = ?`
}

func (d *MysqlDialect) GetCommentsQuery(schema string) string {
	return `
SELECT TABLE_NAME, COLUMN_NAME, COMMENTS FROM (
    SELECT TABLE_SCHEMA, TABLE_NAME, NULL AS COLUMN_NAME, TABLE_COMMENT AS COMMENTS FROM information_schema.TABLES
    UNION ALL
    SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, COLUMN_COMMENT FROM information_schema.COLUMNS
) c WHERE c.TABLE_SCHEMA = ? AND c.COMMENTS <> ''`
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) ColumnType(kind string, limit, precision, scale int) (string, error) {
	switch kind {
	case "string":
		if limit <= 0 {
			limit = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", limit), nil
	case "text":
		return "LONGTEXT", nil
	case "binary":
		return "LONGBLOB", nil
	case "integer":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "decimal":
		return numeric("DECIMAL", precision, scale), nil
	case "float":
		return "DOUBLE", nil
	case "date":
		return "DATE", nil
	case "datetime":
		return "DATETIME", nil
	case "timestamp":
		return "TIMESTAMP", nil
	case "boolean":
		return "TINYINT(1)", nil
	}
	return "", unknownType(d.Name(), kind)
}

func (d *MysqlDialect) ColumnDefinition(name, sqlType string, nullable bool, def, comment string) string {
	col := ansiColumnDefinition(name, sqlType, nullable, def)
	if comment != "" {
		col += " COMMENT " + QuoteString(comment)
	}
	return col
}

func (d *MysqlDialect) IdentityColumn(column string, start int64) string {
	return fmt.Sprintf("%s BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY", column)
}

func (d *MysqlDialect) IdentityStart(table string, start int64) []string {
	if start <= 1 {
		return nil
	}
	return []string{fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", table, start)}
}

func (d *MysqlDialect) CreateTable(table string, defs []string, comment string) string {
	sql := ansiCreateTable(table, defs)
	if comment != "" {
		sql += " COMMENT=" + QuoteString(comment)
	}
	return sql
}

func (d *MysqlDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", table)
}

func (d *MysqlDialect) AddColumn(table, def string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def)
}

func (d *MysqlDialect) TableComment(table, comment string) []string {
	// Emitted inline by CreateTable.
	return nil
}

func (d *MysqlDialect) ColumnComment(table, column, comment string) []string {
	// Emitted inline by ColumnDefinition.
	return nil
}

func (d *MysqlDialect) UsesSequences() bool {
	return false
}

func (d *MysqlDialect) CreateSequence(name, start string) (string, error) {
	return "", fmt.Errorf("mysql: sequences: %w", ErrUnsupported)
}

func (d *MysqlDialect) DropSequence(name string) (string, error) {
	return "", fmt.Errorf("mysql: sequences: %w", ErrUnsupported)
}

func (d *MysqlDialect) PrimaryKeyTrigger(table, trigger, sequence, column string) (string, error) {
	return "", fmt.Errorf("mysql: primary key trigger (AUTO_INCREMENT is used instead): %w", ErrUnsupported)
}

func (d *MysqlDialect) NextSequenceValueQuery(sequence string) (string, error) {
	return "", fmt.Errorf("mysql: sequences: %w", ErrUnsupported)
}

func (d *MysqlDialect) CreateIndex(name, table string, columns []string, unique bool) string {
	return ansiCreateIndex(name, table, columns, unique)
}

func (d *MysqlDialect) DropIndex(name, table string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", name, table)
}

func (d *MysqlDialect) AddForeignKey(table, name, column, refTable, refColumn, onDelete string) string {
	return ansiAddForeignKey(table, name, column, refTable, refColumn, onDelete)
}

func (d *MysqlDialect) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", table, name)
}

// IsForeignKeyViolation matches error 1452 (cannot add or update a child row).
func (d *MysqlDialect) IsForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1452
	}
	return false
}

func (d *MysqlDialect) ViolatedForeignKey(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1452 {
		return constraintFrom(mysqlFKViolation, myErr.Message)
	}
	return ""
}

func (d *MysqlDialect) BeforeDrop(ctx context.Context, ex Execer) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) AfterDrop(ctx context.Context, ex Execer) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}
