package dialect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sijms/go-ora/v2/network"

	"ora-schema/internal/naming"
)

// oracleMaxVarchar is the VARCHAR2 limit with the default MAX_STRING_SIZE.
const oracleMaxVarchar = 4000

var oracleFKViolation = regexp.MustCompile(`ORA-02291: integrity constraint \(([^)]+)\)`)

type OracleDialect struct{}

func (d *OracleDialect) Name() string {
	return "oracle"
}

func (d *OracleDialect) Naming() naming.Config {
	// Unquoted identifiers are stored upper case in the dictionary.
	return naming.Config{MaxLength: naming.OracleMaxLength, Fold: naming.FoldUpper}
}

func (d *OracleDialect) GetTablesQuery(schema string) string {
	// USER_TABLES lists tables owned by the current user.
	// The dummy clause consumes the schema argument passed by standard callers.
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT
    c.TABLE_NAME,
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND :1 IS NOT NULL`
}

func (d *OracleDialect) GetIndexesQuery(schema string) string {
	return `SELECT TABLE_NAME, INDEX_NAME FROM USER_INDEXES WHERE INDEX_TYPE <> 'LOB' AND :1 IS NOT NULL`
}

func (d *OracleDialect) GetCommentsQuery(schema string) string {
	return `
SELECT TABLE_NAME, COLUMN_NAME, COMMENTS FROM (
    SELECT TABLE_NAME, NULL AS COLUMN_NAME, COMMENTS FROM USER_TAB_COMMENTS
    UNION ALL
    SELECT TABLE_NAME, COLUMN_NAME, COMMENTS FROM USER_COL_COMMENTS
) WHERE COMMENTS IS NOT NULL AND :1 IS NOT NULL`
}

func (d *OracleDialect) GetSchemaName(input string) string {
	// An empty bind is NULL in Oracle and would empty every catalog query.
	if input == "" {
		return "USER"
	}
	return input
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) ColumnType(kind string, limit, precision, scale int) (string, error) {
	switch kind {
	case "string":
		if limit <= 0 {
			limit = 255
		}
		if limit > oracleMaxVarchar {
			return "", fmt.Errorf("oracle: VARCHAR2 limit %d exceeds %d, use text", limit, oracleMaxVarchar)
		}
		return fmt.Sprintf("VARCHAR2(%d)", limit), nil
	case "text":
		// LOB columns have no length; limit is ignored.
		return "CLOB", nil
	case "binary":
		return "BLOB", nil
	case "integer":
		return "NUMBER(38,0)", nil
	case "bigint":
		return "NUMBER(19,0)", nil
	case "decimal":
		return numeric("NUMBER", precision, scale), nil
	case "float":
		return "NUMBER", nil
	case "date", "datetime":
		return "DATE", nil
	case "timestamp":
		return "TIMESTAMP", nil
	case "boolean":
		return "NUMBER(1)", nil
	}
	return "", unknownType(d.Name(), kind)
}

func (d *OracleDialect) ColumnDefinition(name, sqlType string, nullable bool, def, comment string) string {
	return ansiColumnDefinition(name, sqlType, nullable, def)
}

func (d *OracleDialect) IdentityColumn(column string, start int64) string {
	// The value comes from the table's sequence, see CreateSequence.
	return fmt.Sprintf("%s NUMBER(38,0) NOT NULL PRIMARY KEY", column)
}

func (d *OracleDialect) IdentityStart(table string, start int64) []string {
	return nil
}

func (d *OracleDialect) CreateTable(table string, defs []string, comment string) string {
	return ansiCreateTable(table, defs)
}

func (d *OracleDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s CASCADE CONSTRAINTS", table)
}

func (d *OracleDialect) AddColumn(table, def string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD (%s)", table, def)
}

func (d *OracleDialect) TableComment(table, comment string) []string {
	return []string{fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, QuoteString(comment))}
}

func (d *OracleDialect) ColumnComment(table, column, comment string) []string {
	return []string{fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", table, column, QuoteString(comment))}
}

func (d *OracleDialect) UsesSequences() bool {
	return true
}

func (d *OracleDialect) CreateSequence(name, start string) (string, error) {
	return fmt.Sprintf("CREATE SEQUENCE %s START WITH %s", name, start), nil
}

func (d *OracleDialect) DropSequence(name string) (string, error) {
	return fmt.Sprintf("DROP SEQUENCE %s", name), nil
}

func (d *OracleDialect) PrimaryKeyTrigger(table, trigger, sequence, column string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE TRIGGER %s\n", trigger)
	fmt.Fprintf(&b, "BEFORE INSERT ON %s FOR EACH ROW\n", table)
	b.WriteString("BEGIN\n")
	b.WriteString("  IF inserting THEN\n")
	fmt.Fprintf(&b, "    IF :new.%s IS NULL THEN\n", column)
	fmt.Fprintf(&b, "      SELECT %s.NEXTVAL INTO :new.%s FROM dual;\n", sequence, column)
	b.WriteString("    END IF;\n")
	b.WriteString("  END IF;\n")
	b.WriteString("END;")
	return b.String(), nil
}

func (d *OracleDialect) NextSequenceValueQuery(sequence string) (string, error) {
	return fmt.Sprintf("SELECT %s.NEXTVAL FROM dual", sequence), nil
}

func (d *OracleDialect) CreateIndex(name, table string, columns []string, unique bool) string {
	return ansiCreateIndex(name, table, columns, unique)
}

func (d *OracleDialect) DropIndex(name, table string) string {
	return fmt.Sprintf("DROP INDEX %s", name)
}

func (d *OracleDialect) AddForeignKey(table, name, column, refTable, refColumn, onDelete string) string {
	return ansiAddForeignKey(table, name, column, refTable, refColumn, onDelete)
}

func (d *OracleDialect) DropForeignKey(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", table, name)
}

// IsForeignKeyViolation matches ORA-02291 (parent key not found).
func (d *OracleDialect) IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var oerr *network.OracleError
	if errors.As(err, &oerr) {
		return oerr.ErrCode == 2291
	}
	return strings.Contains(err.Error(), "ORA-02291")
}

func (d *OracleDialect) ViolatedForeignKey(err error) string {
	if !d.IsForeignKeyViolation(err) {
		return ""
	}
	var oerr *network.OracleError
	if errors.As(err, &oerr) && oerr.ErrMsg != "" {
		return constraintFrom(oracleFKViolation, oerr.ErrMsg)
	}
	return constraintFrom(oracleFKViolation, err.Error())
}

func (d *OracleDialect) BeforeDrop(ctx context.Context, ex Execer) error {
	// CASCADE CONSTRAINTS on DROP TABLE removes referencing keys.
	return nil
}

func (d *OracleDialect) AfterDrop(ctx context.Context, ex Execer) error {
	return nil
}
