package dialect

import (
	"fmt"
	"regexp"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// QuoteString renders s as a SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// OnDeleteClause maps a dependent option to its referential action.
func OnDeleteClause(dependent string) (string, error) {
	switch dependent {
	case "":
		return "", nil
	case "delete":
		return "ON DELETE CASCADE", nil
	case "nullify":
		return "ON DELETE SET NULL", nil
	}
	return "", fmt.Errorf("unknown dependent option %q", dependent)
}

// constraintFrom returns the first group of re in msg without any schema
// qualifier.
func constraintFrom(re *regexp.Regexp, msg string) string {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	name := m[1]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ansiCreateIndex is shared by every dialect.
func ansiCreateIndex(name, table string, columns []string, unique bool) string {
	kw := "INDEX"
	if unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kw, name, table, strings.Join(columns, ", "))
}

func ansiAddForeignKey(table, name, column, refTable, refColumn, onDelete string) string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		table, name, column, refTable, refColumn)
	if onDelete != "" {
		sql += " " + onDelete
	}
	return sql
}

func ansiColumnDefinition(name, sqlType string, nullable bool, def string) string {
	parts := []string{name, sqlType}
	if def != "" {
		parts = append(parts, "DEFAULT "+def)
	}
	if !nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func ansiCreateTable(table string, defs []string) string {
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", table, strings.Join(defs, ",\n  "))
}

func numeric(base string, precision, scale int) string {
	switch {
	case precision > 0 && scale > 0:
		return fmt.Sprintf("%s(%d,%d)", base, precision, scale)
	case precision > 0:
		return fmt.Sprintf("%s(%d)", base, precision)
	default:
		return base
	}
}

func unknownType(dialect, kind string) error {
	return fmt.Errorf("%s: unknown column type %q", dialect, kind)
}
