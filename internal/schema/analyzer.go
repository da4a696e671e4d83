package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ora-schema/internal/dialect"
)

// ---------------------------------------------------------------------
// 1. Catalog (what currently exists in the database)
// ---------------------------------------------------------------------

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CatalogForeignKey is a named constraint as reported by the database.
type CatalogForeignKey struct {
	Table     string
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

// Catalog holds table, foreign key and index names and stored comments. Lookups are
// case-insensitive because Oracle reports unquoted identifiers in upper case.
type Catalog struct {
	tables      map[string]string
	foreignKeys map[string]*CatalogForeignKey
	indexes     map[string]string // index -> table
	comments    map[string]string // TABLE or TABLE.COLUMN -> comment
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables:      make(map[string]string),
		foreignKeys: make(map[string]*CatalogForeignKey),
		indexes:     make(map[string]string),
		comments:    make(map[string]string),
	}
}

func key(name string) string {
	return strings.ToUpper(name)
}

func (c *Catalog) AddTable(name string) {
	c.tables[key(name)] = name
}

func (c *Catalog) AddForeignKey(fk *CatalogForeignKey) {
	c.foreignKeys[key(fk.Name)] = fk
}

func (c *Catalog) AddIndex(table, name string) {
	c.indexes[key(name)] = table
}

// AddComment records a table comment, or a column comment when column is
// not empty.
func (c *Catalog) AddComment(table, column, comment string) {
	c.comments[commentKey(table, column)] = comment
}

// Comment returns the stored comment of a table or column.
func (c *Catalog) Comment(table, column string) (string, bool) {
	s, ok := c.comments[commentKey(table, column)]
	return s, ok
}

func commentKey(table, column string) string {
	if column == "" {
		return key(table)
	}
	return key(table) + "." + key(column)
}

func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[key(name)]
	return ok
}

func (c *Catalog) HasForeignKey(name string) bool {
	_, ok := c.foreignKeys[key(name)]
	return ok
}

func (c *Catalog) HasIndex(name string) bool {
	_, ok := c.indexes[key(name)]
	return ok
}

// ForeignKey returns the constraint with the given name, or nil.
func (c *Catalog) ForeignKey(name string) *CatalogForeignKey {
	return c.foreignKeys[key(name)]
}

// Tables returns table names as reported, sorted.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for _, n := range c.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForeignKeysOf returns the constraints declared on table, sorted by name.
func (c *Catalog) ForeignKeysOf(table string) []*CatalogForeignKey {
	var fks []*CatalogForeignKey
	for _, fk := range c.foreignKeys {
		if strings.EqualFold(fk.Table, table) {
			fks = append(fks, fk)
		}
	}
	sort.Slice(fks, func(i, j int) bool { return fks[i].Name < fks[j].Name })
	return fks
}

// Inspect reads the catalog of schemaName through the dialect's metadata
// queries.
func Inspect(ctx context.Context, q Querier, d dialect.Dialect, schemaName string) (*Catalog, error) {
	// [Interface-First]: Delegate schema resolution to the dialect
	target := d.GetSchemaName(schemaName)
	cat := NewCatalog()

	// --- Step 1: Fetch Tables ---
	err := queryEach(ctx, q, d.GetTablesQuery(target), target, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		cat.AddTable(name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	// --- Step 2: Fetch Foreign Keys ---
	err = queryEach(ctx, q, d.GetForeignKeysQuery(target), target, func(rows *sql.Rows) error {
		var tName, cConst, cName, rTable, rCol sql.NullString
		if err := rows.Scan(&tName, &cConst, &cName, &rTable, &rCol); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if !tName.Valid || !cConst.Valid {
			return nil // Skip invalid rows
		}
		cat.AddForeignKey(&CatalogForeignKey{
			Table:     tName.String,
			Name:      cConst.String,
			Column:    cName.String,
			RefTable:  rTable.String,
			RefColumn: rCol.String,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}

	// --- Step 3: Fetch Indexes ---
	err = queryEach(ctx, q, d.GetIndexesQuery(target), target, func(rows *sql.Rows) error {
		var tName, iName sql.NullString
		if err := rows.Scan(&tName, &iName); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}
		if iName.Valid {
			cat.AddIndex(tName.String, iName.String)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}

	// --- Step 4: Fetch Comments ---
	err = queryEach(ctx, q, d.GetCommentsQuery(target), target, func(rows *sql.Rows) error {
		var tName, cName, text sql.NullString
		if err := rows.Scan(&tName, &cName, &text); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if tName.Valid && text.Valid {
			cat.AddComment(tName.String, cName.String, text.String)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}

	return cat, nil
}

func queryEach(ctx context.Context, q Querier, query, arg string, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ---------------------------------------------------------------------
// 2. Sorting Algorithm (Topological / Greedy)
// ---------------------------------------------------------------------

// SortByDependencies orders tables so that referenced tables come before the
// tables referencing them. Cycles are broken with a scoring heuristic; the
// tables picked to break a cycle are returned as well. Foreign keys are
// added after every table exists, so a broken cycle still applies.
func SortByDependencies(tables []*Table, log *zap.SugaredLogger) (sorted []*Table, broken []string) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Only dependencies on tables in this set take part in ordering.
	known := make(map[string]*Table, len(tables))
	for _, t := range tables {
		known[key(t.Name)] = t
	}
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		for _, dep := range t.Dependencies() {
			if _, ok := known[key(dep)]; ok {
				deps[key(t.Name)] = append(deps[key(t.Name)], key(dep))
			}
		}
	}

	processed := make(map[string]bool)

	// Keep looping until all tables are processed
	for len(sorted) < len(tables) {
		added := false

		// Pass 1: Add tables whose dependencies are fully satisfied
		for _, t := range tables {
			k := key(t.Name)
			if processed[k] {
				continue
			}

			allDepsProcessed := true
			for _, dep := range deps[k] {
				if !processed[dep] {
					allDepsProcessed = false
					break
				}
			}

			if allDepsProcessed {
				sorted = append(sorted, t)
				processed[k] = true
				added = true
			}
		}

		if added {
			continue
		}

		// Pass 2: no table added, we have a cycle. Break it using heuristic score.
		var bestTable *Table
		bestScore := 0

		for _, t := range tables {
			k := key(t.Name)
			if processed[k] {
				continue
			}

			// Penalty: unprocessed dependencies (prefer fewer).
			// Bonus: a dependency that depends back on this table.
			score := 0
			isCircular := false
			for _, dep := range deps[k] {
				if processed[dep] {
					continue
				}
				score -= 100
				for _, back := range deps[dep] {
					if back == k {
						isCircular = true
					}
				}
			}
			if isCircular {
				score += 500
			}

			// Tie-breaker: Name (Deterministic)
			if bestTable == nil || score > bestScore || (score == bestScore && t.Name < bestTable.Name) {
				bestScore = score
				bestTable = t
			}
		}

		sorted = append(sorted, bestTable)
		processed[key(bestTable.Name)] = true
		broken = append(broken, bestTable.Name)
		log.Debugw("breaking circular dependency", "table", bestTable.Name, "score", bestScore)
	}

	return sorted, broken
}

// Reverse returns tables in the opposite order, the drop order.
func Reverse(tables []*Table) []*Table {
	out := make([]*Table, len(tables))
	for i, t := range tables {
		out[len(tables)-1-i] = t
	}
	return out
}
