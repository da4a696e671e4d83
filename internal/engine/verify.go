package engine

import (
	"strings"

	"ora-schema/internal/schema"
)

// Object kinds checked by Verify.
const (
	ObjectTable      = "table"
	ObjectIndex      = "index"
	ObjectForeignKey = "foreign key"
	ObjectComment    = "comment"
)

// Expectation is an object that must exist once a definition is applied.
type Expectation struct {
	Object string
	Table  string
	Name   string
	// Column and Comment are set for ObjectComment. An empty Column is the
	// table comment.
	Column  string
	Comment string
}

// Finding is an Expectation checked against the catalog.
type Finding struct {
	Expectation
	Present bool
}

// Expectations lists the tables, comments, indexes and foreign keys a
// definition creates, using the same names Plan generates. Objects removed by a later
// change are left out.
func (g *Generator) Expectations(def *schema.Definition) ([]Expectation, error) {
	var exps []Expectation
	add := func(object, table, name string) {
		exps = append(exps, Expectation{Object: object, Table: table, Name: name})
	}
	remove := func(object, name string) {
		kept := exps[:0]
		for _, e := range exps {
			if e.Object == object && strings.EqualFold(e.Name, name) {
				continue
			}
			kept = append(kept, e)
		}
		exps = kept
	}

	comment := func(table, column, text string) {
		if text == "" {
			return
		}
		name := table
		if column != "" {
			name = table + "." + column
		}
		exps = append(exps, Expectation{Object: ObjectComment, Table: table, Name: name, Column: column, Comment: text})
	}

	for _, t := range def.Tables {
		add(ObjectTable, t.Name, t.Name)
		comment(t.Name, "", t.Comment)
		for _, col := range t.Columns {
			comment(t.Name, col.Name, col.Comment)
		}
		for _, idx := range t.Indexes {
			name, err := g.IndexName(t.Name, idx)
			if err != nil {
				return nil, err
			}
			add(ObjectIndex, t.Name, name)
		}
		for _, fk := range t.AllForeignKeys() {
			name, err := g.ForeignKeyName(t.Name, fk.ResolvedColumn(), fk.Name)
			if err != nil {
				return nil, err
			}
			add(ObjectForeignKey, t.Name, name)
		}
	}

	for _, c := range def.Changes {
		for _, col := range c.AddColumns {
			comment(c.Table, col.Name, col.Comment)
		}
		for _, r := range c.AddReferences {
			if !r.ForeignKey {
				continue
			}
			name, err := g.ForeignKeyName(c.Table, r.Column(), "")
			if err != nil {
				return nil, err
			}
			add(ObjectForeignKey, c.Table, name)
		}
		for _, fk := range c.AddForeignKeys {
			name, err := g.ForeignKeyName(c.Table, fk.ResolvedColumn(), fk.Name)
			if err != nil {
				return nil, err
			}
			add(ObjectForeignKey, c.Table, name)
		}
		for _, r := range c.RemoveForeignKeys {
			name, err := g.ForeignKeyName(c.Table, r.ResolvedColumn(), r.Name)
			if err != nil {
				return nil, err
			}
			remove(ObjectForeignKey, name)
		}
		for _, idx := range c.AddIndexes {
			name, err := g.IndexName(c.Table, idx)
			if err != nil {
				return nil, err
			}
			add(ObjectIndex, c.Table, name)
		}
		for _, idx := range c.RemoveIndexes {
			name, err := g.IndexName(c.Table, idx)
			if err != nil {
				return nil, err
			}
			remove(ObjectIndex, name)
		}
	}
	return exps, nil
}

// Verify checks every expectation against the catalog and returns the
// findings in order together with the number of missing objects.
func Verify(cat *schema.Catalog, exps []Expectation) ([]Finding, int) {
	findings := make([]Finding, len(exps))
	missing := 0
	for i, e := range exps {
		var present bool
		switch e.Object {
		case ObjectTable:
			present = cat.HasTable(baseName(e.Name))
		case ObjectIndex:
			present = cat.HasIndex(e.Name)
		case ObjectForeignKey:
			present = cat.HasForeignKey(e.Name)
		case ObjectComment:
			stored, ok := cat.Comment(baseName(e.Table), e.Column)
			present = ok && stored == e.Comment
		}
		if !present {
			missing++
		}
		findings[i] = Finding{Expectation: e, Present: present}
	}
	return findings, missing
}
