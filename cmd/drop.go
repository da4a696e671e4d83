package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ora-schema/internal/engine"
	"ora-schema/internal/schema"
)

var ifExists bool

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the tables of a schema file in reverse dependency order",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, def, err := loadPlan()
		if err != nil {
			return err
		}
		return dropTables(cmd.Context(), cmd.OutOrStdout(), DB, g, def, ifExists)
	},
}

// dropTables runs the drop plan between the dialect's BeforeDrop and
// AfterDrop hooks. AfterDrop runs even when a statement fails.
func dropTables(ctx context.Context, w io.Writer, db *sql.DB, g *engine.Generator, def *schema.Definition, ignoreMissing bool) error {
	stmts, err := g.DropPlan(def, ignoreMissing)
	if err != nil {
		return err
	}

	// Session settings such as FOREIGN_KEY_CHECKS need a single connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	d := g.Dialect()
	if err := d.BeforeDrop(ctx, conn); err != nil {
		Log.Warnw("before-drop hook failed, continuing", "dialect", d.Name(), "error", err)
	}

	m := engine.NewMigrator(conn, Log, engine.WithProgress(func(r engine.StepResult) {
		if r.Status == engine.StatusIgnored {
			Log.Warnw("failed to drop, continuing", "sql", r.SQL, "error", r.Err)
		}
	}))
	results, runErr := m.Run(ctx, stmts)

	if err := d.AfterDrop(ctx, conn); err != nil {
		Log.Warnw("after-drop hook failed", "dialect", d.Name(), "error", err)
	}

	printReport(w, results)
	if runErr != nil {
		return runErr
	}
	Log.Infow("tables dropped", "tables", len(def.Tables))
	return nil
}

func init() {
	RootCmd.AddCommand(dropCmd)

	dropCmd.Flags().StringVarP(&schemaFile, "file", "f", "", "Schema definition file (yaml, json or toml)")
	dropCmd.Flags().BoolVar(&ifExists, "if-exists", false, "Ignore tables and sequences that do not exist")
	dropCmd.MarkFlagRequired("file")
}
