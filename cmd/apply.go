package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"ora-schema/internal/dialect"
	"ora-schema/internal/engine"
	"ora-schema/internal/schema"
)

var (
	schemaFile string
	dryRun     bool
)

var planCmd = &cobra.Command{
	Use:         "plan",
	Short:       "Print the DDL for a schema file without connecting",
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		g, def, err := loadPlan()
		if err != nil {
			return err
		}
		stmts, err := g.Plan(def)
		if err != nil {
			return err
		}
		printStatements(cmd.OutOrStdout(), stmts)
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the tables, sequences, triggers, indexes and foreign keys of a schema file",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, def, err := loadPlan()
		if err != nil {
			return err
		}
		stmts, err := g.Plan(def)
		if err != nil {
			return err
		}

		Log.Infow("applying schema", "file", schemaFile, "dialect", g.Dialect().Name(), "statements", len(stmts))

		// Setup Progress Bar
		uiprogress.Start()
		bar := uiprogress.AddBar(len(stmts)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Applying: "
		})

		start := time.Now()
		results, runErr := applyStatements(cmd.Context(), DB, stmts, dryRun, func(engine.StepResult) { bar.Incr() })
		uiprogress.Stop()

		printReport(cmd.OutOrStdout(), results)
		Log.Infow("apply done", "elapsed", time.Since(start), "executed", len(results), "planned", len(stmts))
		return runErr
	},
}

// applyStatements runs stmts, stopping at the first failure, and returns a
// result per attempted step. Nothing is executed in dry-run mode.
func applyStatements(ctx context.Context, ex dialect.Execer, stmts []engine.Statement, dryRun bool, step func(engine.StepResult)) ([]engine.StepResult, error) {
	if dryRun {
		Log.Infow("dry-run mode active, no statement will be executed", "statements", len(stmts))
	}
	m := engine.NewMigrator(ex, Log,
		engine.WithDryRun(dryRun),
		engine.WithProgress(step),
	)
	return m.Run(ctx, stmts)
}

func init() {
	RootCmd.AddCommand(planCmd, applyCmd)

	for _, c := range []*cobra.Command{planCmd, applyCmd} {
		c.Flags().StringVarP(&schemaFile, "file", "f", "", "Schema definition file (yaml, json or toml)")
		c.MarkFlagRequired("file")
	}
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the statements without executing them")
}

func loadPlan() (*engine.Generator, *schema.Definition, error) {
	def, err := schema.LoadFile(schemaFile)
	if err != nil {
		return nil, nil, err
	}
	g, err := newGenerator()
	if err != nil {
		return nil, nil, err
	}
	return g, def, nil
}

// printStatements writes a script: PL/SQL blocks end with "/", the rest with ";".
func printStatements(w io.Writer, stmts []engine.Statement) {
	for _, s := range stmts {
		if strings.HasSuffix(s.SQL, "END;") {
			fmt.Fprintf(w, "%s\n/\n\n", s.SQL)
			continue
		}
		fmt.Fprintf(w, "%s;\n\n", s.SQL)
	}
}

func printReport(w io.Writer, results []engine.StepResult) {
	fmt.Fprintln(w, "\nSummary Report:")
	for i, r := range results {
		icon := "✓"
		if r.Status != engine.StatusOK && r.Status != engine.StatusSkipped {
			icon = "!"
		}
		fmt.Fprintf(w, "[%s] [%02d/%02d] %-8s %s\n", icon, i+1, len(results), r.Status, firstLine(r.SQL))
		if r.Err != nil {
			fmt.Fprintf(w, "    └ Error: %v\n", r.Err)
		}
	}
	fmt.Fprintln(w, "--------------------------------------------------")
}

func firstLine(sql string) string {
	if i := strings.IndexByte(sql, '\n'); i >= 0 {
		return sql[:i] + " ..."
	}
	return sql
}
