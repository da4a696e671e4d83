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

var (
	probe     bool
	probeSeed int64
	parallel  int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the tables, comments, indexes and foreign keys of a schema file exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, def, err := loadPlan()
		if err != nil {
			return err
		}
		return verifySchema(cmd.Context(), cmd.OutOrStdout(), DB, g, def, SchemaName)
	},
}

// verifySchema checks def against the catalog of schemaName and, with
// --probe, tests every foreign key with an orphan insert.
func verifySchema(ctx context.Context, w io.Writer, db *sql.DB, g *engine.Generator, def *schema.Definition, schemaName string) error {
	Log.Infow("analyzing schema", "schema", g.Dialect().GetSchemaName(schemaName))
	cat, err := schema.Inspect(ctx, db, g.Dialect(), schemaName)
	if err != nil {
		return err
	}

	exps, err := g.Expectations(def)
	if err != nil {
		return err
	}
	findings, missing := engine.Verify(cat, exps)

	fmt.Fprintln(w, "Catalog check:")
	for _, f := range findings {
		icon := "✓"
		if !f.Present {
			icon = "!"
		}
		fmt.Fprintf(w, "[%s] %-11s %-30s (%s)\n", icon, f.Object, f.Name, f.Table)
	}

	failed := missing
	if probe {
		results, err := g.ProbeAll(ctx, engine.SQLTxStarter(db), def, probeSeed, parallel)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nOrphan probes:")
		for _, r := range results {
			status := "rejected"
			switch {
			case r.Err != nil:
				status = fmt.Sprintf("error: %v", r.Err)
				failed++
			case !r.Rejected:
				status = "ACCEPTED"
				failed++
			}
			fmt.Fprintf(w, "  %-30s %s.%s: %s\n", r.Constraint, r.Table, r.Column, status)
		}
	}

	if failed > 0 {
		return fmt.Errorf("verification failed: %d problem(s)", failed)
	}
	Log.Infow("verification passed", "objects", len(findings))
	return nil
}

func init() {
	RootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&schemaFile, "file", "f", "", "Schema definition file (yaml, json or toml)")
	verifyCmd.Flags().BoolVar(&probe, "probe", false, "Insert orphan rows in rolled-back transactions to test each foreign key")
	verifyCmd.Flags().Int64Var(&probeSeed, "seed", 1, "Seed for probe values")
	verifyCmd.Flags().IntVar(&parallel, "parallel", 4, "Maximum concurrent probes")
	verifyCmd.MarkFlagRequired("file")
}
