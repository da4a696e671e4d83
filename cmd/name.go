package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ora-schema/internal/schema"
)

var (
	nameTable   string
	nameColumns []string
	nameToTable string
	nameGiven   string
)

var nameCmd = &cobra.Command{
	Use:         "name",
	Short:       "Print generated identifier names",
	Annotations: map[string]string{offline: "true"},
}

var nameIndexCmd = &cobra.Command{
	Use:         "index",
	Short:       "Name an index on --table over --column",
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGenerator()
		if err != nil {
			return err
		}
		name, err := g.IndexName(nameTable, &schema.Index{Columns: nameColumns, Name: nameGiven})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var nameForeignKeyCmd = &cobra.Command{
	Use:         "fk",
	Short:       "Name the foreign key from --table to --to-table",
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGenerator()
		if err != nil {
			return err
		}
		var column string
		switch {
		case len(nameColumns) > 0:
			column = nameColumns[0]
		case nameToTable != "":
			column = schema.ColumnFor(nameToTable)
		case nameGiven == "":
			return fmt.Errorf("one of --to-table, --column or --name is required")
		}
		name, err := g.ForeignKeyName(nameTable, column, nameGiven)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var nameSequenceCmd = &cobra.Command{
	Use:         "sequence",
	Short:       "Name the primary key sequence of --table",
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGenerator()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), g.Namer().SequenceName(nameTable))
		return nil
	},
}

var nameTriggerCmd = &cobra.Command{
	Use:         "trigger",
	Short:       "Name the primary key trigger of --table",
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGenerator()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), g.Namer().TriggerName(nameTable))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(nameCmd)
	nameCmd.AddCommand(nameIndexCmd, nameForeignKeyCmd, nameSequenceCmd, nameTriggerCmd)

	nameCmd.PersistentFlags().StringVar(&nameTable, "table", "", "Table the object belongs to")
	nameCmd.PersistentFlags().StringVar(&nameGiven, "name", "", "Explicit name to validate and shorten")
	nameCmd.MarkPersistentFlagRequired("table")

	nameIndexCmd.Flags().StringSliceVarP(&nameColumns, "column", "c", nil, "Indexed columns (repeatable or comma-separated)")
	nameForeignKeyCmd.Flags().StringSliceVarP(&nameColumns, "column", "c", nil, "Foreign key column (default <singular to-table>_id)")
	nameForeignKeyCmd.Flags().StringVar(&nameToTable, "to-table", "", "Referenced table")
}
