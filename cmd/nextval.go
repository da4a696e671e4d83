package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ora-schema/internal/engine"
)

var nextvalSequence string

var nextvalCmd = &cobra.Command{
	Use:   "nextval",
	Short: "Consume and print the next value of a table's primary key sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := newGenerator()
		if err != nil {
			return err
		}
		seq := nextvalSequence
		if seq == "" {
			if nameTable == "" {
				return fmt.Errorf("--table or --sequence is required")
			}
			seq = g.Namer().SequenceName(nameTable)
		}
		next, err := engine.NextSequenceValue(cmd.Context(), DB, g.Dialect(), seq)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), next)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(nextvalCmd)

	nextvalCmd.Flags().StringVar(&nameTable, "table", "", "Table whose default sequence is read")
	nextvalCmd.Flags().StringVar(&nextvalSequence, "sequence", "", "Sequence name (overrides --table)")
}
