package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamconv/export"
)

var summaryModel string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the structure of a saved graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := export.Load(summaryModel)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), g.Summary())
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryModel, "model", "", "saved-graph directory (required)")
	summaryCmd.MarkFlagRequired("model")
}
