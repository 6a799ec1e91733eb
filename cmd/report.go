package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/goldmine/pkg/distill"
	"github.com/theapemachine/goldmine/pkg/stores/qdrant"
)

var (
	reportAgentsFlag []string

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Preview what a run would keep, without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := distill.New(cfg, qdrant.New(cfg.QdrantEndpoint()))

			report, err := engine.BuildSummaryReport(cmd.Context(), reportAgentsFlag)
			if err != nil {
				return err
			}

			fmt.Println(renderReport(report))
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSliceVarP(&reportAgentsFlag, "agents", "a", nil, "Agents to summarize")
	_ = reportCmd.MarkFlagRequired("agents")
}
