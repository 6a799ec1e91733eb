package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/goldmine/pkg/distill"
	"github.com/theapemachine/goldmine/pkg/memory"
	"github.com/theapemachine/goldmine/pkg/stores/qdrant"
)

var (
	agentsFlag      []string
	minScoreFlag    int
	maxPerAgentFlag int
	categoriesFlag  []string
	dryRunFlag      bool
	snapshotFlag    bool
	ruleOnlyFlag    bool

	distillCmd = &cobra.Command{
		Use:   "distill",
		Short: "Run the scoring and selection pipeline",
		Long:  longDistill,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := make([]memory.Category, 0, len(categoriesFlag))
			for _, name := range categoriesFlag {
				categories = append(categories, memory.Category(name))
			}

			engine := distill.New(cfg, qdrant.New(cfg.QdrantEndpoint()))

			report, err := engine.Distill(cmd.Context(), distill.RunConfiguration{
				Agents:        agentsFlag,
				MinScore:      minScoreFlag,
				MaxPerAgent:   maxPerAgentFlag,
				Categories:    categories,
				DryRun:        dryRunFlag,
				Snapshot:      snapshotFlag,
				ForceRuleOnly: ruleOnlyFlag,
			})
			if err != nil {
				return err
			}

			fmt.Println(renderReport(report))
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(distillCmd)

	distillCmd.Flags().StringSliceVarP(&agentsFlag, "agents", "a", nil, "Agents to process, in report order")
	distillCmd.Flags().IntVar(&minScoreFlag, "min-score", 60, "Minimum quality score to retain")
	distillCmd.Flags().IntVar(&maxPerAgentFlag, "max-per-agent", 100, "Maximum records kept per agent")
	distillCmd.Flags().StringSliceVar(&categoriesFlag, "categories", nil, "Eligible categories (default: all except noise)")
	distillCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Score and rank without persisting")
	distillCmd.Flags().BoolVar(&snapshotFlag, "snapshot", false, "Snapshot the golden collection after persisting")
	distillCmd.Flags().BoolVar(&ruleOnlyFlag, "rule-only", false, "Disable LLM scoring for this run")

	_ = distillCmd.MarkFlagRequired("agents")
}

var longDistill = `
Run the full distillation pipeline for one or more agents.

Examples:
  # Dry-run two agents with the rule scorer
  goldmine distill --agents trader,researcher --dry-run --rule-only

  # Persist the top 50 per agent and snapshot the result
  goldmine distill --agents trader --max-per-agent 50 --snapshot
`
