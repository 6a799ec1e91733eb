/*
Package cmd implements the command-line interface for goldmine, the
golden-memory distillation pipeline.
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/theapemachine/goldmine/pkg/config"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "goldmine",
		Short: "Distill agent memories into a curated golden collection",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			return err
		},
	}
)

// Execute is the main entry point for the goldmine CLI.
func Execute() error {
	return rootCmd.Execute()
}

var longRoot = `
goldmine reads raw agent memories from a Qdrant collection, scores them
with either a deterministic rule table or a batched LLM call, keeps the
best per agent, and writes the survivors into a golden collection.

Configuration is environment-driven: QDRANT_HOST, QDRANT_PORT,
SOURCE_COLLECTION, GOLDEN_COLLECTION, SNAPSHOT_DIR, LLM_ENABLED,
LLM_ENDPOINT, LLM_API_KEY, LLM_MODEL, LLM_BATCH_SIZE.
`
