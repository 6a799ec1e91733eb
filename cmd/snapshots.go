package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/goldmine/pkg/stores/qdrant"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshots of the golden collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := qdrant.New(cfg.QdrantEndpoint())

		names, err := client.ListSnapshots(cmd.Context(), cfg.GoldenCollection)
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("no snapshots")
			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}
