package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/theapemachine/spiralmem/pkg/memory"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Apply the graph schema",
	Long:  longBootstrap,
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, cleanup, err := openGraph(cmd.Context())

		if err != nil {
			return err
		}

		defer cleanup()

		if err := memory.Bootstrap(cmd.Context(), graph, vectorDim()); err != nil {
			return err
		}

		log.Info("schema applied", "vector_dim", vectorDim())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	bootstrapCmd.Flags().BoolVar(&inMemoryFlag, "in-memory", false, "Use the in-process graph instead of neo4j")
}

var longBootstrap = `
Apply uniqueness constraints for every entity label and, when vector.enabled
is set, cosine vector indexes over the state and thought embeddings. Safe to
run repeatedly.
`
