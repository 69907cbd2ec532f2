package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/spiralmem/pkg/memory"
	"github.com/theapemachine/spiralmem/pkg/service"
	"github.com/theapemachine/spiralmem/pkg/stores/neo4j"
)

var (
	addrFlag     string
	inMemoryFlag bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory HTTP API",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, cleanup, err := openGraph(cmd.Context())

			if err != nil {
				return err
			}

			defer cleanup()

			addr := addrFlag

			if addr == "" {
				addr = viper.GetString("server.addr")
			}

			srv := service.NewMemoryServer(
				memory.NewEngine(graph, embedder()),
				graph,
				vectorDim(),
			)

			return srv.Run(addr)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&addrFlag, "addr", "a", "", "Address to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&inMemoryFlag, "in-memory", false, "Use the in-process graph instead of neo4j")
}

// openGraph connects the configured backend. The in-memory graph is for
// local development and demos; nothing persists across restarts.
func openGraph(ctx context.Context) (memory.Graph, func(), error) {
	if inMemoryFlag {
		log.Warn("using in-memory graph, data will not persist")
		return memory.NewInMemoryGraph(), func() {}, nil
	}

	client, err := neo4j.Open(
		ctx,
		viper.GetString("neo4j.uri"),
		viper.GetString("neo4j.user"),
		viper.GetString("neo4j.password"),
		viper.GetString("neo4j.database"),
	)

	if err != nil {
		return nil, nil, err
	}

	return client, func() {
		if err := client.Close(context.Background()); err != nil {
			log.Error("closing neo4j", "error", err)
		}
	}, nil
}

func embedder() memory.EmbeddingService {
	if !viper.GetBool("embedder.enabled") {
		return nil
	}

	key := os.Getenv("OPENAI_API_KEY")

	if key == "" {
		log.Warn("embedder enabled but OPENAI_API_KEY unset, thoughts stay unembedded")
		return nil
	}

	return memory.NewOpenAIEmbedder(key, viper.GetString("embedder.model"))
}

func vectorDim() int {
	if !viper.GetBool("vector.enabled") {
		return 0
	}

	return viper.GetInt("vector.dim")
}

var longServe = `
Serve the memory HTTP API over the configured graph backend.

Examples:
  # Serve against the neo4j instance from the config file
  spiralmem serve

  # Serve on a different address with the in-process graph
  spiralmem serve --addr :8080 --in-memory
`
