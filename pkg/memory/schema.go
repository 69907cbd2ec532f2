package memory

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
)

/*
Bootstrap idempotently applies the graph schema: one uniqueness constraint
per entity label on its id property and an ordering index on SelfState.t.
When vectorDim is positive it additionally requests cosine vector indexes
over SelfState.embed and Thought.embed; a backend without vector-index
support turns that part into a logged no-op instead of a failure.

Safe to invoke repeatedly; every statement carries IF NOT EXISTS.
*/
func Bootstrap(ctx context.Context, graph Graph, vectorDim int) error {
	for _, stmt := range strings.Split(stmtConstraints, ";") {
		stmt = strings.TrimSpace(stmt)

		if stmt == "" {
			continue
		}

		if _, err := graph.RunWrite(ctx, stmt, nil); err != nil {
			return backendErr(err)
		}
	}

	if vectorDim <= 0 {
		return nil
	}

	params := map[string]any{"dim": vectorDim}

	for _, stmt := range []string{stmtVectorIndexState, stmtVectorIndexThought} {
		if _, err := graph.RunWrite(ctx, stmt, params); err != nil {
			log.Warn("vector index unsupported by backend, skipping", "error", err)
			return nil
		}
	}

	return nil
}
