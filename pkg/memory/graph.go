package memory

import "context"

// Record is one flattened result row from the graph store.
type Record map[string]any

/*
Graph is the storage boundary the engine speaks: one write transaction or
one read transaction per call, parameterized statements in, materialized
rows out. The Bolt client and the in-memory graph both implement it.
*/
type Graph interface {
	RunWrite(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	RunRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}
