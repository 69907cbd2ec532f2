package memory

import (
	"context"

	"github.com/theapemachine/spiralmem/pkg/errors"
)

/*
WhyChain reconstructs a claim's one-hop justification: the claim's full
field set, the deduplicated entities supporting it and the deduplicated
claims contradicting it. Not transitive.
*/
func (e *Engine) WhyChain(ctx context.Context, claimID string) (*WhyChain, error) {
	rows, err := e.graph.RunRead(ctx, stmtWhyChain, map[string]any{"claim_id": claimID})

	if err != nil {
		return nil, backendErr(err)
	}

	if len(rows) == 0 {
		return nil, errors.ErrNotFound.WithMessagef("claim %q not found", claimID)
	}

	return &WhyChain{
		Claim:       toRecord(rows[0]["claim"]),
		Supports:    toRecords(rows[0]["supports"]),
		Contradicts: toRecords(rows[0]["contradicts"]),
	}, nil
}

/*
LatestSelf returns the identity's self-state with the greatest t, together
with its evidence set and affect entries. Ties on t break on newest
created_at, then state_id. An identity without states (or an unknown
identity) yields an empty result, not an error.
*/
func (e *Engine) LatestSelf(ctx context.Context, nodeID string) (*LatestSelf, error) {
	rows, err := e.graph.RunRead(ctx, stmtLatestSelf, map[string]any{"node_id": nodeID})

	if err != nil {
		return nil, backendErr(err)
	}

	if len(rows) == 0 {
		return &LatestSelf{}, nil
	}

	out := &LatestSelf{
		State:    toRecord(rows[0]["state"]),
		Evidence: toRecords(rows[0]["evidence"]),
	}

	affect, _ := rows[0]["affect"].([]any)

	for _, entry := range affect {
		m, ok := entry.(map[string]any)

		if !ok {
			continue
		}

		out.Affect = append(out.Affect, AffectEntry{
			Target:  toRecord(m["target"]),
			Ache:    toFloat(m["ache"]),
			Tension: toFloat(m["tension"]),
		})
	}

	return out, nil
}

func toRecords(v any) []Record {
	list, ok := v.([]any)

	if !ok {
		return nil
	}

	out := make([]Record, 0, len(list))

	for _, item := range list {
		if rec := toRecord(item); rec != nil {
			out = append(out, rec)
		}
	}

	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
