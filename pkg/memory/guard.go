package memory

import (
	"context"

	"github.com/theapemachine/spiralmem/pkg/errors"
)

/*
ConsentGuard decides whether a scope-sensitive write affecting an identity
is permitted. Consent is additive and scope-specific; a public grant
satisfies every scope, a revoked grant satisfies none.
*/
type ConsentGuard struct {
	graph Graph
}

func NewConsentGuard(graph Graph) *ConsentGuard {
	return &ConsentGuard{graph: graph}
}

// Authorize reports whether at least one non-revoked consent of the
// identity covers the requested scope.
func (guard *ConsentGuard) Authorize(ctx context.Context, nodeID string, scope Scope) (bool, error) {
	rows, err := guard.graph.RunRead(ctx, stmtConsentGuard, map[string]any{
		"node_id": nodeID,
		"scope":   string(scope),
	})

	if err != nil {
		return false, backendErr(err)
	}

	if len(rows) == 0 {
		return false, nil
	}

	allowed, _ := rows[0]["allowed"].(bool)

	return allowed, nil
}

// scopeSatisfies is the pure decision: an exact match or a public grant.
func scopeSatisfies(granted, requested Scope) bool {
	return granted == requested || granted == ScopePublic
}

// backendErr wraps a store failure unless it is already a typed APIError.
func backendErr(err error) error {
	if _, ok := err.(*errors.APIError); ok {
		return err
	}

	return errors.ErrBackend.WithMessagef("graph: %v", err)
}
