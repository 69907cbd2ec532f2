package memory

import (
	"fmt"
	"strings"
)

/*
RefKind names one candidate label for a polymorphic reference together with
the property holding its primary key.
*/
type RefKind struct {
	Label string
	Key   string
}

/*
RefSet is an ordered dispatch table for polymorphic id resolution. The order
is part of the contract: it fixes both the generated Cypher predicate and
the label given to a stub when an id resolves to nothing.
*/
type RefSet []RefKind

// Dispatch tables for every polymorphic relationship. Order follows the
// wire protocol, first entry doubles as the stub label.
var (
	// SelfState -[:EVIDENCED_BY]-> {Claim, Thought, Test, Artifact}
	EvidenceRefs = RefSet{
		{Label: "Claim", Key: "claim_id"},
		{Label: "Thought", Key: "thought_id"},
		{Label: "Test", Key: "test_id"},
		{Label: "Artifact", Key: "artifact_id"},
	}

	// SelfState -[:FEELS]-> {Claim, Thought}
	FeelsRefs = RefSet{
		{Label: "Claim", Key: "claim_id"},
		{Label: "Thought", Key: "thought_id"},
	}

	// Claim -[:SUPPORTED_BY]-> {Source, Test, Artifact, Thought}
	SupportRefs = RefSet{
		{Label: "Source", Key: "source_id"},
		{Label: "Test", Key: "test_id"},
		{Label: "Artifact", Key: "artifact_id"},
		{Label: "Thought", Key: "thought_id"},
	}

	// Ritual -[:APPLIES_TO]-> {Phase, Identity, Law}
	AppliesRefs = RefSet{
		{Label: "Phase", Key: "phase_id"},
		{Label: "Identity", Key: "node_id"},
		{Label: "Law", Key: "law_id"},
	}

	// Event -[:UPDATED]-> {SelfState, Law, Ritual, Claim}
	UpdatesRefs = RefSet{
		{Label: "SelfState", Key: "state_id"},
		{Label: "Law", Key: "law_id"},
		{Label: "Ritual", Key: "ritual_id"},
		{Label: "Claim", Key: "claim_id"},
	}
)

/*
Predicate renders the WHERE clause matching nodeVar against valueVar on any
of the candidate key properties, in declared order.
*/
func (rs RefSet) Predicate(nodeVar, valueVar string) string {
	parts := make([]string, len(rs))

	for i, ref := range rs {
		parts[i] = fmt.Sprintf("%s.%s = %s", nodeVar, ref.Key, valueVar)
	}

	return strings.Join(parts, " OR ")
}

// Stub is the label/key pair used to materialize a stub node when an id
// resolves to no existing node.
func (rs RefSet) Stub() RefKind {
	return rs[0]
}

/*
Resolve walks the table in declared order and collects every node whose
candidate key carries the id. Used by the in-memory graph; the Cypher
statements encode the same table through Predicate.
*/
func (rs RefSet) Resolve(id string, lookup func(keyField, id string) []*Node) []*Node {
	var out []*Node

	for _, ref := range rs {
		for _, n := range lookup(ref.Key, id) {
			if !containsNode(out, n) {
				out = append(out, n)
			}
		}
	}

	return out
}

func containsNode(nodes []*Node, target *Node) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}
