package memory

import "time"

/*
Node is one graph node as held by the in-memory graph: either a bare stub
(id only, auto-materialized by a reference) or a materialized entity with a
full field set and a creation timestamp. The distinction makes a later full
upsert of a stub an explicit state transition rather than an ambiguous
overwrite.
*/
type Node struct {
	Label     string
	Key       string
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	Stub      bool
}

// newStub returns a bare node carrying only its id.
func newStub(label, key, id string) *Node {
	return &Node{Label: label, Key: key, ID: id, Stub: true}
}

/*
mergeNode is the pure merge-create: nil existing creates a materialized
node stamped with now; a stub transitions to materialized (also stamped
now, a stub has no creation time of its own); a materialized node gets a
full-field replace with its creation timestamp untouched. The primary key
is immutable throughout.
*/
func mergeNode(existing *Node, label, key, id string, fields map[string]any, now time.Time) *Node {
	if existing == nil {
		return &Node{
			Label:     label,
			Key:       key,
			ID:        id,
			Fields:    copyFields(fields),
			CreatedAt: now,
		}
	}

	existing.Fields = copyFields(fields)

	if existing.Stub {
		existing.Stub = false
		existing.CreatedAt = now
	}

	return existing
}

/*
record flattens the node into a result row: key property, fields and, for
materialized nodes, the creation timestamp.
*/
func (n *Node) record() Record {
	out := Record{n.Key: n.ID}

	for k, v := range n.Fields {
		out[k] = v
	}

	if !n.Stub {
		out["created_at"] = n.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	return out
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))

	for k, v := range fields {
		out[k] = v
	}

	return out
}
