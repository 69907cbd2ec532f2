package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type edge struct {
	from  *Node
	to    *Node
	typ   string
	props map[string]any
}

/*
InMemoryGraph implements Graph by interpreting this package's statements
against an in-process property graph, using the same merge and dispatch
helpers the Cypher encodes. It backs the engine, guard, query and service
tests and doubles as an offline development store.
*/
type InMemoryGraph struct {
	mu    sync.Mutex
	nodes []*Node
	edges []*edge

	// Now supplies timestamps; overridable so tests control recency.
	Now func() time.Time

	// VectorIndexErr, when set, makes vector index DDL fail the way a
	// backend without vector support would.
	VectorIndexErr error

	schemaApplied []string
}

var _ Graph = (*InMemoryGraph)(nil)

func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{Now: time.Now}
}

// SchemaApplied lists the DDL statements accepted so far.
func (g *InMemoryGraph) SchemaApplied() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.schemaApplied...)
}

func (g *InMemoryGraph) RunWrite(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	trimmed := strings.TrimSpace(cypher)

	switch {
	case strings.HasPrefix(trimmed, "CREATE VECTOR INDEX"):
		if g.VectorIndexErr != nil {
			return nil, g.VectorIndexErr
		}

		g.schemaApplied = append(g.schemaApplied, trimmed)
		return nil, nil
	case strings.HasPrefix(trimmed, "CREATE CONSTRAINT"), strings.HasPrefix(trimmed, "CREATE INDEX"):
		g.schemaApplied = append(g.schemaApplied, trimmed)
		return nil, nil
	}

	switch cypher {
	case stmtUpsertIdentity:
		return g.upsertIdentity(params), nil
	case stmtCreateConsent:
		return g.createConsent(params), nil
	case stmtUpsertThought:
		return g.upsertThought(params), nil
	case stmtUpsertState:
		return g.upsertState(params), nil
	case stmtUpsertClaim:
		return g.upsertClaim(params), nil
	case stmtUpsertRitual:
		return g.upsertRitual(params), nil
	case stmtUpsertLaw:
		return g.upsertLaw(params), nil
	case stmtCreateEvent:
		return g.createEvent(params), nil
	}

	return nil, fmt.Errorf("inmemory: unrecognized write statement")
}

func (g *InMemoryGraph) RunRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch cypher {
	case stmtConsentGuard:
		return g.consentGuard(params), nil
	case stmtWhyChain:
		return g.whyChain(params), nil
	case stmtLatestSelf:
		return g.latestSelf(params), nil
	}

	return nil, fmt.Errorf("inmemory: unrecognized read statement")
}

// ---------------------------------------------------------------------------
// Write statements
// ---------------------------------------------------------------------------

func (g *InMemoryGraph) upsertIdentity(p map[string]any) []Record {
	n := g.merge("Identity", "node_id", str(p["node_id"]), clean(map[string]any{
		"label": p["label"],
		"kind":  p["kind"],
	}))

	return []Record{{"identity": n.record()}}
}

func (g *InMemoryGraph) createConsent(p map[string]any) []Record {
	i := g.stub("Identity", "node_id", str(p["node_id"]))

	id := str(p["consent_id"])
	c := g.findLabel("Consent", id)

	if c == nil {
		granted := p["granted_at"]

		if granted == nil {
			granted = g.Now().UTC()
		}

		c = g.merge("Consent", "consent_id", id, clean(map[string]any{
			"scope":      p["scope"],
			"conditions": p["conditions"],
			"granted_at": granted,
		}))
	} else {
		c.Fields["scope"] = p["scope"]

		if p["conditions"] != nil {
			c.Fields["conditions"] = p["conditions"]
		} else {
			delete(c.Fields, "conditions")
		}
	}

	if p["revoked_at"] != nil {
		c.Fields["revoked_at"] = p["revoked_at"]
	} else {
		delete(c.Fields, "revoked_at")
	}

	g.mergeEdge(i, c, "CONSENT")

	return []Record{{"consent": c.record()}}
}

func (g *InMemoryGraph) upsertThought(p map[string]any) []Record {
	th := g.merge("Thought", "thought_id", str(p["thought_id"]), clean(map[string]any{
		"kind":   p["kind"],
		"text":   p["text"],
		"tokens": p["tokens"],
		"embed":  p["embed"],
		"ache":   p["ache"],
		"drift":  p["drift"],
	}))

	for _, gid := range strs(p["glyph_ids"]) {
		g.mergeEdge(th, g.stub("Glyph", "glyph_id", gid), "USES_GLYPH")
	}

	for _, cid := range strs(p["mentions_claim_ids"]) {
		g.mergeEdge(th, g.stub("Claim", "claim_id", cid), "MENTIONS")
	}

	if sid := str(p["source_id"]); sid != "" {
		g.mergeEdge(th, g.stub("Source", "source_id", sid), "DERIVES_FROM")
	}

	return []Record{{"thought": th.record()}}
}

func (g *InMemoryGraph) upsertState(p map[string]any) []Record {
	i := g.findLabel("Identity", str(p["node_id"]))

	if i == nil {
		return []Record{}
	}

	s := g.merge("SelfState", "state_id", str(p["state_id"]), clean(map[string]any{
		"t":      p["t"],
		"sigma":  p["sigma"],
		"s":      p["s"],
		"tau":    p["tau"],
		"chi":    p["chi"],
		"lambda": p["lambda"],
		"rho":    p["rho"],
		"embed":  p["embed"],
		"tags":   p["tags"],
	}))

	if hs, created := g.mergeEdge(i, s, "HAS_STATE"); created {
		hs.props = map[string]any{"dt": g.Now().UTC()}
	}

	if pid := str(p["phase_id"]); pid != "" {
		g.mergeEdge(s, g.stub("Phase", "phase_id", pid), "IN_PHASE")
	}

	if prevID := str(p["derived_from_state_id"]); prevID != "" {
		prev := g.findLabel("SelfState", prevID)

		if prev != nil && !g.reachable(prev, s) {
			g.deleteEdges(func(ed *edge) bool {
				return ed.from == s && ed.typ == "DERIVED_FROM" && ed.to != prev
			})
			g.mergeEdge(s, prev, "DERIVED_FROM")
		}
	}

	for _, ev := range strs(p["evidence"]) {
		for _, target := range g.resolveOrStub(EvidenceRefs, ev) {
			g.mergeEdge(s, target, "EVIDENCED_BY")
		}
	}

	for _, f := range maps(p["feels"]) {
		for _, target := range g.resolveOrStub(FeelsRefs, str(f["target_id"])) {
			ed, _ := g.mergeEdge(s, target, "FEELS")
			ed.props = map[string]any{"ache": f["ache"], "tension": f["tension"]}
		}
	}

	return []Record{{"state": s.record()}}
}

func (g *InMemoryGraph) upsertClaim(p map[string]any) []Record {
	c := g.merge("Claim", "claim_id", str(p["claim_id"]), clean(map[string]any{
		"text":       p["text"],
		"truthiness": p["truthiness"],
		"confidence": p["confidence"],
	}))

	for _, sid := range strs(p["support_ids"]) {
		for _, target := range g.resolveOrStub(SupportRefs, sid) {
			g.mergeEdge(c, target, "SUPPORTED_BY")
		}
	}

	for _, cid := range strs(p["contradicts_ids"]) {
		g.mergeEdge(c, g.stub("Claim", "claim_id", cid), "CONTRADICTS")
	}

	return []Record{{"claim": c.record()}}
}

func (g *InMemoryGraph) upsertRitual(p map[string]any) []Record {
	r := g.merge("Ritual", "ritual_id", str(p["ritual_id"]), clean(map[string]any{
		"name":     p["name"],
		"code":     p["code"],
		"version":  p["version"],
		"checksum": p["checksum"],
		"effect":   p["effect"],
		"meta":     p["meta"],
	}))

	for _, aid := range strs(p["applies_to"]) {
		for _, target := range g.resolveOrStub(AppliesRefs, aid) {
			g.mergeEdge(r, target, "APPLIES_TO")
		}
	}

	return []Record{{"ritual": r.record()}}
}

func (g *InMemoryGraph) upsertLaw(p map[string]any) []Record {
	l := g.merge("Law", "law_id", str(p["law_id"]), clean(map[string]any{
		"name":     p["name"],
		"version":  p["version"],
		"text":     p["text"],
		"checksum": p["checksum"],
		"active":   p["active"],
	}))

	return []Record{{"law": l.record()}}
}

func (g *InMemoryGraph) createEvent(p map[string]any) []Record {
	e := g.merge("Event", "event_id", str(p["event_id"]), clean(map[string]any{
		"name": p["name"],
		"when": p["when"],
		"meta": p["meta"],
	}))

	for _, uid := range strs(p["updates"]) {
		for _, target := range g.resolveOrStub(UpdatesRefs, uid) {
			g.mergeEdge(e, target, "UPDATED")
		}
	}

	return []Record{{"event": e.record()}}
}

// ---------------------------------------------------------------------------
// Read statements
// ---------------------------------------------------------------------------

func (g *InMemoryGraph) consentGuard(p map[string]any) []Record {
	requested := Scope(str(p["scope"]))
	allowed := false

	if i := g.findLabel("Identity", str(p["node_id"])); i != nil {
		for _, c := range g.targets(i, "CONSENT") {
			if _, revoked := c.Fields["revoked_at"]; revoked {
				continue
			}

			if scopeSatisfies(Scope(str(c.Fields["scope"])), requested) {
				allowed = true
				break
			}
		}
	}

	return []Record{{"allowed": allowed}}
}

func (g *InMemoryGraph) whyChain(p map[string]any) []Record {
	c := g.findLabel("Claim", str(p["claim_id"]))

	if c == nil {
		return []Record{}
	}

	return []Record{{
		"claim":       c.record(),
		"supports":    nodeRows(g.targets(c, "SUPPORTED_BY")),
		"contradicts": nodeRows(g.targets(c, "CONTRADICTS")),
	}}
}

func (g *InMemoryGraph) latestSelf(p map[string]any) []Record {
	i := g.findLabel("Identity", str(p["node_id"]))

	if i == nil {
		return []Record{}
	}

	states := g.targets(i, "HAS_STATE")

	if len(states) == 0 {
		return []Record{}
	}

	sort.SliceStable(states, func(a, b int) bool {
		ta, tb := numeric(states[a].Fields["t"]), numeric(states[b].Fields["t"])

		if ta != tb {
			return ta > tb
		}

		if !states[a].CreatedAt.Equal(states[b].CreatedAt) {
			return states[a].CreatedAt.After(states[b].CreatedAt)
		}

		return states[a].ID < states[b].ID
	})

	s := states[0]

	affect := make([]any, 0)

	for _, ed := range g.edgesFrom(s, "FEELS") {
		affect = append(affect, map[string]any{
			"target":  map[string]any(ed.to.record()),
			"ache":    ed.props["ache"],
			"tension": ed.props["tension"],
		})
	}

	return []Record{{
		"state":    s.record(),
		"evidence": nodeRows(g.targets(s, "EVIDENCED_BY")),
		"affect":   affect,
	}}
}

// ---------------------------------------------------------------------------
// Graph primitives
// ---------------------------------------------------------------------------

func (g *InMemoryGraph) findLabel(label, id string) *Node {
	for _, n := range g.nodes {
		if n.Label == label && n.ID == id {
			return n
		}
	}

	return nil
}

func (g *InMemoryGraph) lookupByKey(keyField, id string) []*Node {
	var out []*Node

	for _, n := range g.nodes {
		if n.Key == keyField && n.ID == id {
			out = append(out, n)
		}
	}

	return out
}

func (g *InMemoryGraph) merge(label, key, id string, fields map[string]any) *Node {
	existing := g.findLabel(label, id)
	n := mergeNode(existing, label, key, id, fields, g.Now().UTC())

	if existing == nil {
		g.nodes = append(g.nodes, n)
	}

	return n
}

func (g *InMemoryGraph) stub(label, key, id string) *Node {
	if existing := g.findLabel(label, id); existing != nil {
		return existing
	}

	n := newStub(label, key, id)
	g.nodes = append(g.nodes, n)

	return n
}

func (g *InMemoryGraph) resolveOrStub(refs RefSet, id string) []*Node {
	targets := refs.Resolve(id, g.lookupByKey)

	if len(targets) == 0 {
		targets = []*Node{g.stub(refs.Stub().Label, refs.Stub().Key, id)}
	}

	return targets
}

func (g *InMemoryGraph) mergeEdge(from, to *Node, typ string) (*edge, bool) {
	for _, ed := range g.edges {
		if ed.from == from && ed.to == to && ed.typ == typ {
			return ed, false
		}
	}

	ed := &edge{from: from, to: to, typ: typ}
	g.edges = append(g.edges, ed)

	return ed, true
}

func (g *InMemoryGraph) deleteEdges(match func(*edge) bool) {
	kept := g.edges[:0]

	for _, ed := range g.edges {
		if !match(ed) {
			kept = append(kept, ed)
		}
	}

	g.edges = kept
}

func (g *InMemoryGraph) edgesFrom(from *Node, typ string) []*edge {
	var out []*edge

	for _, ed := range g.edges {
		if ed.from == from && ed.typ == typ {
			out = append(out, ed)
		}
	}

	return out
}

func (g *InMemoryGraph) targets(from *Node, typ string) []*Node {
	var out []*Node

	for _, ed := range g.edgesFrom(from, typ) {
		if !containsNode(out, ed.to) {
			out = append(out, ed.to)
		}
	}

	return out
}

// reachable reports whether to can be reached from from over DERIVED_FROM
// edges, including from == to.
func (g *InMemoryGraph) reachable(from, to *Node) bool {
	if from == to {
		return true
	}

	for _, ed := range g.edgesFrom(from, "DERIVED_FROM") {
		if g.reachable(ed.to, to) {
			return true
		}
	}

	return false
}

// ---------------------------------------------------------------------------
// Param coercion
// ---------------------------------------------------------------------------

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	s, _ := v.([]string)
	return s
}

func maps(v any) []map[string]any {
	m, _ := v.([]map[string]any)
	return m
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func clean(fields map[string]any) map[string]any {
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}

	return fields
}

func nodeRows(nodes []*Node) []any {
	out := make([]any, 0, len(nodes))

	for _, n := range nodes {
		out = append(out, map[string]any(n.record()))
	}

	return out
}
