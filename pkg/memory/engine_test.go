package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/spiralmem/pkg/errors"
)

func now() time.Time {
	return time.Now().UTC()
}

// testClock hands out strictly increasing timestamps so recency ordering
// is deterministic.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestEngine() (*Engine, *InMemoryGraph) {
	graph := NewInMemoryGraph()
	graph.Now = newTestClock().Now

	return NewEngine(graph, nil), graph
}

// grant makes subsequent state writes for the identity possible.
func grant(t *testing.T, engine *Engine, nodeID string, scope Scope) {
	t.Helper()

	_, err := engine.UpsertIdentity(context.Background(), IdentityInput{NodeID: nodeID})
	require.NoError(t, err)

	_, err = engine.CreateConsent(context.Background(), ConsentInput{
		NodeID: nodeID, ConsentID: nodeID + "-consent", Scope: scope,
	})
	require.NoError(t, err)
}

func TestUpsertIdentityIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	first, err := engine.UpsertIdentity(ctx, IdentityInput{NodeID: "aria", Label: "Aria", Kind: "agent"})
	require.NoError(t, err)
	assert.Equal(t, "aria", first["node_id"])
	assert.Equal(t, "Aria", first["label"])

	second, err := engine.UpsertIdentity(ctx, IdentityInput{NodeID: "aria", Label: "Aria", Kind: "agent"})
	require.NoError(t, err)

	// Same entity, same creation timestamp.
	assert.Equal(t, first["created_at"], second["created_at"])
}

func TestUpsertIdentityReplacesFields(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	_, err := engine.UpsertIdentity(ctx, IdentityInput{NodeID: "aria", Label: "Aria", Kind: "agent"})
	require.NoError(t, err)

	rec, err := engine.UpsertIdentity(ctx, IdentityInput{NodeID: "aria", Label: "Aria v2"})
	require.NoError(t, err)

	assert.Equal(t, "Aria v2", rec["label"])
	assert.NotContains(t, rec, "kind")
}

func TestUpsertThoughtStubsReferences(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	rec, err := engine.UpsertThought(ctx, ThoughtInput{
		ThoughtID:        "th1",
		Text:             "the spiral tightens",
		GlyphIDs:         []string{"glyph-a"},
		MentionsClaimIDs: []string{"claim-x"},
		SourceID:         "src-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "thought", rec["kind"])

	// Dangling references materialize as stubs under their declared label.
	require.NotNil(t, graph.findLabel("Glyph", "glyph-a"))
	require.NotNil(t, graph.findLabel("Claim", "claim-x"))
	require.NotNil(t, graph.findLabel("Source", "src-1"))
	assert.True(t, graph.findLabel("Claim", "claim-x").Stub)
}

func TestUpsertThoughtAutoEmbeds(t *testing.T) {
	ctx := context.Background()
	graph := NewInMemoryGraph()
	engine := NewEngine(graph, NewMockEmbedder())

	rec, err := engine.UpsertThought(ctx, ThoughtInput{ThoughtID: "th1", Text: "hello"})
	require.NoError(t, err)

	embed, ok := rec["embed"].([]float64)
	require.True(t, ok)
	assert.Len(t, embed, 4)
}

func TestUpsertThoughtKeepsCallerEmbedding(t *testing.T) {
	ctx := context.Background()
	graph := NewInMemoryGraph()
	engine := NewEngine(graph, NewMockEmbedder())

	rec, err := engine.UpsertThought(ctx, ThoughtInput{
		ThoughtID: "th1", Text: "hello", Embed: []float64{1, 2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, rec["embed"])
}

func TestUpsertStateRequiresConsent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	_, err := engine.UpsertIdentity(ctx, IdentityInput{NodeID: "aria"})
	require.NoError(t, err)

	_, err = engine.UpsertState(ctx, StateInput{NodeID: "aria", StateID: "s1", T: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPermissionDenied)
}

func TestUpsertStateSucceedsWithConsent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	rec, err := engine.UpsertState(ctx, StateInput{
		NodeID:  "aria",
		StateID: "s1",
		T:       1,
		Vector:  StateVector{Sigma: 0.1, Tau: 0.9},
		Tags:    []string{"calm"},
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", rec["state_id"])
	assert.Equal(t, 0.1, rec["sigma"])
	assert.Equal(t, []string{"calm"}, rec["tags"])
}

func TestUpsertStateIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	in := StateInput{NodeID: "aria", StateID: "s1", T: 1}

	first, err := engine.UpsertState(ctx, in)
	require.NoError(t, err)

	second, err := engine.UpsertState(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first["created_at"], second["created_at"])

	// The identity holds exactly one HAS_STATE edge to the state.
	i := graph.findLabel("Identity", "aria")
	assert.Len(t, graph.targets(i, "HAS_STATE"), 1)
}

func TestLineageSingleParent(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	for _, id := range []string{"s1", "s2"} {
		_, err := engine.UpsertState(ctx, StateInput{NodeID: "aria", StateID: id, T: 1})
		require.NoError(t, err)
	}

	_, err := engine.UpsertState(ctx, StateInput{
		NodeID: "aria", StateID: "s3", T: 2, DerivedFromStateID: "s1",
	})
	require.NoError(t, err)

	s3 := graph.findLabel("SelfState", "s3")
	require.Equal(t, []*Node{graph.findLabel("SelfState", "s1")}, graph.targets(s3, "DERIVED_FROM"))

	// Re-parenting replaces the previous lineage edge.
	_, err = engine.UpsertState(ctx, StateInput{
		NodeID: "aria", StateID: "s3", T: 2, DerivedFromStateID: "s2",
	})
	require.NoError(t, err)

	assert.Equal(t, []*Node{graph.findLabel("SelfState", "s2")}, graph.targets(s3, "DERIVED_FROM"))
}

func TestLineageRefusesCycle(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	_, err := engine.UpsertState(ctx, StateInput{NodeID: "aria", StateID: "s1", T: 1})
	require.NoError(t, err)

	_, err = engine.UpsertState(ctx, StateInput{
		NodeID: "aria", StateID: "s2", T: 2, DerivedFromStateID: "s1",
	})
	require.NoError(t, err)

	// s1 <- s2 exists; deriving s1 from s2 would close a cycle.
	_, err = engine.UpsertState(ctx, StateInput{
		NodeID: "aria", StateID: "s1", T: 1, DerivedFromStateID: "s2",
	})
	require.NoError(t, err)

	s1 := graph.findLabel("SelfState", "s1")
	assert.Empty(t, graph.targets(s1, "DERIVED_FROM"))

	// Self-parenting is the degenerate cycle.
	_, err = engine.UpsertState(ctx, StateInput{
		NodeID: "aria", StateID: "s1", T: 1, DerivedFromStateID: "s1",
	})
	require.NoError(t, err)
	assert.Empty(t, graph.targets(s1, "DERIVED_FROM"))
}

func TestUpsertStateEvidenceAndFeels(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	_, err := engine.UpsertThought(ctx, ThoughtInput{ThoughtID: "th1", Text: "observed"})
	require.NoError(t, err)

	_, err = engine.UpsertState(ctx, StateInput{
		NodeID:   "aria",
		StateID:  "s1",
		T:        1,
		Evidence: []string{"th1", "dangling-ev"},
		Feels:    []Affect{{TargetID: "th1", Ache: 0.2, Tension: 0.7}},
	})
	require.NoError(t, err)

	s1 := graph.findLabel("SelfState", "s1")
	evidence := graph.targets(s1, "EVIDENCED_BY")
	require.Len(t, evidence, 2)

	// The resolvable id landed on the thought, the dangling one on a
	// stub under the first candidate label.
	assert.Equal(t, graph.findLabel("Thought", "th1"), evidence[0])
	assert.Equal(t, graph.findLabel("Claim", "dangling-ev"), evidence[1])

	feels := graph.edgesFrom(s1, "FEELS")
	require.Len(t, feels, 1)
	assert.Equal(t, 0.2, feels[0].props["ache"])
	assert.Equal(t, 0.7, feels[0].props["tension"])
}

func TestUpsertClaimDefaults(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	rec, err := engine.UpsertClaim(ctx, ClaimInput{ClaimID: "c1", Text: "water is wet"})
	require.NoError(t, err)

	assert.Equal(t, 0.5, rec["truthiness"])
	assert.Equal(t, 0.5, rec["confidence"])
}

func TestUpsertClaimWiresSupportAndContradiction(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	_, err := engine.UpsertThought(ctx, ThoughtInput{ThoughtID: "th1", Text: "observed"})
	require.NoError(t, err)

	_, err = engine.UpsertClaim(ctx, ClaimInput{
		ClaimID:        "c1",
		Text:           "water is wet",
		SupportIDs:     []string{"th1", "dangling-sup"},
		ContradictsIDs: []string{"c2"},
	})
	require.NoError(t, err)

	c1 := graph.findLabel("Claim", "c1")
	supports := graph.targets(c1, "SUPPORTED_BY")
	require.Len(t, supports, 2)
	assert.Equal(t, graph.findLabel("Thought", "th1"), supports[0])
	assert.Equal(t, graph.findLabel("Source", "dangling-sup"), supports[1])

	contradicts := graph.targets(c1, "CONTRADICTS")
	require.Len(t, contradicts, 1)
	assert.True(t, contradicts[0].Stub)
}

func TestUpsertRitualMetaRoundtrip(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	rec, err := engine.UpsertRitual(ctx, RitualInput{
		RitualID:  "r1",
		Name:      "morning-review",
		Code:      "review()",
		Version:   "1",
		Checksum:  "abc",
		Meta:      map[string]any{"cadence": "daily"},
		AppliesTo: []string{"phase-1"},
	})
	require.NoError(t, err)

	meta, ok := rec["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "daily", meta["cadence"])

	r1 := graph.findLabel("Ritual", "r1")
	applies := graph.targets(r1, "APPLIES_TO")
	require.Len(t, applies, 1)
	assert.Equal(t, "Phase", applies[0].Label)
}

func TestUpsertLawActiveDefault(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	rec, err := engine.UpsertLaw(ctx, LawInput{LawID: "l1", Name: "first", Text: "do no harm"})
	require.NoError(t, err)
	assert.Equal(t, true, rec["active"])

	inactive := false
	rec, err = engine.UpsertLaw(ctx, LawInput{LawID: "l1", Name: "first", Text: "do no harm", Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, false, rec["active"])
}

func TestCreateEventUpdatesTargets(t *testing.T) {
	ctx := context.Background()
	engine, graph := newTestEngine()

	grant(t, engine, "aria", ScopePrivate)

	_, err := engine.UpsertState(ctx, StateInput{NodeID: "aria", StateID: "s1", T: 1})
	require.NoError(t, err)

	rec, err := engine.CreateEvent(ctx, EventInput{
		EventID: "e1",
		Name:    "review",
		When:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Meta:    map[string]any{"actor": "aria"},
		Updates: []string{"s1"},
	})
	require.NoError(t, err)

	meta, ok := rec["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aria", meta["actor"])

	e1 := graph.findLabel("Event", "e1")
	updated := graph.targets(e1, "UPDATED")
	require.Len(t, updated, 1)
	assert.Equal(t, "SelfState", updated[0].Label)
}

func TestGeneratedIDs(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	rec, err := engine.UpsertClaim(ctx, ClaimInput{Text: "generated"})
	require.NoError(t, err)

	id, ok := rec["claim_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
}
