package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/theapemachine/spiralmem/pkg/errors"
)

/*
Engine performs the merge-or-create protocol for every entity kind. Each
operation is idempotent on the entity's primary key, wires the declared
relationships in the same transaction and returns the materialized entity
as a flat record. The engine holds no state of its own; the graph is the
sole unit of concurrency control.
*/
type Engine struct {
	graph    Graph
	guard    *ConsentGuard
	embedder EmbeddingService
}

// NewEngine builds an engine over the given graph. embedder may be nil, in
// which case thoughts are stored with whatever embedding the caller sent.
func NewEngine(graph Graph, embedder EmbeddingService) *Engine {
	return &Engine{
		graph:    graph,
		guard:    NewConsentGuard(graph),
		embedder: embedder,
	}
}

// Guard exposes the consent guard for callers that authorize out-of-band.
func (e *Engine) Guard() *ConsentGuard {
	return e.guard
}

func (e *Engine) UpsertIdentity(ctx context.Context, in IdentityInput) (Record, error) {
	return e.write(ctx, stmtUpsertIdentity, map[string]any{
		"node_id": in.NodeID,
		"label":   nullable(in.Label),
		"kind":    nullable(in.Kind),
	}, "identity")
}

func (e *Engine) CreateConsent(ctx context.Context, in ConsentInput) (Record, error) {
	rec, err := e.write(ctx, stmtCreateConsent, map[string]any{
		"node_id":    in.NodeID,
		"consent_id": orGenerated(in.ConsentID),
		"scope":      string(in.Scope),
		"conditions": encodeMeta(in.Conditions),
		"granted_at": nullableTime(in.GrantedAt),
		"revoked_at": nullableTime(in.RevokedAt),
	}, "consent")

	if err != nil {
		return nil, err
	}

	decodeMeta(rec, "conditions")

	return rec, nil
}

func (e *Engine) UpsertThought(ctx context.Context, in ThoughtInput) (Record, error) {
	kind := in.Kind

	if kind == "" {
		kind = "thought"
	}

	embed := in.Embed

	if len(embed) == 0 && in.Text != "" && e.embedder != nil {
		var err error

		if embed, err = e.embedder.GenerateEmbedding(ctx, in.Text); err != nil {
			return nil, errors.ErrBackend.WithMessagef("embedding: %v", err)
		}
	}

	return e.write(ctx, stmtUpsertThought, map[string]any{
		"thought_id":         orGenerated(in.ThoughtID),
		"kind":               kind,
		"text":               in.Text,
		"tokens":             nullableInt(in.Tokens),
		"embed":              embed,
		"ache":               in.Ache,
		"drift":              in.Drift,
		"glyph_ids":          stringList(in.GlyphIDs),
		"mentions_claim_ids": stringList(in.MentionsClaimIDs),
		"source_id":          nullable(in.SourceID),
	}, "thought")
}

/*
UpsertState is the one scope-sensitive write: it requires a non-revoked
consent covering the requested scope and an already existing identity.
*/
func (e *Engine) UpsertState(ctx context.Context, in StateInput) (Record, error) {
	scope := in.Scope

	if scope == "" {
		scope = ScopePrivate
	}

	allowed, err := e.guard.Authorize(ctx, in.NodeID, scope)

	if err != nil {
		return nil, err
	}

	if !allowed {
		return nil, errors.ErrPermissionDenied.WithMessagef(
			"no consent covers scope %q for identity %q", scope, in.NodeID,
		)
	}

	feels := make([]map[string]any, 0, len(in.Feels))

	for _, f := range in.Feels {
		feels = append(feels, map[string]any{
			"target_id": f.TargetID,
			"ache":      f.Ache,
			"tension":   f.Tension,
		})
	}

	rec, err := e.write(ctx, stmtUpsertState, map[string]any{
		"node_id":               in.NodeID,
		"state_id":              orGenerated(in.StateID),
		"t":                     in.T,
		"sigma":                 in.Vector.Sigma,
		"s":                     in.Vector.S,
		"tau":                   in.Vector.Tau,
		"chi":                   in.Vector.Chi,
		"lambda":                in.Vector.Lambda,
		"rho":                   in.Vector.Rho,
		"embed":                 in.Vector.Embed,
		"tags":                  stringList(in.Tags),
		"phase_id":              nullable(in.PhaseID),
		"derived_from_state_id": nullable(in.DerivedFromStateID),
		"evidence":              stringList(in.Evidence),
		"feels":                 feels,
	}, "state")

	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, errors.ErrNotFound.WithMessagef("identity %q not found", in.NodeID)
	}

	return rec, nil
}

func (e *Engine) UpsertClaim(ctx context.Context, in ClaimInput) (Record, error) {
	return e.write(ctx, stmtUpsertClaim, map[string]any{
		"claim_id":        orGenerated(in.ClaimID),
		"text":            in.Text,
		"truthiness":      orDefault(in.Truthiness, 0.5),
		"confidence":      orDefault(in.Confidence, 0.5),
		"support_ids":     stringList(in.SupportIDs),
		"contradicts_ids": stringList(in.ContradictsIDs),
	}, "claim")
}

func (e *Engine) UpsertRitual(ctx context.Context, in RitualInput) (Record, error) {
	rec, err := e.write(ctx, stmtUpsertRitual, map[string]any{
		"ritual_id":  orGenerated(in.RitualID),
		"name":       in.Name,
		"code":       in.Code,
		"version":    in.Version,
		"checksum":   in.Checksum,
		"effect":     nullable(in.Effect),
		"meta":       encodeMeta(in.Meta),
		"applies_to": stringList(in.AppliesTo),
	}, "ritual")

	if err != nil {
		return nil, err
	}

	decodeMeta(rec, "meta")

	return rec, nil
}

func (e *Engine) UpsertLaw(ctx context.Context, in LawInput) (Record, error) {
	active := true

	if in.Active != nil {
		active = *in.Active
	}

	return e.write(ctx, stmtUpsertLaw, map[string]any{
		"law_id":   orGenerated(in.LawID),
		"name":     in.Name,
		"version":  in.Version,
		"text":     in.Text,
		"checksum": in.Checksum,
		"active":   active,
	}, "law")
}

func (e *Engine) CreateEvent(ctx context.Context, in EventInput) (Record, error) {
	rec, err := e.write(ctx, stmtCreateEvent, map[string]any{
		"event_id": orGenerated(in.EventID),
		"name":     in.Name,
		"when":     in.When.UTC(),
		"meta":     encodeMeta(in.Meta),
		"updates":  stringList(in.Updates),
	}, "event")

	if err != nil {
		return nil, err
	}

	decodeMeta(rec, "meta")

	return rec, nil
}

// write runs one upsert statement and extracts the materialized entity
// from its RETURN alias. A nil record with nil error means the statement
// matched nothing; callers decide whether that is a not-found condition.
func (e *Engine) write(ctx context.Context, stmt string, params map[string]any, alias string) (Record, error) {
	rows, err := e.graph.RunWrite(ctx, stmt, params)

	if err != nil {
		return nil, backendErr(err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return toRecord(rows[0][alias]), nil
}

func toRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	default:
		return nil
	}
}

// orGenerated keeps a caller-supplied key, otherwise mints a fresh one.
// Keys are generated here rather than in Cypher so the same statement is
// strictly idempotent on retry.
func orGenerated(id string) string {
	if id != "" {
		return id
	}

	return uuid.NewString()
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}

	return *v
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}

	return *v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.UTC()
}

func stringList(in []string) []string {
	if in == nil {
		return []string{}
	}

	return in
}

// encodeMeta stores map-valued fields as a JSON string property; property
// graphs only hold scalar and list properties.
func encodeMeta(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}

	b, err := json.Marshal(m)

	if err != nil {
		return nil
	}

	return string(b)
}

// decodeMeta reverses encodeMeta on a materialized record, in place.
func decodeMeta(rec Record, field string) {
	if rec == nil {
		return
	}

	raw, ok := rec[field].(string)

	if !ok {
		return
	}

	var m map[string]any

	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return
	}

	rec[field] = m
}
