package memory

import "time"

// Scope is the consent visibility tier attached to a state write.
type Scope string

const (
	ScopePublic  Scope = "public"
	ScopeShared  Scope = "shared"
	ScopePrivate Scope = "private"
)

// Scopes lists every accepted consent scope.
var Scopes = []string{string(ScopePublic), string(ScopeShared), string(ScopePrivate)}

// ThoughtKinds lists the accepted values for ThoughtInput.Kind.
var ThoughtKinds = []string{"thought", "code", "math", "glyphic", "note"}

/*
IdentityInput upserts an Identity node keyed by NodeID.
*/
type IdentityInput struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

/*
ConsentInput grants (or revokes) a consent scope for an identity. A consent
with RevokedAt set is inert for authorization regardless of its scope.
*/
type ConsentInput struct {
	NodeID     string         `json:"node_id"`
	ConsentID  string         `json:"consent_id,omitempty"`
	Scope      Scope          `json:"scope"`
	Conditions map[string]any `json:"conditions,omitempty"`
	GrantedAt  *time.Time     `json:"granted_at,omitempty"`
	RevokedAt  *time.Time     `json:"revoked_at,omitempty"`
}

/*
ThoughtInput upserts a Thought and wires its glyph usages, claim mentions
and optional derivation source. Referenced glyphs, claims and sources are
stub-created when absent.
*/
type ThoughtInput struct {
	ThoughtID        string    `json:"thought_id,omitempty"`
	Kind             string    `json:"kind,omitempty"`
	Text             string    `json:"text"`
	Tokens           *int64    `json:"tokens,omitempty"`
	Embed            []float64 `json:"embed,omitempty"`
	Ache             float64   `json:"ache"`
	Drift            float64   `json:"drift"`
	GlyphIDs         []string  `json:"glyph_ids,omitempty"`
	MentionsClaimIDs []string  `json:"mentions_claim_ids,omitempty"`
	SourceID         string    `json:"source_id,omitempty"`
}

// StateVector carries the six scalar state coordinates plus the embedding.
type StateVector struct {
	Sigma  float64   `json:"sigma"`
	S      float64   `json:"s"`
	Tau    float64   `json:"tau"`
	Chi    float64   `json:"chi"`
	Lambda float64   `json:"lambda"`
	Rho    float64   `json:"rho"`
	Embed  []float64 `json:"embed,omitempty"`
}

// Affect is one FEELS edge: a target entity plus the ache/tension scalars
// carried on the edge itself.
type Affect struct {
	TargetID string  `json:"target_id"`
	Ache     float64 `json:"ache"`
	Tension  float64 `json:"tension"`
}

/*
StateInput upserts a SelfState snapshot for an existing identity. The write
is consent-gated on Scope (default private) and fails when the identity does
not exist.
*/
type StateInput struct {
	NodeID             string      `json:"node_id"`
	StateID            string      `json:"state_id,omitempty"`
	T                  int64       `json:"t"`
	Vector             StateVector `json:"vector"`
	Tags               []string    `json:"tags,omitempty"`
	PhaseID            string      `json:"phase_id,omitempty"`
	DerivedFromStateID string      `json:"derived_from_state_id,omitempty"`
	Evidence           []string    `json:"evidence,omitempty"`
	Feels              []Affect    `json:"feels,omitempty"`
	Scope              Scope       `json:"scope,omitempty"`
}

/*
ClaimInput upserts a Claim with its support and contradiction edges.
Truthiness and confidence default to 0.5 when omitted.
*/
type ClaimInput struct {
	ClaimID        string   `json:"claim_id,omitempty"`
	Text           string   `json:"text"`
	Truthiness     *float64 `json:"truthiness,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	SupportIDs     []string `json:"support_ids,omitempty"`
	ContradictsIDs []string `json:"contradicts_ids,omitempty"`
}

// RitualInput upserts a Ritual and its applicability edges.
type RitualInput struct {
	RitualID  string         `json:"ritual_id,omitempty"`
	Name      string         `json:"name"`
	Code      string         `json:"code"`
	Version   string         `json:"version"`
	Checksum  string         `json:"checksum"`
	Effect    string         `json:"effect,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	AppliesTo []string       `json:"applies_to,omitempty"`
}

// LawInput upserts a Law. Active defaults to true when omitted.
type LawInput struct {
	LawID    string `json:"law_id,omitempty"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Text     string `json:"text"`
	Checksum string `json:"checksum"`
	Active   *bool  `json:"active,omitempty"`
}

// EventInput records an Event and the entities it updated.
type EventInput struct {
	EventID string         `json:"event_id,omitempty"`
	Name    string         `json:"name"`
	When    time.Time      `json:"when"`
	Meta    map[string]any `json:"meta,omitempty"`
	Updates []string       `json:"updates,omitempty"`
}

// WhyChain is a claim's one-hop justification: the claim itself, the
// entities supporting it and the claims contradicting it, deduplicated.
type WhyChain struct {
	Claim       Record   `json:"claim"`
	Supports    []Record `json:"supports"`
	Contradicts []Record `json:"contradicts"`
}

// AffectEntry is one FEELS edge as returned by LatestSelf.
type AffectEntry struct {
	Target  Record  `json:"target"`
	Ache    float64 `json:"ache"`
	Tension float64 `json:"tension"`
}

// LatestSelf is an identity's most recent self-state with its evidence and
// affect sets. A zero value means the identity has no states.
type LatestSelf struct {
	State    Record        `json:"state"`
	Evidence []Record      `json:"evidence"`
	Affect   []AffectEntry `json:"affect"`
}
