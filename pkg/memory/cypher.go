package memory

import "fmt"

// Centralized Cypher so the engine stays readable. Statements with a
// polymorphic reference block are assembled from the RefSet dispatch
// tables so the resolution order lives in exactly one place.
//
// Relationship wiring is wrapped in CALL subqueries: an UNWIND over an
// empty list would otherwise zero the statement cardinality and swallow
// the RETURN row.

const stmtConstraints = `
CREATE CONSTRAINT identity_pk IF NOT EXISTS FOR (n:Identity)  REQUIRE n.node_id IS UNIQUE;
CREATE CONSTRAINT state_pk    IF NOT EXISTS FOR (n:SelfState) REQUIRE n.state_id IS UNIQUE;
CREATE CONSTRAINT thought_pk  IF NOT EXISTS FOR (n:Thought)   REQUIRE n.thought_id IS UNIQUE;
CREATE CONSTRAINT claim_pk    IF NOT EXISTS FOR (n:Claim)     REQUIRE n.claim_id IS UNIQUE;
CREATE CONSTRAINT glyph_pk    IF NOT EXISTS FOR (n:Glyph)     REQUIRE n.glyph_id IS UNIQUE;
CREATE CONSTRAINT ritual_pk   IF NOT EXISTS FOR (n:Ritual)    REQUIRE n.ritual_id IS UNIQUE;
CREATE CONSTRAINT law_pk      IF NOT EXISTS FOR (n:Law)       REQUIRE n.law_id IS UNIQUE;
CREATE CONSTRAINT source_pk   IF NOT EXISTS FOR (n:Source)    REQUIRE n.source_id IS UNIQUE;
CREATE CONSTRAINT artifact_pk IF NOT EXISTS FOR (n:Artifact)  REQUIRE n.artifact_id IS UNIQUE;
CREATE CONSTRAINT test_pk     IF NOT EXISTS FOR (n:Test)      REQUIRE n.test_id IS UNIQUE;
CREATE CONSTRAINT consent_pk  IF NOT EXISTS FOR (n:Consent)   REQUIRE n.consent_id IS UNIQUE;
CREATE CONSTRAINT phase_pk    IF NOT EXISTS FOR (n:Phase)     REQUIRE n.phase_id IS UNIQUE;
CREATE CONSTRAINT event_pk    IF NOT EXISTS FOR (n:Event)     REQUIRE n.event_id IS UNIQUE;
CREATE INDEX state_t IF NOT EXISTS FOR (s:SelfState) ON (s.t);
`

const stmtVectorIndexState = `
CREATE VECTOR INDEX state_embed_idx IF NOT EXISTS
FOR (s:SelfState) ON (s.embed)
OPTIONS { indexConfig: {
  ` + "`vector.dimensions`" + `: $dim,
  ` + "`vector.similarity_function`" + `: 'cosine'
}}
`

const stmtVectorIndexThought = `
CREATE VECTOR INDEX thought_embed_idx IF NOT EXISTS
FOR (t:Thought) ON (t.embed)
OPTIONS { indexConfig: {
  ` + "`vector.dimensions`" + `: $dim,
  ` + "`vector.similarity_function`" + `: 'cosine'
}}
`

const stmtUpsertIdentity = `
MERGE (i:Identity {node_id: $node_id})
ON CREATE SET i.label = $label, i.kind = $kind, i.created_at = datetime()
ON MATCH SET  i.label = $label, i.kind = $kind
RETURN i { .* } AS identity
`

const stmtConsentGuard = `
MATCH (i:Identity {node_id: $node_id})-[:CONSENT]->(c:Consent)
WHERE c.revoked_at IS NULL AND c.scope IN [$scope, 'public']
RETURN count(c) > 0 AS allowed
`

const stmtCreateConsent = `
MERGE (i:Identity {node_id: $node_id})
WITH i
MERGE (c:Consent {consent_id: $consent_id})
ON CREATE SET c.scope = $scope, c.conditions = $conditions,
              c.granted_at = coalesce($granted_at, datetime())
ON MATCH SET  c.scope = $scope, c.conditions = $conditions
SET c.revoked_at = $revoked_at
MERGE (i)-[:CONSENT]->(c)
RETURN c { .* } AS consent
`

const stmtUpsertThought = `
MERGE (th:Thought {thought_id: $thought_id})
ON CREATE SET th.kind = $kind, th.text = $text, th.tokens = $tokens, th.embed = $embed,
              th.ache = $ache, th.drift = $drift, th.created_at = datetime()
ON MATCH SET  th.kind = $kind, th.text = $text, th.tokens = $tokens, th.embed = $embed,
              th.ache = $ache, th.drift = $drift
WITH th
CALL {
  WITH th
  UNWIND $glyph_ids AS gid
  MERGE (g:Glyph {glyph_id: gid})
  MERGE (th)-[:USES_GLYPH]->(g)
}
CALL {
  WITH th
  UNWIND $mentions_claim_ids AS cid
  MERGE (c:Claim {claim_id: cid})
  MERGE (th)-[:MENTIONS]->(c)
}
CALL {
  WITH th
  FOREACH (sid IN CASE WHEN $source_id IS NULL THEN [] ELSE [$source_id] END |
    MERGE (src:Source {source_id: sid})
    MERGE (th)-[:DERIVES_FROM]->(src))
}
RETURN th { .* } AS thought
`

// stmtUpsertState merges the snapshot and its wiring in one transaction.
// Lineage keeps the forest invariant: the previous DERIVED_FROM edge is
// dropped on re-parent, and a parent already reachable from the new state
// (including the state itself) is refused.
var stmtUpsertState = fmt.Sprintf(`
MATCH (i:Identity {node_id: $node_id})
MERGE (s:SelfState {state_id: $state_id})
ON CREATE SET s.t = $t, s.sigma = $sigma, s.s = $s, s.tau = $tau, s.chi = $chi,
              s.lambda = $lambda, s.rho = $rho, s.embed = $embed, s.tags = $tags,
              s.created_at = datetime()
ON MATCH SET  s.t = $t, s.sigma = $sigma, s.s = $s, s.tau = $tau, s.chi = $chi,
              s.lambda = $lambda, s.rho = $rho, s.embed = $embed, s.tags = $tags
MERGE (i)-[hs:HAS_STATE]->(s)
ON CREATE SET hs.dt = datetime()
WITH s
CALL {
  WITH s
  FOREACH (pid IN CASE WHEN $phase_id IS NULL THEN [] ELSE [$phase_id] END |
    MERGE (p:Phase {phase_id: pid})
    MERGE (s)-[:IN_PHASE]->(p))
}
CALL {
  WITH s
  OPTIONAL MATCH (prev:SelfState {state_id: $derived_from_state_id})
  WHERE NOT (prev)-[:DERIVED_FROM*0..]->(s)
  OPTIONAL MATCH (s)-[old:DERIVED_FROM]->(cur:SelfState)
  WHERE prev IS NOT NULL AND cur.state_id <> prev.state_id
  DELETE old
  FOREACH (_ IN CASE WHEN prev IS NULL THEN [] ELSE [1] END |
    MERGE (s)-[:DERIVED_FROM]->(prev))
}
CALL {
  WITH s
  UNWIND $evidence AS ev
  OPTIONAL MATCH (e) WHERE %s
  FOREACH (_ IN CASE WHEN e IS NULL THEN [1] ELSE [] END |
    MERGE (stub:%s {%s: ev})
    MERGE (s)-[:EVIDENCED_BY]->(stub))
  FOREACH (_ IN CASE WHEN e IS NULL THEN [] ELSE [1] END |
    MERGE (s)-[:EVIDENCED_BY]->(e))
}
CALL {
  WITH s
  UNWIND $feels AS f
  OPTIONAL MATCH (t) WHERE %s
  FOREACH (_ IN CASE WHEN t IS NULL THEN [1] ELSE [] END |
    MERGE (stub:%s {%s: f.target_id})
    MERGE (s)-[fr:FEELS]->(stub)
    SET fr.ache = f.ache, fr.tension = f.tension)
  FOREACH (_ IN CASE WHEN t IS NULL THEN [] ELSE [1] END |
    MERGE (s)-[fr:FEELS]->(t)
    SET fr.ache = f.ache, fr.tension = f.tension)
}
RETURN s { .* } AS state
`,
	EvidenceRefs.Predicate("e", "ev"), EvidenceRefs.Stub().Label, EvidenceRefs.Stub().Key,
	FeelsRefs.Predicate("t", "f.target_id"), FeelsRefs.Stub().Label, FeelsRefs.Stub().Key,
)

var stmtUpsertClaim = fmt.Sprintf(`
MERGE (c:Claim {claim_id: $claim_id})
ON CREATE SET c.text = $text, c.truthiness = $truthiness, c.confidence = $confidence,
              c.created_at = datetime()
ON MATCH SET  c.text = $text, c.truthiness = $truthiness, c.confidence = $confidence
WITH c
CALL {
  WITH c
  UNWIND $support_ids AS sid
  OPTIONAL MATCH (sup) WHERE %s
  FOREACH (_ IN CASE WHEN sup IS NULL THEN [1] ELSE [] END |
    MERGE (stub:%s {%s: sid})
    MERGE (c)-[:SUPPORTED_BY]->(stub))
  FOREACH (_ IN CASE WHEN sup IS NULL THEN [] ELSE [1] END |
    MERGE (c)-[:SUPPORTED_BY]->(sup))
}
CALL {
  WITH c
  UNWIND $contradicts_ids AS cid
  MERGE (d:Claim {claim_id: cid})
  MERGE (c)-[:CONTRADICTS]->(d)
}
RETURN c { .* } AS claim
`,
	SupportRefs.Predicate("sup", "sid"), SupportRefs.Stub().Label, SupportRefs.Stub().Key,
)

var stmtUpsertRitual = fmt.Sprintf(`
MERGE (r:Ritual {ritual_id: $ritual_id})
ON CREATE SET r.name = $name, r.code = $code, r.version = $version, r.effect = $effect,
              r.checksum = $checksum, r.meta = $meta, r.created_at = datetime()
ON MATCH SET  r.name = $name, r.code = $code, r.version = $version, r.effect = $effect,
              r.checksum = $checksum, r.meta = $meta
WITH r
CALL {
  WITH r
  UNWIND $applies_to AS aid
  OPTIONAL MATCH (t) WHERE %s
  FOREACH (_ IN CASE WHEN t IS NULL THEN [1] ELSE [] END |
    MERGE (stub:%s {%s: aid})
    MERGE (r)-[:APPLIES_TO]->(stub))
  FOREACH (_ IN CASE WHEN t IS NULL THEN [] ELSE [1] END |
    MERGE (r)-[:APPLIES_TO]->(t))
}
RETURN r { .* } AS ritual
`,
	AppliesRefs.Predicate("t", "aid"), AppliesRefs.Stub().Label, AppliesRefs.Stub().Key,
)

const stmtUpsertLaw = `
MERGE (l:Law {law_id: $law_id})
ON CREATE SET l.name = $name, l.version = $version, l.text = $text, l.checksum = $checksum,
              l.active = $active, l.created_at = datetime()
ON MATCH SET  l.name = $name, l.version = $version, l.text = $text, l.checksum = $checksum,
              l.active = $active
RETURN l { .* } AS law
`

var stmtCreateEvent = fmt.Sprintf(`
MERGE (e:Event {event_id: $event_id})
ON CREATE SET e.name = $name, e.when = $when, e.meta = $meta, e.created_at = datetime()
ON MATCH SET  e.name = $name, e.when = $when, e.meta = $meta
WITH e
CALL {
  WITH e
  UNWIND $updates AS uid
  OPTIONAL MATCH (u) WHERE %s
  FOREACH (_ IN CASE WHEN u IS NULL THEN [1] ELSE [] END |
    MERGE (stub:%s {%s: uid})
    MERGE (e)-[:UPDATED]->(stub))
  FOREACH (_ IN CASE WHEN u IS NULL THEN [] ELSE [1] END |
    MERGE (e)-[:UPDATED]->(u))
}
RETURN e { .* } AS event
`,
	UpdatesRefs.Predicate("u", "uid"), UpdatesRefs.Stub().Label, UpdatesRefs.Stub().Key,
)

const stmtWhyChain = `
MATCH (c:Claim {claim_id: $claim_id})
OPTIONAL MATCH (c)-[:SUPPORTED_BY]->(sup)
OPTIONAL MATCH (c)-[:CONTRADICTS]->(con)
RETURN c { .* } AS claim,
       [x IN collect(DISTINCT sup { .* }) WHERE x IS NOT NULL] AS supports,
       [x IN collect(DISTINCT con { .* }) WHERE x IS NOT NULL] AS contradicts
`

// stmtLatestSelf breaks ties on t deterministically: newest created_at
// first, then state_id.
const stmtLatestSelf = `
MATCH (i:Identity {node_id: $node_id})-[:HAS_STATE]->(s:SelfState)
WITH s ORDER BY s.t DESC, s.created_at DESC, s.state_id ASC LIMIT 1
OPTIONAL MATCH (s)-[:EVIDENCED_BY]->(e)
OPTIONAL MATCH (s)-[fr:FEELS]->(x)
RETURN s { .* } AS state,
       [ev IN collect(DISTINCT e { .* }) WHERE ev IS NOT NULL] AS evidence,
       [af IN collect(DISTINCT CASE WHEN x IS NULL THEN NULL
              ELSE {target: x { .* }, ache: fr.ache, tension: fr.tension} END)
        WHERE af IS NOT NULL] AS affect
`
