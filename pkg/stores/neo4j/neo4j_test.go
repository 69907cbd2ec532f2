package neo4j

import (
	"context"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFlatten(t *testing.T) {
	Convey("Given driver records with nested values", t, func() {
		when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		records := []*neo4j.Record{{
			Keys: []string{"state", "evidence", "t"},
			Values: []any{
				neo4j.Node{Props: map[string]any{
					"state_id":   "s1",
					"created_at": when,
				}},
				[]any{
					map[string]any{"claim_id": "c1"},
				},
				int64(7),
			},
		}}

		rows := Flatten(records)

		Convey("Then nodes collapse into property maps", func() {
			So(len(rows), ShouldEqual, 1)

			state, ok := rows[0]["state"].(map[string]any)
			So(ok, ShouldBeTrue)
			So(state["state_id"], ShouldEqual, "s1")
			So(state["created_at"], ShouldEqual, "2026-03-01T12:00:00Z")
		})

		Convey("Then lists and scalars pass through", func() {
			evidence, ok := rows[0]["evidence"].([]any)
			So(ok, ShouldBeTrue)
			So(len(evidence), ShouldEqual, 1)
			So(rows[0]["t"], ShouldEqual, int64(7))
		})
	})
}

func TestFlattenRelationship(t *testing.T) {
	Convey("Given a record holding a relationship", t, func() {
		records := []*neo4j.Record{{
			Keys: []string{"feels"},
			Values: []any{
				neo4j.Relationship{Props: map[string]any{"ache": 0.2}},
			},
		}}

		rows := Flatten(records)

		Convey("Then the relationship collapses into its properties", func() {
			feels, ok := rows[0]["feels"].(map[string]any)
			So(ok, ShouldBeTrue)
			So(feels["ache"], ShouldEqual, 0.2)
		})
	})
}

func TestOpenRejectsBadURI(t *testing.T) {
	Convey("Given a URI with an unsupported scheme", t, func() {
		client, err := Open(context.Background(), "memory://nope", "neo4j", "neo4j", "neo4j")

		Convey("Then opening fails without a client", func() {
			So(err, ShouldNotBeNil)
			So(client, ShouldBeNil)
		})
	})
}
