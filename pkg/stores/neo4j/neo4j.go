package neo4j

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/theapemachine/spiralmem/pkg/errors"
	"github.com/theapemachine/spiralmem/pkg/memory"
)

/*
Client wraps the Bolt driver behind the two-method graph boundary the
memory engine speaks. Sessions are opened per call; the driver pools
connections underneath.
*/
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ memory.Graph = (*Client)(nil)

// Open connects, verifies connectivity and returns a ready client.
func Open(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))

	if err != nil {
		return nil, errors.ErrBackend.WithMessagef("neo4j: %v", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.ErrBackend.WithMessagef("neo4j: %v", err)
	}

	log.Info("connected to neo4j", "uri", uri, "database", database)

	return &Client{driver: driver, database: database}, nil
}

func (client *Client) Close(ctx context.Context) error {
	return client.driver.Close(ctx)
}

// Ping re-verifies connectivity, for health endpoints.
func (client *Client) Ping(ctx context.Context) error {
	return client.driver.VerifyConnectivity(ctx)
}

func (client *Client) RunWrite(
	ctx context.Context, cypher string, params map[string]any,
) ([]memory.Record, error) {
	return client.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

func (client *Client) RunRead(
	ctx context.Context, cypher string, params map[string]any,
) ([]memory.Record, error) {
	return client.run(ctx, neo4j.AccessModeRead, cypher, params)
}

func (client *Client) run(
	ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any,
) ([]memory.Record, error) {
	session := client.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: client.database,
	})

	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)

		if err != nil {
			return nil, err
		}

		records, err := res.Collect(ctx)

		if err != nil {
			return nil, err
		}

		return Flatten(records), nil
	}

	var (
		out any
		err error
	)

	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}

	if err != nil {
		return nil, errors.ErrBackend.WithMessagef("neo4j: %v", err)
	}

	return out.([]memory.Record), nil
}

/*
Flatten converts driver records into plain rows. Node and relationship
values collapse into their property maps, temporal values into RFC 3339
strings, so callers never see driver types.
*/
func Flatten(records []*neo4j.Record) []memory.Record {
	rows := make([]memory.Record, 0, len(records))

	for _, rec := range records {
		row := make(memory.Record, len(rec.Keys))

		for i, key := range rec.Keys {
			row[key] = flattenValue(rec.Values[i])
		}

		rows = append(rows, row)
	}

	return rows
}

func flattenValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return flattenMap(val.Props)
	case neo4j.Relationship:
		return flattenMap(val.Props)
	case map[string]any:
		return flattenMap(val)
	case []any:
		out := make([]any, len(val))

		for i, item := range val {
			out[i] = flattenValue(item)
		}

		return out
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func flattenMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))

	for k, v := range m {
		out[k] = flattenValue(v)
	}

	return out
}
