package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/contextgraph-ai/backend/schema"
)

// Config holds the connection settings for a Client.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	MaxConnectionLifetime time.Duration
	ConnectionTimeout     time.Duration
}

// Client is a read-only Neo4j client. All query methods acquire a session
// scoped to the one call and release it before returning.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewClient connects to Neo4j. Connectivity is not verified here; the first
// query surfaces connection problems.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			if cfg.MaxConnectionLifetime > 0 {
				c.MaxConnectionLifetime = cfg.MaxConnectionLifetime
			}
			if cfg.ConnectionTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
		})
	if err != nil {
		return nil, fmt.Errorf("graph: creating driver: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Client{driver: driver, database: database, logger: logger}, nil
}

// Close releases the underlying driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// VerifyConnectivity pings the database.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// read runs fn inside a read transaction on a session scoped to this call.
func (c *Client) read(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, fn)
}

// write runs fn inside a write transaction. Only package vector uses this,
// for embedding write-back.
func (c *Client) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, fn)
}

// Read exposes read-transaction execution to sibling packages (vector).
func (c *Client) Read(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	return c.read(ctx, fn)
}

// Write exposes write-transaction execution to sibling packages (vector).
func (c *Client) Write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	return c.write(ctx, fn)
}

// nodeFromDB converts a driver node into the envelope projection.
func nodeFromDB(n dbtype.Node) Node {
	return Node{
		ID:         n.ElementId,
		Labels:     append([]string(nil), n.Labels...),
		Properties: convertProperties(n.Props),
	}
}

// relFromDB converts a driver relationship into the envelope projection.
func relFromDB(r dbtype.Relationship) Relationship {
	return Relationship{
		ID:          r.ElementId,
		Type:        r.Type,
		StartNodeID: r.StartElementId,
		EndNodeID:   r.EndElementId,
		Properties:  convertProperties(r.Props),
	}
}

// Subgraph returns the neighborhood of the node identified by nodeID (an
// `id` property or a native element id), expanded up to depth hops and
// bounded by limit paths.
func (c *Client) Subgraph(ctx context.Context, nodeID string, depth, limit int) (*Data, error) {
	if depth < 1 {
		depth = 1
	}
	// Variable-length bounds cannot be parameterized in Cypher; depth is an
	// int under our control, not caller-supplied text.
	query := fmt.Sprintf(`
		MATCH (center)
		WHERE center.id = $node_id OR elementId(center) = $node_id
		OPTIONAL MATCH path = (center)-[*1..%d]-()
		WITH center, collect(path)[..$limit] AS paths
		WITH [center] + reduce(ns = [], p IN paths | ns + nodes(p)) AS ns,
		     reduce(rs = [], p IN paths | rs + relationships(p)) AS rs
		RETURN ns AS nodes, rs AS rels`, depth)

	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"node_id": nodeID, "limit": limit})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return collectEnvelope(record)
	})
	if err != nil {
		return nil, fmt.Errorf("graph: subgraph for %s: %w", nodeID, err)
	}
	return result.(*Data), nil
}

// SearchNodes finds nodes by optional label and optional property substring
// match, always pulling one hop of neighbors for context. With no filters it
// returns an arbitrary bounded sample of the graph.
func (c *Client) SearchNodes(ctx context.Context, label, property, value string, limit int) (*Data, error) {
	labelClause := ""
	if label != "" {
		labelClause = fmt.Sprintf(":`%s`", label)
	}

	var query string
	if property != "" && value != "" {
		query = fmt.Sprintf(`
			MATCH (n%s)
			WHERE n.`+"`%s`"+` IS NOT NULL AND toString(n.`+"`%s`"+`) CONTAINS $value
			WITH n LIMIT $limit
			OPTIONAL MATCH (n)-[r]-(m)
			WITH collect(DISTINCT n) + collect(DISTINCT m) AS nodes,
			     collect(DISTINCT r) AS rels
			RETURN [x IN nodes WHERE x IS NOT NULL] AS nodes,
			       [x IN rels WHERE x IS NOT NULL] AS rels`, labelClause, property, property)
	} else {
		query = fmt.Sprintf(`
			MATCH (n%s)
			WITH n LIMIT $limit
			OPTIONAL MATCH (n)-[r]-(m)
			WITH collect(DISTINCT n) + collect(DISTINCT m) AS nodes,
			     collect(DISTINCT r) AS rels
			RETURN [x IN nodes WHERE x IS NOT NULL] AS nodes,
			       [x IN rels WHERE x IS NOT NULL] AS rels`, labelClause)
	}

	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"value": value, "limit": limit})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return collectEnvelope(record)
	})
	if err != nil {
		return nil, fmt.Errorf("graph: search nodes: %w", err)
	}
	return result.(*Data), nil
}

// PathResult is the outcome of a shortest-path lookup.
type PathResult struct {
	Found      bool
	PathLength int
	Data       *Data
}

// ShortestPath finds the single shortest path between two nodes, each
// matched by an `id` property or a native element id. maxDepth is clamped
// to 10 hops.
func (c *Client) ShortestPath(ctx context.Context, startID, endID string, maxDepth int) (*PathResult, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 10 {
		maxDepth = 10
	}
	query := fmt.Sprintf(`
		MATCH (a), (b)
		WHERE (a.id = $start_id OR elementId(a) = $start_id)
		  AND (b.id = $end_id OR elementId(b) = $end_id)
		MATCH path = shortestPath((a)-[*1..%d]-(b))
		RETURN nodes(path) AS nodes, relationships(path) AS rels
		LIMIT 1`, maxDepth)

	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"start_id": startID, "end_id": endID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return &PathResult{Found: false, Data: EmptyData()}, nil
		}
		data, err := collectEnvelope(records[0])
		if err != nil {
			return nil, err
		}
		return &PathResult{
			Found:      true,
			PathLength: len(data.Relationships),
			Data:       data,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: shortest path %s -> %s: %w", startID, endID, err)
	}
	return result.(*PathResult), nil
}

// collectEnvelope builds a slimmed, deduplicated envelope from a record
// holding `nodes` and `rels` list columns.
func collectEnvelope(record *neo4j.Record) (*Data, error) {
	b := newBuilder()

	if raw, ok := record.Get("nodes"); ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected nodes column type %T", raw)
		}
		for _, item := range list {
			if n, ok := item.(dbtype.Node); ok {
				b.addNode(nodeFromDB(n))
			}
		}
	}
	if raw, ok := record.Get("rels"); ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected rels column type %T", raw)
		}
		for _, item := range list {
			if r, ok := item.(dbtype.Relationship); ok {
				b.addRelationship(relFromDB(r))
			}
		}
	}
	return b.data(), nil
}

// LabelCount pairs a node label with its node count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// TypeCount pairs a relationship type with its occurrence count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Overview returns per-label node counts and per-type relationship counts.
func (c *Client) Overview(ctx context.Context) ([]LabelCount, []TypeCount, error) {
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var labels []LabelCount
		res, err := tx.Run(ctx, `
			MATCH (n) WITH labels(n) AS lbls UNWIND lbls AS l
			RETURN l AS label, count(*) AS c ORDER BY c DESC`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			labels = append(labels, LabelCount{
				Label: stringValue(rec, "label"),
				Count: intValue(rec, "c"),
			})
		}

		var types []TypeCount
		res, err = tx.Run(ctx, `
			MATCH ()-[r]->()
			RETURN type(r) AS t, count(*) AS c ORDER BY c DESC`, nil)
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			types = append(types, TypeCount{
				Type:  stringValue(rec, "t"),
				Count: intValue(rec, "c"),
			})
		}
		return [2]any{labels, types}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("graph: overview: %w", err)
	}
	pair := result.([2]any)
	labels, _ := pair[0].([]LabelCount)
	types, _ := pair[1].([]TypeCount)
	return labels, types, nil
}

// DegreeBucket counts how many nodes share a total degree.
type DegreeBucket struct {
	Degree int64 `json:"degree"`
	Count  int64 `json:"count"`
}

// DegreeDistribution buckets nodes by total degree.
func (c *Client) DegreeDistribution(ctx context.Context) ([]DegreeBucket, error) {
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n)
			WITH n, COUNT { (n)--() } AS degree
			WITH degree, count(n) AS cnt
			RETURN degree, cnt ORDER BY degree`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		var buckets []DegreeBucket
		for _, rec := range records {
			buckets = append(buckets, DegreeBucket{
				Degree: intValue(rec, "degree"),
				Count:  intValue(rec, "cnt"),
			})
		}
		return buckets, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: degree distribution: %w", err)
	}
	return result.([]DegreeBucket), nil
}

// Sample is one sampled node for a label.
type Sample struct {
	Label      string         `json:"label"`
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

// SampleNodes returns up to perLabel nodes for each given label.
func (c *Client) SampleNodes(ctx context.Context, labels []string, perLabel int) ([]Sample, error) {
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var samples []Sample
		for _, label := range labels {
			query := fmt.Sprintf("MATCH (n:`%s`) RETURN n LIMIT $limit", label)
			res, err := tx.Run(ctx, query, map[string]any{"limit": perLabel})
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			for _, rec := range records {
				raw, ok := rec.Get("n")
				if !ok {
					continue
				}
				n, ok := raw.(dbtype.Node)
				if !ok {
					continue
				}
				samples = append(samples, Sample{
					Label:      label,
					ID:         n.ElementId,
					Properties: SlimProperties(convertProperties(n.Props)),
				})
			}
		}
		return samples, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: sample nodes: %w", err)
	}
	return result.([]Sample), nil
}

// ExecuteCypher runs a caller-supplied statement through the read-only gate
// and returns flattened, JSON-friendly records.
func (c *Client) ExecuteCypher(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if err := CheckReadOnly(cypher); err != nil {
		return nil, err
	}
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec.Keys))
			for _, key := range rec.Keys {
				raw, _ := rec.Get(key)
				row[key] = flattenValue(raw)
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: execute cypher: %w", err)
	}
	return result.([]map[string]any), nil
}

// FetchSchema introspects labels, relationship types, property keys, counts,
// and connectivity patterns. Implements schema.Fetcher.
func (c *Client) FetchSchema(ctx context.Context) (*schema.Document, error) {
	result, err := c.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		doc := &schema.Document{
			NodeCounts:         make(map[string]int64),
			RelationshipCounts: make(map[string]int64),
		}

		if err := collectStrings(ctx, tx, "CALL db.labels() YIELD label RETURN label", "label", &doc.NodeLabels); err != nil {
			return nil, err
		}
		if err := collectStrings(ctx, tx, "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", "relationshipType", &doc.RelationshipTypes); err != nil {
			return nil, err
		}
		if err := collectStrings(ctx, tx, "CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey", "propertyKey", &doc.PropertyKeys); err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
			MATCH (n) WITH labels(n) AS lbls UNWIND lbls AS l
			RETURN l AS label, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			doc.NodeCounts[stringValue(rec, "label")] = intValue(rec, "c")
		}

		res, err = tx.Run(ctx, `
			MATCH ()-[r]->()
			RETURN type(r) AS t, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			doc.RelationshipCounts[stringValue(rec, "t")] = intValue(rec, "c")
		}

		res, err = tx.Run(ctx, `
			MATCH (a)-[r]->(b)
			WITH labels(a) AS froms, type(r) AS t, labels(b) AS tos, count(*) AS c
			UNWIND froms AS f UNWIND tos AS to
			RETURN f AS from_label, t AS rel_type, to AS to_label, sum(c) AS c
			ORDER BY c DESC`, nil)
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			doc.RelationshipPatterns = append(doc.RelationshipPatterns, schema.Pattern{
				FromLabel: stringValue(rec, "from_label"),
				RelType:   stringValue(rec, "rel_type"),
				ToLabel:   stringValue(rec, "to_label"),
				Count:     intValue(rec, "c"),
			})
		}
		return doc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: fetch schema: %w", err)
	}
	return result.(*schema.Document), nil
}

func collectStrings(ctx context.Context, tx neo4j.ManagedTransaction, query, key string, out *[]string) error {
	res, err := tx.Run(ctx, query, nil)
	if err != nil {
		return err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if v := stringValue(rec, key); v != "" {
			*out = append(*out, v)
		}
	}
	return nil
}

func stringValue(rec *neo4j.Record, key string) string {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int64 {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return 0
	}
	n, _ := raw.(int64)
	return n
}
