package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/contextgraph-ai/backend/graph"
)

// Index names maintained outside this codebase.
const (
	decisionReasoningIndex = "decision_reasoning_idx"
	decisionFastRPIndex    = "decision_fastrp_idx"
	policyDescriptionIndex = "policy_description_idx"
)

// Default scoring weights for hybrid similarity.
const (
	DefaultSemanticWeight   = 0.5
	DefaultStructuralWeight = 0.5
)

// Client runs vector-index queries against the graph.
type Client struct {
	graph    *graph.Client
	embedder embedding.Embedder
	logger   *slog.Logger
}

// NewClient wires a vector client over the shared graph client. embedder
// may be nil; embedding-dependent calls then fail with ErrNoEmbedder.
func NewClient(g *graph.Client, embedder embedding.Embedder, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{graph: g, embedder: embedder, logger: logger}
}

// CombineScores computes the weighted hybrid score.
func CombineScores(semantic, structural, semanticWeight, structuralWeight float64) float64 {
	return semantic*semanticWeight + structural*structuralWeight
}

// SearchDecisions finds decisions semantically similar to the query text,
// optionally restricted to a category.
func (c *Client) SearchDecisions(ctx context.Context, query, category string, limit int) ([]map[string]any, error) {
	emb, err := c.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	categoryFilter := ""
	if category != "" {
		categoryFilter = "WHERE d.category = $category"
	}
	cypher := fmt.Sprintf(`
		MATCH (d:Decision)
		%s
		CALL db.index.vector.queryNodes('%s', $limit, $query_embedding)
		YIELD node, score
		WHERE node = d
		RETURN d.id AS id,
		       d.decision_type AS decision_type,
		       d.category AS category,
		       d.reasoning_summary AS reasoning_summary,
		       d.decision_timestamp AS decision_timestamp,
		       d.confidence_score AS confidence_score,
		       score AS semantic_similarity
		ORDER BY score DESC`, categoryFilter, decisionReasoningIndex)

	return c.queryRows(ctx, cypher, map[string]any{
		"query_embedding": emb,
		"limit":           limit,
		"category":        category,
	})
}

// SearchPolicies finds policies semantically similar to the query text.
func (c *Client) SearchPolicies(ctx context.Context, query string, limit int) ([]map[string]any, error) {
	emb, err := c.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf(`
		CALL db.index.vector.queryNodes('%s', $limit, $query_embedding)
		YIELD node, score
		RETURN node.id AS id,
		       node.name AS name,
		       node.description AS description,
		       node.category AS category,
		       score AS semantic_similarity
		ORDER BY score DESC`, policyDescriptionIndex)

	return c.queryRows(ctx, cypher, map[string]any{
		"query_embedding": emb,
		"limit":           limit,
	})
}

// FindPrecedents finds precedent decisions for a scenario by reasoning
// similarity. Only the semantic index participates; the structural side of
// the score is reported as null.
func (c *Client) FindPrecedents(ctx context.Context, scenario, category string, limit int) ([]map[string]any, error) {
	emb, err := c.Embed(ctx, scenario)
	if err != nil {
		return nil, err
	}

	categoryFilter := ""
	if category != "" {
		categoryFilter = "AND d.category = $category"
	}
	cypher := fmt.Sprintf(`
		CALL db.index.vector.queryNodes('%s', $limit, $query_embedding)
		YIELD node AS d, score AS semantic_score
		WHERE d:Decision %s
		RETURN d.id AS id,
		       d.decision_type AS decision_type,
		       d.category AS category,
		       d.reasoning_summary AS reasoning_summary,
		       d.decision_timestamp AS decision_timestamp,
		       semantic_score AS combined_score,
		       semantic_score AS semantic_similarity,
		       null AS structural_similarity
		ORDER BY semantic_score DESC
		LIMIT $limit`, decisionReasoningIndex, categoryFilter)

	return c.queryRows(ctx, cypher, map[string]any{
		"query_embedding": emb,
		"category":        category,
		"limit":           limit,
	})
}

// FindSimilarDecisions finds decisions similar to a stored decision by
// combining its reasoning and FastRP embeddings.
func (c *Client) FindSimilarDecisions(ctx context.Context, decisionID string, semanticWeight, structuralWeight float64, limit int) ([]map[string]any, error) {
	cypher := fmt.Sprintf(`
		MATCH (source:Decision {id: $decision_id})
		CALL db.index.vector.queryNodes('%s', $limit * 2, source.reasoning_embedding)
		YIELD node AS semantic_match, score AS semantic_score
		WHERE semantic_match <> source
		WITH source, semantic_match, semantic_score
		CALL db.index.vector.queryNodes('%s', $limit * 2, source.fastrp_embedding)
		YIELD node AS structural_match, score AS structural_score
		WHERE structural_match <> source
		WITH collect({decision: semantic_match, semantic: semantic_score, structural: 0.0})
		   + collect({decision: structural_match, semantic: 0.0, structural: structural_score}) AS all_matches
		UNWIND all_matches AS match
		WITH match.decision AS decision,
		     sum(match.semantic) AS total_semantic,
		     sum(match.structural) AS total_structural
		WHERE decision IS NOT NULL
		WITH decision,
		     total_semantic AS semantic_score,
		     total_structural AS structural_score,
		     (total_semantic * $semantic_weight + total_structural * $structural_weight) AS combined_score
		RETURN decision.id AS id,
		       decision.decision_type AS decision_type,
		       decision.category AS category,
		       decision.reasoning_summary AS reasoning_summary,
		       decision.decision_timestamp AS decision_timestamp,
		       combined_score,
		       semantic_score AS semantic_similarity,
		       structural_score AS structural_similarity
		ORDER BY combined_score DESC
		LIMIT $limit`, decisionReasoningIndex, decisionFastRPIndex)

	return c.queryRows(ctx, cypher, map[string]any{
		"decision_id":       decisionID,
		"semantic_weight":   semanticWeight,
		"structural_weight": structuralWeight,
		"limit":             limit,
	})
}

// UpdateDecisionEmbedding generates and stores the reasoning embedding for
// one decision. Returns false when the decision does not exist.
func (c *Client) UpdateDecisionEmbedding(ctx context.Context, decisionID, reasoning string) (bool, error) {
	emb, err := c.Embed(ctx, reasoning)
	if err != nil {
		return false, err
	}
	return c.writeEmbedding(ctx, `
		MATCH (d:Decision {id: $id})
		SET d.reasoning_embedding = $embedding
		RETURN d.id AS id`, decisionID, emb)
}

// UpdatePolicyEmbedding generates and stores the description embedding for
// one policy.
func (c *Client) UpdatePolicyEmbedding(ctx context.Context, policyID, description string) (bool, error) {
	emb, err := c.Embed(ctx, description)
	if err != nil {
		return false, err
	}
	return c.writeEmbedding(ctx, `
		MATCH (p:Policy {id: $id})
		SET p.description_embedding = $embedding
		RETURN p.id AS id`, policyID, emb)
}

// BackfillDecisionEmbeddings embeds up to limit decisions that have
// reasoning text but no embedding yet, and reports how many it updated.
func (c *Client) BackfillDecisionEmbeddings(ctx context.Context, limit int) (int, error) {
	rows, err := c.queryRows(ctx, `
		MATCH (d:Decision)
		WHERE d.reasoning_embedding IS NULL AND d.reasoning IS NOT NULL
		RETURN d.id AS id, d.reasoning AS reasoning
		LIMIT $limit`, map[string]any{"limit": limit})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		reasoning, _ := row["reasoning"].(string)
		ids = append(ids, id)
		texts = append(texts, reasoning)
	}

	embeddings, err := c.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	_, err = c.graph.Write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for i, id := range ids {
			if _, err := tx.Run(ctx, `
				MATCH (d:Decision {id: $id})
				SET d.reasoning_embedding = $embedding`,
				map[string]any{"id": id, "embedding": embeddings[i]}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("vector: backfill write: %w", err)
	}
	c.logger.Info("backfilled decision embeddings", "count", len(ids))
	return len(ids), nil
}

func (c *Client) queryRows(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	result, err := c.graph.Read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
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
			rows = append(rows, rec.AsMap())
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector: query: %w", err)
	}
	return result.([]map[string]any), nil
}

func (c *Client) writeEmbedding(ctx context.Context, cypher, id string, emb []float64) (bool, error) {
	result, err := c.graph.Write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"id": id, "embedding": emb})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("vector: storing embedding: %w", err)
	}
	return result.(bool), nil
}
