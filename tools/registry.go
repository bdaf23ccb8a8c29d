package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/contextgraph-ai/backend/graph"
	"github.com/contextgraph-ai/backend/schema"
)

// GraphStore is the subset of graph operations the tools need. graph.Client
// implements it; tests substitute fakes.
type GraphStore interface {
	Subgraph(ctx context.Context, nodeID string, depth, limit int) (*graph.Data, error)
	SearchNodes(ctx context.Context, label, property, value string, limit int) (*graph.Data, error)
	ShortestPath(ctx context.Context, startID, endID string, maxDepth int) (*graph.PathResult, error)
	Overview(ctx context.Context) ([]graph.LabelCount, []graph.TypeCount, error)
	DegreeDistribution(ctx context.Context) ([]graph.DegreeBucket, error)
	SampleNodes(ctx context.Context, labels []string, perLabel int) ([]graph.Sample, error)
	ExecuteCypher(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// SchemaSource provides the cached schema document.
type SchemaSource interface {
	Get(ctx context.Context) (*schema.Document, error)
}

// Registry dispatches tool calls by name. It holds no per-call state.
type Registry struct {
	store   GraphStore
	schemas SchemaSource
	logger  *slog.Logger
	tracer  trace.Tracer
	calls   metric.Int64Counter
}

// NewRegistry wires a registry over a graph store and a schema source.
func NewRegistry(store GraphStore, schemas SchemaSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	meter := otel.Meter("contextgraph.tools")
	calls, err := meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Tool invocations by name and outcome"))
	if err != nil {
		logger.Warn("tool call counter unavailable", "error", err)
	}
	return &Registry{
		store:   store,
		schemas: schemas,
		logger:  logger,
		tracer:  otel.Tracer("contextgraph.tools"),
		calls:   calls,
	}
}

// Dispatch runs the named tool with raw JSON-decoded arguments. Every
// failure, including an unknown tool name, comes back as an error-flagged
// Result rather than an error return.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	ctx, span := r.tracer.Start(ctx, "tools.dispatch",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	var result Result
	switch name {
	case NameGetSchema:
		result = r.getSchema(ctx)
	case NameExploreNodes:
		result = r.exploreNodes(ctx, args)
	case NameSearchNodes:
		result = r.searchNodes(ctx, args)
	case NameFindPaths:
		result = r.findPaths(ctx, args)
	case NameAnalyzePatterns:
		result = r.analyzePatterns(ctx, args)
	case NameExecuteCypher:
		result = r.executeCypher(ctx, args)
	default:
		result = errorResult("Unknown tool: %s", name)
	}

	if result.IsError {
		span.SetStatus(codes.Error, result.Text())
		r.logger.Warn("tool call failed", "tool", name, "message", result.Text())
	}
	if r.calls != nil {
		r.calls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", name),
			attribute.Bool("error", result.IsError),
		))
	}
	return result
}

func (r *Registry) getSchema(ctx context.Context) Result {
	doc, err := r.schemas.Get(ctx)
	if err != nil {
		return errorResult("Error getting schema: %v", err)
	}
	return jsonResult(doc)
}

func (r *Registry) exploreNodes(ctx context.Context, args map[string]any) Result {
	nodeID := stringArg(args, "node_id")
	if nodeID == "" {
		return errorResult("Error exploring nodes: node_id is required")
	}
	depth := intArg(args, "depth", 2)
	limit := intArg(args, "limit", 50)

	data, err := r.store.Subgraph(ctx, nodeID, depth, limit)
	if err != nil {
		return errorResult("Error exploring nodes: %v", err)
	}
	return jsonResult(map[string]any{
		"graph_data":         data,
		"node_count":         len(data.Nodes),
		"relationship_count": len(data.Relationships),
	})
}

func (r *Registry) searchNodes(ctx context.Context, args map[string]any) Result {
	label := stringArg(args, "label")
	property := stringArg(args, "property")
	value := stringArg(args, "value")
	limit := intArg(args, "limit", 20)

	data, err := r.store.SearchNodes(ctx, label, property, value, limit)
	if err != nil {
		return errorResult("Error searching nodes: %v", err)
	}
	return jsonResult(map[string]any{
		"graph_data":         data,
		"node_count":         len(data.Nodes),
		"relationship_count": len(data.Relationships),
	})
}

func (r *Registry) findPaths(ctx context.Context, args map[string]any) Result {
	startID := stringArg(args, "start_id")
	endID := stringArg(args, "end_id")
	if startID == "" || endID == "" {
		return errorResult("Error finding paths: start_id and end_id are required")
	}
	maxDepth := intArg(args, "max_depth", 5)

	path, err := r.store.ShortestPath(ctx, startID, endID, maxDepth)
	if err != nil {
		return errorResult("Error finding paths: %v", err)
	}
	if !path.Found {
		return jsonResult(map[string]any{
			"paths_found": 0,
			"graph_data":  graph.EmptyData(),
			"message":     "No path found.",
		})
	}
	return jsonResult(map[string]any{
		"paths_found": 1,
		"path_length": path.PathLength,
		"graph_data":  path.Data,
	})
}

func (r *Registry) analyzePatterns(ctx context.Context, args map[string]any) Result {
	patternType := stringArg(args, "pattern_type")
	if patternType == "" {
		patternType = "overview"
	}
	switch patternType {
	case "overview":
		labels, types, err := r.store.Overview(ctx)
		if err != nil {
			return errorResult("Error analyzing patterns: %v", err)
		}
		return jsonResult(map[string]any{
			"node_counts":         emptyIfNilLabels(labels),
			"relationship_counts": emptyIfNilTypes(types),
		})
	case "degree":
		buckets, err := r.store.DegreeDistribution(ctx)
		if err != nil {
			return errorResult("Error analyzing patterns: %v", err)
		}
		if buckets == nil {
			buckets = []graph.DegreeBucket{}
		}
		return jsonResult(buckets)
	case "sample":
		doc, err := r.schemas.Get(ctx)
		if err != nil {
			return errorResult("Error analyzing patterns: %v", err)
		}
		labels := doc.NodeLabels
		if len(labels) > 10 {
			labels = labels[:10]
		}
		samples, err := r.store.SampleNodes(ctx, labels, 3)
		if err != nil {
			return errorResult("Error analyzing patterns: %v", err)
		}
		if samples == nil {
			samples = []graph.Sample{}
		}
		return jsonResult(map[string]any{"samples_by_label": samples})
	default:
		return jsonErrorResult(map[string]any{
			"error": fmt.Sprintf("Unknown pattern_type: %s. Use 'overview', 'degree', or 'sample'.", patternType),
		})
	}
}

func (r *Registry) executeCypher(ctx context.Context, args map[string]any) Result {
	cypher := stringArg(args, "cypher")
	if cypher == "" {
		return errorResult("Error executing query: cypher is required")
	}
	params, _ := args["parameters"].(map[string]any)

	rows, err := r.store.ExecuteCypher(ctx, cypher, params)
	if err != nil {
		if errors.Is(err, graph.ErrNotReadOnly) {
			return errorResult("Query not allowed: %v", err)
		}
		return errorResult("Error executing query: %v", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return jsonResult(rows)
}

func emptyIfNilLabels(v []graph.LabelCount) []graph.LabelCount {
	if v == nil {
		return []graph.LabelCount{}
	}
	return v
}

func emptyIfNilTypes(v []graph.TypeCount) []graph.TypeCount {
	if v == nil {
		return []graph.TypeCount{}
	}
	return v
}

// stringArg reads a string argument, tolerating absence and nulls.
func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

// intArg reads an integer argument. Tool inputs arrive as JSON, so numbers
// usually decode as float64.
func intArg(args map[string]any, key string, def int) int {
	if args == nil {
		return def
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}
