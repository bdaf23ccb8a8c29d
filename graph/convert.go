package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// convertProperties maps driver property values into JSON-friendly Go
// values. Temporal types become RFC 3339 strings, everything else passes
// through.
func convertProperties(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = flattenValue(v)
	}
	return out
}

// flattenValue turns any driver value, including graph entities and
// temporal types, into plain maps, slices, and scalars suitable for
// json.Marshal.
func flattenValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case dbtype.Node:
		return map[string]any{
			"id":         val.ElementId,
			"labels":     append([]string(nil), val.Labels...),
			"properties": SlimProperties(convertProperties(val.Props)),
		}
	case dbtype.Relationship:
		return map[string]any{
			"id":          val.ElementId,
			"type":        val.Type,
			"startNodeId": val.StartElementId,
			"endNodeId":   val.EndElementId,
			"properties":  SlimProperties(convertProperties(val.Props)),
		}
	case dbtype.Path:
		nodes := make([]any, 0, len(val.Nodes))
		for _, n := range val.Nodes {
			nodes = append(nodes, flattenValue(n))
		}
		rels := make([]any, 0, len(val.Relationships))
		for _, r := range val.Relationships {
			rels = append(rels, flattenValue(r))
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = flattenValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = flattenValue(item)
		}
		return out
	case time.Time:
		return val.Format(time.RFC3339)
	case dbtype.Date:
		return val.Time().Format("2006-01-02")
	case dbtype.LocalDateTime:
		return val.Time().Format(time.RFC3339)
	case dbtype.LocalTime:
		return val.Time().Format("15:04:05")
	case dbtype.Time:
		return val.Time().Format("15:04:05Z07:00")
	case dbtype.Duration:
		return val.String()
	case dbtype.Point2D:
		return map[string]any{"srid": val.SpatialRefId, "x": val.X, "y": val.Y}
	case dbtype.Point3D:
		return map[string]any{"srid": val.SpatialRefId, "x": val.X, "y": val.Y, "z": val.Z}
	default:
		return v
	}
}
