package schema

// Pattern describes one observed connectivity shape:
// (FromLabel)-[RelType]->(ToLabel) with its occurrence count.
type Pattern struct {
	FromLabel string `json:"from_label"`
	RelType   string `json:"rel_type"`
	ToLabel   string `json:"to_label"`
	Count     int64  `json:"count"`
}

// Document is the introspected graph schema. All fields are optional; an
// empty document is valid and renders as "Empty schema.".
type Document struct {
	NodeLabels           []string         `json:"node_labels,omitempty"`
	NodeCounts           map[string]int64 `json:"node_counts,omitempty"`
	RelationshipTypes    []string         `json:"relationship_types,omitempty"`
	RelationshipCounts   map[string]int64 `json:"relationship_counts,omitempty"`
	RelationshipPatterns []Pattern        `json:"relationship_patterns,omitempty"`
	PropertyKeys         []string         `json:"property_keys,omitempty"`
}

// IsEmpty reports whether no section of the document carries data.
func (d *Document) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.NodeLabels) == 0 &&
		len(d.RelationshipTypes) == 0 &&
		len(d.RelationshipPatterns) == 0 &&
		len(d.PropertyKeys) == 0
}
