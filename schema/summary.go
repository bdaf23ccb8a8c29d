package schema

import (
	"fmt"
	"strings"
)

// SummaryUnavailable is rendered when no schema could be fetched at all.
// Distinct from SummaryEmpty, which means the fetch succeeded but the
// database carries no labels, types, patterns or keys.
const SummaryUnavailable = "Schema not available. Use get_schema tool to fetch it."

// SummaryEmpty is rendered for a successfully fetched but empty schema.
const SummaryEmpty = "Empty schema."

const (
	maxSummaryPatterns = 50
	maxSummaryKeys     = 30
)

// Summarize renders a deterministic multi-line report of the schema for
// injection into a system prompt. Sections appear in a fixed order and are
// omitted entirely when their source data is absent.
func Summarize(doc *Document) string {
	if doc == nil {
		return SummaryUnavailable
	}
	if doc.IsEmpty() {
		return SummaryEmpty
	}

	var lines []string

	if len(doc.NodeLabels) > 0 {
		lines = append(lines, "## Node Labels (with counts)")
		for _, label := range doc.NodeLabels {
			lines = append(lines, fmt.Sprintf("- %s: %d nodes", label, doc.NodeCounts[label]))
		}
	}

	if len(doc.RelationshipTypes) > 0 {
		lines = append(lines, "", "## Relationship Types (with counts)")
		for _, rt := range doc.RelationshipTypes {
			lines = append(lines, fmt.Sprintf("- %s: %d relationships", rt, doc.RelationshipCounts[rt]))
		}
	}

	if len(doc.RelationshipPatterns) > 0 {
		lines = append(lines, "", "## Relationship Patterns (from -[type]-> to)")
		patterns := doc.RelationshipPatterns
		if len(patterns) > maxSummaryPatterns {
			patterns = patterns[:maxSummaryPatterns]
		}
		for _, p := range patterns {
			lines = append(lines, fmt.Sprintf("- (%s)-[%s]->(%s): %d", p.FromLabel, p.RelType, p.ToLabel, p.Count))
		}
	}

	if len(doc.PropertyKeys) > 0 {
		lines = append(lines, "", "## Property Keys (available on nodes/relationships)")
		keys := doc.PropertyKeys
		suffix := ""
		if len(keys) > maxSummaryKeys {
			keys = keys[:maxSummaryKeys]
			suffix = "..."
		}
		lines = append(lines, strings.Join(keys, ", ")+suffix)
	}

	// Leading blank lines only separate sections; the first present section
	// starts at column one.
	out := strings.Join(lines, "\n")
	return strings.TrimPrefix(out, "\n")
}
