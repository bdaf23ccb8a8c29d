package tools

// Tool names. The set is closed: dispatch rejects anything else.
const (
	NameGetSchema       = "get_schema"
	NameExploreNodes    = "explore_nodes"
	NameSearchNodes     = "search_nodes"
	NameFindPaths       = "find_paths"
	NameAnalyzePatterns = "analyze_patterns"
	NameExecuteCypher   = "execute_cypher"
)

// AllNames lists every tool in canonical order.
var AllNames = []string{
	NameGetSchema,
	NameExploreNodes,
	NameSearchNodes,
	NameFindPaths,
	NameAnalyzePatterns,
	NameExecuteCypher,
}

// Param describes one input parameter of a tool.
type Param struct {
	Type        string
	Description string
	Required    bool
}

// Definition describes a tool to the model: its name, what it does, and
// its input parameters. The llm package converts these into the model
// provider's tool schema.
type Definition struct {
	Name        string
	Description string
	Params      map[string]Param
}

var definitions = map[string]Definition{
	NameGetSchema: {
		Name:        NameGetSchema,
		Description: "Get the full graph database schema: node labels, relationship types, property keys, relationship patterns. Use to understand the data structure before querying.",
		Params:      map[string]Param{},
	},
	NameExploreNodes: {
		Name:        NameExploreNodes,
		Description: "Explore a node and its neighbors. Returns subgraph centered on the given node. Use node_id (UUID property or elementId).",
		Params: map[string]Param{
			"node_id": {Type: "string", Description: "Node id property or element id of the center node", Required: true},
			"depth":   {Type: "integer", Description: "Traversal depth in hops, default 2"},
			"limit":   {Type: "integer", Description: "Maximum paths to expand, default 50"},
		},
	},
	NameSearchNodes: {
		Name:        NameSearchNodes,
		Description: "Search for nodes by label and/or property. All params optional: label filters by node type, property+value filter by property (partial match). Returns matching nodes and their neighborhood as graph_data.",
		Params: map[string]Param{
			"label":    {Type: "string", Description: "Node label to filter by"},
			"property": {Type: "string", Description: "Property key to match against"},
			"value":    {Type: "string", Description: "Substring the property value must contain"},
			"limit":    {Type: "integer", Description: "Maximum matching nodes, default 20"},
		},
	},
	NameFindPaths: {
		Name:        NameFindPaths,
		Description: "Find paths between two nodes. Returns paths and the subgraph of nodes/relationships along those paths.",
		Params: map[string]Param{
			"start_id":  {Type: "string", Description: "Start node id property or element id", Required: true},
			"end_id":    {Type: "string", Description: "End node id property or element id", Required: true},
			"max_depth": {Type: "integer", Description: "Maximum path length, default 5, capped at 10"},
		},
	},
	NameAnalyzePatterns: {
		Name:        NameAnalyzePatterns,
		Description: "Analyze graph patterns. pattern_type: 'overview' (node/rel counts), 'degree' (degree distribution), 'sample' (sample nodes per label).",
		Params: map[string]Param{
			"pattern_type": {Type: "string", Description: "One of overview, degree, sample. Default overview"},
		},
	},
	NameExecuteCypher: {
		Name:        NameExecuteCypher,
		Description: "Execute a read-only Cypher query. Use for complex analysis. Only MATCH/RETURN allowed. Parameters optional.",
		Params: map[string]Param{
			"cypher":     {Type: "string", Description: "The Cypher statement to run", Required: true},
			"parameters": {Type: "object", Description: "Query parameters"},
		},
	},
}

// Definitions returns tool definitions for the enabled names, in canonical
// order. A nil or empty enabled set means all tools. Unknown names are
// ignored.
func Definitions(enabled []string) []Definition {
	want := func(string) bool { return true }
	if len(enabled) > 0 {
		set := make(map[string]struct{}, len(enabled))
		for _, name := range enabled {
			set[name] = struct{}{}
		}
		want = func(name string) bool {
			_, ok := set[name]
			return ok
		}
	}
	var defs []Definition
	for _, name := range AllNames {
		if want(name) {
			defs = append(defs, definitions[name])
		}
	}
	return defs
}
