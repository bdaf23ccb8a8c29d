package graph

// Node is a read projection of a graph node. Nodes are never owned or
// mutated by this system; they exist only inside result envelopes.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Relationship is a read projection of a graph relationship. A relationship
// is only valid inside an envelope whose node set contains both endpoints.
type Relationship struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	StartNodeID string         `json:"startNodeId"`
	EndNodeID   string         `json:"endNodeId"`
	Properties  map[string]any `json:"properties"`
}

// Data is the {nodes, relationships} envelope returned by every
// graph-reading tool. It is the sole interchange shape between the backend
// and visualization clients.
type Data struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// EmptyData returns an envelope with non-nil empty slices so it serializes
// as {"nodes":[],"relationships":[]} rather than nulls.
func EmptyData() *Data {
	return &Data{Nodes: []Node{}, Relationships: []Relationship{}}
}

// builder accumulates nodes and relationships while deduplicating by element
// identity and dropping relationships with dangling endpoints.
type builder struct {
	nodes    []Node
	nodeSeen map[string]struct{}
	rels     []Relationship
	relSeen  map[string]struct{}
}

func newBuilder() *builder {
	return &builder{
		nodeSeen: make(map[string]struct{}),
		relSeen:  make(map[string]struct{}),
	}
}

func (b *builder) addNode(n Node) {
	if _, ok := b.nodeSeen[n.ID]; ok {
		return
	}
	b.nodeSeen[n.ID] = struct{}{}
	n.Properties = SlimProperties(n.Properties)
	b.nodes = append(b.nodes, n)
}

func (b *builder) addRelationship(r Relationship) {
	if _, ok := b.relSeen[r.ID]; ok {
		return
	}
	b.relSeen[r.ID] = struct{}{}
	r.Properties = SlimProperties(r.Properties)
	b.rels = append(b.rels, r)
}

// data finalizes the envelope. Relationships whose endpoints did not make it
// into the node set are filtered out here, after all nodes were added.
func (b *builder) data() *Data {
	d := EmptyData()
	d.Nodes = append(d.Nodes, b.nodes...)
	for _, r := range b.rels {
		if _, ok := b.nodeSeen[r.StartNodeID]; !ok {
			continue
		}
		if _, ok := b.nodeSeen[r.EndNodeID]; !ok {
			continue
		}
		d.Relationships = append(d.Relationships, r)
	}
	return d
}
