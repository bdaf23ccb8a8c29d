package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDeduplicates(t *testing.T) {
	b := newBuilder()
	b.addNode(Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]any{}})
	b.addNode(Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]any{}})
	b.addNode(Node{ID: "n2", Labels: []string{"Person"}, Properties: map[string]any{}})
	b.addRelationship(Relationship{ID: "r1", Type: "KNOWS", StartNodeID: "n1", EndNodeID: "n2"})
	b.addRelationship(Relationship{ID: "r1", Type: "KNOWS", StartNodeID: "n1", EndNodeID: "n2"})

	data := b.data()
	assert.Len(t, data.Nodes, 2)
	assert.Len(t, data.Relationships, 1)
}

func TestBuilderDropsDanglingRelationships(t *testing.T) {
	b := newBuilder()
	b.addNode(Node{ID: "n1", Properties: map[string]any{}})
	b.addRelationship(Relationship{ID: "r1", Type: "KNOWS", StartNodeID: "n1", EndNodeID: "missing"})

	data := b.data()
	assert.Len(t, data.Nodes, 1)
	assert.Empty(t, data.Relationships)
}

func TestDataJSONShape(t *testing.T) {
	data := &Data{
		Nodes: []Node{{ID: "n1", Labels: []string{"Person"}, Properties: map[string]any{"name": "a"}}},
		Relationships: []Relationship{{
			ID: "r1", Type: "KNOWS", StartNodeID: "n1", EndNodeID: "n2",
			Properties: map[string]any{},
		}},
	}
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	rels := decoded["relationships"].([]any)
	rel := rels[0].(map[string]any)
	assert.Equal(t, "n1", rel["startNodeId"])
	assert.Equal(t, "n2", rel["endNodeId"])
}

func TestEmptyDataMarshalsToArrays(t *testing.T) {
	raw, err := json.Marshal(EmptyData())
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"relationships":[]}`, string(raw))
}
