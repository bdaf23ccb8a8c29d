package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenValueNode(t *testing.T) {
	n := dbtype.Node{
		ElementId: "4:abc:1",
		Labels:    []string{"Decision"},
		Props: map[string]any{
			"name":      "launch",
			"embedding": []any{0.1, 0.2},
		},
	}
	flat := flattenValue(n)
	m, ok := flat.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "4:abc:1", m["id"])
	assert.Equal(t, []string{"Decision"}, m["labels"])

	props := m["properties"].(map[string]any)
	assert.Equal(t, "launch", props["name"])
	assert.NotContains(t, props, "embedding")
}

func TestFlattenValueRelationship(t *testing.T) {
	r := dbtype.Relationship{
		ElementId:      "5:abc:9",
		StartElementId: "4:abc:1",
		EndElementId:   "4:abc:2",
		Type:           "INFLUENCES",
		Props:          map[string]any{"weight": 0.8},
	}
	m := flattenValue(r).(map[string]any)
	assert.Equal(t, "INFLUENCES", m["type"])
	assert.Equal(t, "4:abc:1", m["startNodeId"])
	assert.Equal(t, "4:abc:2", m["endNodeId"])
}

func TestFlattenValueNested(t *testing.T) {
	v := []any{
		map[string]any{"when": time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		int64(7),
	}
	flat := flattenValue(v).([]any)
	inner := flat[0].(map[string]any)
	assert.Equal(t, "2025-03-01T12:00:00Z", inner["when"])
	assert.Equal(t, int64(7), flat[1])
}

func TestConvertPropertiesNil(t *testing.T) {
	assert.NotNil(t, convertProperties(nil))
}
