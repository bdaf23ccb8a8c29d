package graph

// Property keys holding embedding vectors. They are large, opaque to the
// LLM, and always dropped from transport payloads.
var embeddingKeys = map[string]struct{}{
	"fastrp_embedding":    {},
	"reasoning_embedding": {},
	"embedding":           {},
}

const (
	maxSlimString = 200
	maxSlimList   = 10
)

// SlimProperties produces a bounded-size copy of a property map for
// transport: embedding-vector fields are dropped, strings are truncated to
// 200 runes plus an ellipsis marker, and lists are cut to their first 10
// entries. All other values pass through unchanged. The transform is
// idempotent: re-slimming an already slim map is a no-op.
func SlimProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	slim := make(map[string]any, len(props))
	for key, value := range props {
		if _, ok := embeddingKeys[key]; ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if runes := []rune(v); len(runes) > maxSlimString {
				slim[key] = string(runes[:maxSlimString]) + "..."
			} else {
				slim[key] = v
			}
		case []any:
			if len(v) > maxSlimList {
				slim[key] = v[:maxSlimList]
			} else {
				slim[key] = v
			}
		case []string:
			if len(v) > maxSlimList {
				slim[key] = v[:maxSlimList]
			} else {
				slim[key] = v
			}
		default:
			slim[key] = v
		}
	}
	return slim
}
