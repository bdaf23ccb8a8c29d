package llm

import (
	einoschema "github.com/cloudwego/eino/schema"

	"github.com/contextgraph-ai/backend/tools"
)

// ToolInfos converts tool definitions into the schema the chat model
// binds at session start.
func ToolInfos(defs []tools.Definition) []*einoschema.ToolInfo {
	infos := make([]*einoschema.ToolInfo, 0, len(defs))
	for _, def := range defs {
		params := make(map[string]*einoschema.ParameterInfo, len(def.Params))
		for name, p := range def.Params {
			params[name] = &einoschema.ParameterInfo{
				Type:     paramType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
			}
		}
		infos = append(infos, &einoschema.ToolInfo{
			Name:        def.Name,
			Desc:        def.Description,
			ParamsOneOf: einoschema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func paramType(t string) einoschema.DataType {
	switch t {
	case "integer":
		return einoschema.Integer
	case "number":
		return einoschema.Number
	case "boolean":
		return einoschema.Boolean
	case "object":
		return einoschema.Object
	case "array":
		return einoschema.Array
	default:
		return einoschema.String
	}
}
