package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/contextgraph-ai/backend/config"
)

const deepseekDefaultModel = "deepseek-chat"

// defaultMaxTokens bounds a single assistant turn.
const defaultMaxTokens = 4096

// ResolveModel picks the model identifier for a session. An explicit
// override (a Flow's model_id) wins; otherwise DeepSeek endpoints get
// their chat model, and everything else uses the configured default.
func ResolveModel(cfg config.LLM, override string) string {
	if override != "" {
		return override
	}
	if strings.Contains(cfg.BaseURL, "deepseek.com") {
		return deepseekDefaultModel
	}
	return cfg.Model
}

// NewChatModel builds a tool-calling chat model against the configured
// endpoint. modelID should come from ResolveModel.
func NewChatModel(ctx context.Context, cfg config.LLM, modelID string) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: missing API key")
	}
	maxTokens := defaultMaxTokens
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   normalizeBaseURL(cfg.BaseURL),
		Model:     modelID,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: creating chat model: %w", err)
	}
	return cm, nil
}

// normalizeBaseURL appends the /v1 path segment OpenAI-compatible gateways
// expect when the configured URL ends at the host.
func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return ""
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
