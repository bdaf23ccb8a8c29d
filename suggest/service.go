package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/contextgraph-ai/backend/config"
	"github.com/contextgraph-ai/backend/schema"
)

// DefaultQuestions is the fallback set returned whenever generation fails
// or produces fewer than three questions.
var DefaultQuestions = []string{
	"当前图谱中有哪些核心节点？",
	"图中各类型节点和关系的分布如何？",
	"图中最大深度的节点有哪些？",
}

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
	anthropicVer   = "2023-06-01"
	maxTokens      = 256
)

const promptTemplate = `根据以下图谱 schema，生成 3 个简短的中文问题，供用户点击后向 AI 助手提问探索图谱。

要求：
1. 每个问题必须明确提及具体的节点类型名称（如 GW、PipeNode、Person、Decision 等）或关系类型名称，直接使用 schema 中的实际标签/类型名
2. 问题要具体、可操作，例如「GW 节点有哪些？」「PipeNode 的连接模式如何？」「哪种关系类型最多？」
3. 不要用泛化的「核心节点」「图中」等，而要指向具体类型
4. 只返回 JSON 数组，格式：["问题1", "问题2", "问题3"]，不要其他内容

## 图谱 Schema
%s
`

// SummarySource supplies the schema summary the prompt is grounded in.
type SummarySource interface {
	Summary(ctx context.Context) string
}

// Service generates suggested questions. The zero HTTP client gets the
// package timeout applied.
type Service struct {
	cfg       config.LLM
	summaries SummarySource
	client    *http.Client
	logger    *slog.Logger
	fallbacks metric.Int64Counter

	// sleep is swappable so retry tests run instantly.
	sleep func(time.Duration)
}

// NewService builds a suggestion service over the configured LLM endpoint.
func NewService(cfg config.LLM, summaries SummarySource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	fallbacks, err := otel.Meter("suggest").Int64Counter("suggestion_fallbacks_total",
		metric.WithDescription("Suggestion requests served from the default set"))
	if err != nil {
		logger.Warn("failed to create fallback counter", "error", err)
	}
	return &Service{
		cfg:       cfg,
		summaries: summaries,
		client:    &http.Client{Timeout: requestTimeout},
		logger:    logger,
		fallbacks: fallbacks,
		sleep:     time.Sleep,
	}
}

// fallback counts a defaulted response and returns the default set.
func (s *Service) fallback(ctx context.Context, reason string) []string {
	if s.fallbacks != nil {
		s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
	return defaults()
}

// Generate returns exactly three suggested questions. It never returns an
// error: any failure falls back to DefaultQuestions.
func (s *Service) Generate(ctx context.Context) []string {
	summary := s.summaries.Summary(ctx)
	if summary == "" || summary == schema.SummaryUnavailable {
		return s.fallback(ctx, "schema_unavailable")
	}
	if s.cfg.APIKey == "" {
		s.logger.Warn("LLM API key not set, using default suggestions")
		return s.fallback(ctx, "no_api_key")
	}

	prompt := fmt.Sprintf(promptTemplate, summary)
	url, model := s.endpoint()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		questions, retry := s.tryOnce(ctx, url, model, prompt)
		if questions != nil {
			return questions
		}
		if !retry || attempt == maxAttempts {
			return s.fallback(ctx, "request_failed")
		}
		wait := time.Duration(attempt) * time.Second
		s.logger.Info("suggestions API connection failed, retrying",
			"attempt", attempt, "max_attempts", maxAttempts, "wait", wait)
		s.sleep(wait)
	}
	return s.fallback(ctx, "request_failed")
}

// tryOnce performs a single request. retry is true only for connection
// errors; everything else falls back immediately.
func (s *Service) tryOnce(ctx context.Context, url, model, prompt string) (questions []string, retry bool) {
	body, _ := json.Marshal(map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("failed to build suggestions request", "error", err)
		return nil, false
	}
	req.Header.Set("x-api-key", s.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVer)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Transport-level failure: the endpoint may just be starting up.
		s.logger.Warn("suggestions API connection failed", "error", err)
		return nil, true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("suggestions API HTTP error", "status", resp.StatusCode)
		return nil, false
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		s.logger.Warn("failed to decode suggestions response", "error", err)
		return nil, false
	}

	text := extractText(data)
	if text == "" {
		s.logger.Warn("empty or unknown response format from AI")
		return s.fallback(ctx, "unusable_response"), false
	}
	parsed := parseQuestions(text)
	if parsed == nil {
		return s.fallback(ctx, "unparseable_response"), false
	}
	return pad(parsed), false
}

// endpoint resolves the messages URL and model for the configured base.
func (s *Service) endpoint() (url, model string) {
	base := s.cfg.BaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		url = base + "/messages"
	} else {
		url = base + "/v1/messages"
	}
	model = "claude-sonnet-4-20250514"
	if strings.Contains(base, "deepseek.com") {
		model = "deepseek-chat"
	}
	return url, model
}

// pad extends a short parse result with defaults, in order, and caps the
// list at three.
func pad(questions []string) []string {
	for len(questions) < questionCount {
		questions = append(questions, DefaultQuestions[len(questions)])
	}
	return questions[:questionCount]
}

func defaults() []string {
	return append([]string{}, DefaultQuestions...)
}
