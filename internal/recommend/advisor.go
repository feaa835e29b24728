package recommend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
	"github.com/sells-group/datacleaner/internal/resilience"
	"github.com/sells-group/datacleaner/pkg/anthropic"
)

const systemPrompt = `You are a data cleaning assistant. You receive a JSON analysis of a tabular
dataset: row and column counts, per-column missing counts, numeric statistics,
potential outlier counts and sample values.

Recommend how to clean each column. Reply with a single JSON object and nothing
else, in exactly this shape:

{
  "should_remove_duplicates": true,
  "column_recommendations": {
    "<column name>": {
      "missing_value_strategy": "none" | "mean" | "median" | "mode" | "drop",
      "outlier_strategy": {"method": "none" | "zscore" | "iqr", "action": "cap" | "remove", "threshold": 3},
      "free_text_rationale": "<one sentence>"
    }
  },
  "overall_advice": "<two or three sentences>"
}

Rules:
- Use column names exactly as given.
- mean and median apply to numeric columns only; prefer median for skewed data.
- Use mode for categorical columns.
- Suggest drop only when a column's missing share is small.
- Only suggest outlier handling for numeric columns with potential outliers.
- Typical thresholds: zscore 3, iqr 1.5.`

// AdvisorConfig configures an Advisor.
type AdvisorConfig struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             resilience.Policy
	Breaker           resilience.BreakerConfig
}

// Advisor asks Claude for cleaning recommendations. It is advisory: every
// failure degrades to a fallback payload rather than an error.
type Advisor struct {
	client  anthropic.Client
	cfg     AdvisorConfig
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewAdvisor creates an advisor. A nil client makes every call fall back.
func NewAdvisor(client anthropic.Client, cfg AdvisorConfig) *Advisor {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.LogRetries("recommend")
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(from, to resilience.BreakerState) {
			zap.L().Warn("recommend: circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &Advisor{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewBreaker(cfg.Breaker),
	}
}

// Recommend returns suggestions for ds. On timeout, API failure, an open
// breaker or an unparseable reply it returns DefaultPayload with Fallback set.
func (a *Advisor) Recommend(ctx context.Context, ds *model.Dataset) Payload {
	if a.client == nil {
		return fallback(ds, "no anthropic client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	p, err := a.recommend(ctx, ds)
	if err != nil {
		zap.L().Warn("recommend: falling back to manual configuration", zap.Error(err))
		return fallback(ds, err.Error())
	}
	return p
}

func (a *Advisor) recommend(ctx context.Context, ds *model.Dataset) (Payload, error) {
	analysis := Analyze(ds, profile.Dataset(ds))
	body, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return Payload{}, eris.Wrap(err, "recommend: encode analysis")
	}

	temp := 0.0
	req := anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemPrompt, CacheControl: &anthropic.CacheControl{}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: "Dataset analysis:\n" + string(body)},
		},
		Temperature: &temp,
	}

	resp, err := resilience.Call(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.Retry(ctx, a.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.send(ctx, req)
		})
	})
	if err != nil {
		return Payload{}, eris.Wrap(err, "recommend: request recommendations")
	}
	resp.Usage.LogCost(a.cfg.Model, "recommend")

	var p Payload
	if err := anthropic.DecodeJSON(resp, &p); err != nil {
		return Payload{}, eris.Wrap(err, "recommend: parse recommendations")
	}
	p.Fallback, p.FallbackReason = false, ""
	if p.ColumnRecommendations == nil {
		p.ColumnRecommendations = map[string]ColumnRecommendation{}
	}
	return p, nil
}

func (a *Advisor) send(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "recommend: rate limit wait")
	}
	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		if code := anthropic.StatusCode(err); resilience.IsTransientStatus(code) {
			return nil, resilience.NewTransientError(err, code)
		}
		return nil, err
	}
	return resp, nil
}
