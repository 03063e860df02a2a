package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/resilience"
	"github.com/pitchradar/radar-cli/pkg/anthropic"
)

const analyzerSystemPrompt = `You score media opportunities for a PR team.
Given one opportunity, respond with a single JSON object:
{"relevance_score": <0-10>, "priority": "high"|"medium"|"low", "key_themes": [strings], "confidence": <0-1>, "reasoning": "<one sentence>"}
Respond with JSON only.`

// Analyzer scores opportunities with Claude, consulting the similarity
// cache before spending an API call.
type Analyzer struct {
	client    anthropic.Client
	cache     *Cache
	model     string
	maxTokens int64
	retryCfg  resilience.RetryConfig
	breaker   *resilience.Breaker
}

// NewAnalyzer creates an Analyzer around the given client and cache.
// Transient API failures are retried; repeated failures open a circuit
// breaker so a dead upstream fails the rest of a batch fast.
func NewAnalyzer(client anthropic.Client, cache *Cache, modelID string) *Analyzer {
	retryCfg := resilience.ScoringRetry()
	retryCfg.OnRetry = resilience.LogRetries("scoring call")
	return &Analyzer{
		client:    client,
		cache:     cache,
		model:     modelID,
		maxTokens: 1024,
		retryCfg:  retryCfg,
		breaker:   resilience.NewBreaker(3, time.Minute),
	}
}

// Analyze returns an analysis for the opportunity, reusing a cached result
// for a sufficiently similar prior opportunity when one exists. Fresh
// results are stored back into the cache.
func (a *Analyzer) Analyze(ctx context.Context, o *model.Opportunity) (*model.AIAnalysis, error) {
	if o == nil {
		return nil, eris.New("analysis: nil opportunity")
	}

	if cached := a.cache.FindSimilar(o); cached != nil {
		zap.L().Info("analysis: cache hit",
			zap.String("title", o.Title),
			zap.String("reused_from", cached.ReusedFrom),
			zap.Float64("similarity", cached.SimilarityScore),
		)
		return cached, nil
	}

	req := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    analyzerSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: formatOpportunity(o)},
		},
	}
	resp, err := resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, a.retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: score opportunity")
	}

	result, err := parseAnalysis(resp.Text)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: parse response for %q", o.Title)
	}

	a.cache.Store(o, result)
	return result, nil
}

// AnalyzeBatch scores every opportunity in place, isolating per-record
// failures. Returns the number of records that could not be scored.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []model.Opportunity) int {
	failed := 0
	for i := range items {
		if items[i].Analysis != nil {
			continue
		}
		result, err := a.Analyze(ctx, &items[i])
		if err != nil {
			failed++
			zap.L().Warn("analysis: record failed",
				zap.String("title", items[i].Title),
				zap.String("url", items[i].URL),
				zap.String("source", items[i].Source),
				zap.Error(err),
			)
			continue
		}
		items[i].Analysis = result
	}
	return failed
}

func formatOpportunity(o *model.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", o.Title)
	fmt.Fprintf(&b, "Source: %s\n", o.Source)
	fmt.Fprintf(&b, "Category: %s\n", o.Category)
	if o.MediaOutlet != "" {
		fmt.Fprintf(&b, "Outlet: %s\n", o.MediaOutlet)
	}
	if o.Deadline != "" {
		fmt.Fprintf(&b, "Deadline: %s\n", o.Deadline)
	}
	if len(o.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(o.Tags, ", "))
	}
	fmt.Fprintf(&b, "Description: %s\n", o.Description)
	return b.String()
}

func parseAnalysis(text string) (*model.AIAnalysis, error) {
	cleaned := cleanJSON(text)

	var result model.AIAnalysis
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, eris.Wrap(err, "unmarshal analysis")
	}

	switch result.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		result.Priority = model.PriorityLow
	}
	return &result, nil
}

// cleanJSON strips markdown fences and surrounding prose from a model
// response, keeping the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
