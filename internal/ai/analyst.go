package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

const (
	DefaultTimeout = 60 * time.Second
	promptCandles  = 10

	reasonNotConfigured = "AI model not initialized. Check API key."
	reasonQuota         = "API quota exceeded."
	reasonAPIKey        = "API key error. Check configuration."
	reasonGeneric       = "AI generation error."
)

// Completion is the raw text and token accounting of one model call.
type Completion struct {
	Text  string
	Usage domain.TokenUsage
}

// LLMClient sends a single prompt, optionally with a PNG chart, to a model.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, image []byte) (Completion, error)
}

type Analyst struct {
	tracer  trace.Tracer
	llm     LLMClient
	timeout time.Duration
}

// NewAnalyst accepts a nil client, in which case every analysis reports the
// model as unavailable.
func NewAnalyst(tracer trace.Tracer, llm LLMClient) *Analyst {
	return &Analyst{tracer: tracer, llm: llm, timeout: DefaultTimeout}
}

// Analyze never fails: configuration, transport and parse problems come back
// as an unavailable or default-hold result with a readable reason.
func (a *Analyst) Analyze(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult {
	ctx, span := a.tracer.Start(ctx, "ai-analyst.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", req.Symbol), attribute.Bool("image", len(req.Image) > 0))

	if a.llm == nil {
		return unavailable(reasonNotConfigured)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	completion, err := a.llm.Complete(callCtx, BuildPrompt(req), req.Image)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("ai analysis failed")
		return unavailable(describeError(err))
	}

	result := ParseResponse(completion.Text)
	result.Usage = completion.Usage
	span.SetAttributes(attribute.String("signal", string(result.Signal)), attribute.Int64("tokens", completion.Usage.Total))
	return result
}

func unavailable(reason string) domain.AnalysisResult {
	return domain.AnalysisResult{Signal: domain.SignalUnavailable, Reasoning: reason, Levels: "N/A"}
}

func describeError(err error) string {
	reason := reasonGeneric
	msg := err.Error()
	lower := strings.ToLower(msg)

	var apiErr *openai.Error
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	switch {
	case status == http.StatusTooManyRequests || strings.Contains(lower, "quota"):
		reason = reasonQuota
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "api key"):
		reason = reasonAPIKey
	}
	if r := []rune(msg); len(r) > 50 {
		msg = string(r[:50])
	}
	return fmt.Sprintf("%s (%s...)", reason, msg)
}
