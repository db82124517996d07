package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

// Overview passes can take a minute or more with the AI step.
const defaultRequestTimeout = 120 * time.Second

type OverviewReader interface {
	Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error)
	TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error)
	Series(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error)
}

type SnapshotReader interface {
	Latest() ([]domain.AnalyzedAsset, time.Time)
}

type StatsReader interface {
	Snapshot() domain.StatsSnapshot
}

type Deps struct {
	Overview OverviewReader
	Snapshot SnapshotReader
	Stats    StatsReader
}

type ServerConfig struct {
	RequestTimeout time.Duration
}

func NewServer(tracer trace.Tracer, deps Deps, cfg ServerConfig) *sdkmcp.Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	impl := &sdkmcp.Implementation{Name: "market-pulse-mcp", Version: "1.0.0"}
	srv := sdkmcp.NewServer(impl, &sdkmcp.ServerOptions{
		Instructions: "Tools and resources for the latest market overview: top movers, candles, " +
			"indicator context and the AI buy/sell/hold call per asset.",
		Logger: slog.Default(),
	})

	srv.AddReceivingMiddleware(observe(tracer, timeout))

	registerTools(srv, deps)
	registerResources(srv, deps)
	return srv
}

func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	base := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return wrapHTTPHandler(base, cfg)
}

// observe bounds each request with the timeout and, when a tracer is set,
// wraps it in a span named after the tool or method.
func observe(tracer trace.Tracer, timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if tracer == nil {
				return next(ctx, method, req)
			}

			name, attrs := describeRequest(method, req)
			ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
			defer span.End()

			started := time.Now()
			result, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				log.Warn().Err(err).Str("method", method).Dur("took", time.Since(started)).Msg("mcp request failed")
			}
			return result, err
		}
	}
}

func describeRequest(method string, req sdkmcp.Request) (string, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{attribute.String("mcp.method", method)}
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		tool := strings.TrimSpace(r.Params.Name)
		attrs = append(attrs, attribute.String("mcp.tool", tool))
		if tool == "" {
			return "mcp.tool.call", attrs
		}
		return "mcp.tool." + tool, attrs
	case *sdkmcp.ReadResourceRequest:
		attrs = append(attrs, attribute.String("mcp.resource.uri", strings.TrimSpace(r.Params.URI)))
		return "mcp.resource.read", attrs
	}
	return "mcp." + strings.ReplaceAll(method, "/", "."), attrs
}
