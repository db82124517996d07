package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"market-pulse/internal/domain"
)

func registerResources(server *mcp.Server, deps Deps) {
	server.AddResource(&mcp.Resource{
		URI:         "market://supported-timeframes",
		Name:        "supported-timeframes",
		Description: "Candle timeframes the quote sources understand",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, domain.SupportedIntervals)
	})

	server.AddResource(&mcp.Resource{
		URI:         "overview://latest",
		Name:        "overview-latest",
		Description: "Most recent scheduled market overview pass",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, overview(ctx, deps, nil))
	})

	server.AddResource(&mcp.Resource{
		URI:         "stats://current",
		Name:        "stats-current",
		Description: "Prediction accuracy and token counters",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if deps.Stats == nil {
			return nil, fmt.Errorf("stats unavailable")
		}
		return jsonResource(req.Params.URI, newStatsOutput(deps.Stats.Snapshot()))
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "series://{symbol}/{timeframe}{?limit}",
		Name:        "series-by-symbol-timeframe",
		Description: "OHLCV candles for a symbol and timeframe; optional limit query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		in, err := parseSeriesURI(req.Params.URI)
		if err != nil {
			return nil, err
		}
		out, err := series(ctx, deps, in)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, out)
	})
}

// parseSeriesURI reads series://BTCUSDT/1h?limit=50 into tool input.
func parseSeriesURI(raw string) (seriesGetInput, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "series" || u.Host == "" {
		return seriesGetInput{}, mcp.ResourceNotFoundError(raw)
	}
	in := seriesGetInput{Symbol: u.Host, Timeframe: strings.Trim(u.Path, "/ ")}
	if v := strings.TrimSpace(u.Query().Get("limit")); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			return seriesGetInput{}, fmt.Errorf("invalid limit: %s", v)
		}
	}
	return in, nil
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
