package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"market-pulse/internal/domain"
)

func registerTools(server *mcp.Server, deps Deps) {
	// Optional readings marshal as number-or-null, which an inferred schema
	// cannot describe, so this tool publishes no output schema.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "market_overview",
		Description: "Analyze assets with indicators, order-book walls, news and an AI buy/sell/hold signal",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in marketOverviewInput) (*mcp.CallToolResult, any, error) {
		symbols, err := normalizeSymbols(in.Symbols)
		if err != nil {
			return nil, nil, err
		}
		return nil, overview(ctx, deps, symbols), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tickers_list",
		Description: "List the most traded tickers by 24h quote volume",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in tickersListInput) (*mcp.CallToolResult, tickersListOutput, error) {
		if deps.Overview == nil {
			return nil, tickersListOutput{}, fmt.Errorf("overview service unavailable")
		}
		tickers, err := deps.Overview.TickerBoard(ctx, clampLimit(in.Limit, defaultTickerLimit, maxTickerLimit))
		if err != nil {
			return nil, tickersListOutput{}, err
		}
		if tickers == nil {
			tickers = []domain.Ticker{}
		}
		return nil, tickersListOutput{Tickers: tickers}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "series_get",
		Description: "Get OHLCV candles by symbol, timeframe and limit",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in seriesGetInput) (*mcp.CallToolResult, seriesGetOutput, error) {
		out, err := series(ctx, deps, in)
		return nil, out, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats_get",
		Description: "Prediction hit/miss counters and AI token usage",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, statsGetOutput, error) {
		if deps.Stats == nil {
			return nil, statsGetOutput{}, fmt.Errorf("stats unavailable")
		}
		return nil, newStatsOutput(deps.Stats.Snapshot()), nil
	})
}

// overview serves the last scheduled pass when no symbols are requested and
// one exists; otherwise it runs a pass. Pipeline errors are reported as a
// warning next to whatever assets completed.
func overview(ctx context.Context, deps Deps, symbols []string) marketOverviewOutput {
	if len(symbols) == 0 && deps.Snapshot != nil {
		if assets, at := deps.Snapshot.Latest(); !at.IsZero() {
			return marketOverviewOutput{Assets: assets, UpdatedAt: at}
		}
	}
	out := marketOverviewOutput{Assets: []domain.AnalyzedAsset{}, UpdatedAt: time.Now().UTC(), Live: true}
	if deps.Overview == nil {
		out.Warning = "overview service unavailable"
		return out
	}
	assets, err := deps.Overview.Run(ctx, symbols)
	if err != nil {
		out.Warning = err.Error()
	}
	if assets != nil {
		out.Assets = assets
	}
	return out
}

func series(ctx context.Context, deps Deps, in seriesGetInput) (seriesGetOutput, error) {
	if deps.Overview == nil {
		return seriesGetOutput{}, fmt.Errorf("overview service unavailable")
	}
	symbol, err := normalizeSymbol(in.Symbol)
	if err != nil {
		return seriesGetOutput{}, err
	}
	tf, err := normalizeTimeframe(in.Timeframe)
	if err != nil {
		return seriesGetOutput{}, err
	}
	candles, err := deps.Overview.Series(ctx, symbol, tf, clampLimit(in.Limit, defaultSeriesLimit, maxSeriesLimit))
	if err != nil {
		return seriesGetOutput{}, err
	}
	if candles == nil {
		candles = domain.Series{}
	}
	return seriesGetOutput{Symbol: symbol, Timeframe: tf, Candles: candles}, nil
}
