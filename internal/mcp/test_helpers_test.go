package mcp

import (
	"context"
	"encoding/json"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"market-pulse/internal/domain"
)

type stubOverview struct {
	assets  []domain.AnalyzedAsset
	err     error
	tickers []domain.Ticker
	series  map[string]domain.Series

	runs            int
	lastSymbols     []string
	lastTickerLimit int
	lastSeriesLimit int
}

func (s *stubOverview) Run(_ context.Context, symbols []string) ([]domain.AnalyzedAsset, error) {
	s.runs++
	s.lastSymbols = append([]string(nil), symbols...)
	return append([]domain.AnalyzedAsset(nil), s.assets...), s.err
}

func (s *stubOverview) TickerBoard(_ context.Context, limit int) ([]domain.Ticker, error) {
	s.lastTickerLimit = limit
	if len(s.tickers) > limit {
		return s.tickers[:limit], nil
	}
	return s.tickers, nil
}

func (s *stubOverview) Series(_ context.Context, symbol, timeframe string, limit int) (domain.Series, error) {
	s.lastSeriesLimit = limit
	return s.series[symbol+":"+timeframe], nil
}

type stubSnapshot struct {
	assets []domain.AnalyzedAsset
	at     time.Time
}

func (s *stubSnapshot) Latest() ([]domain.AnalyzedAsset, time.Time) { return s.assets, s.at }

type stubStats struct{ snap domain.StatsSnapshot }

func (s stubStats) Snapshot() domain.StatsSnapshot { return s.snap }

func testServer() (*sdkmcp.Server, *stubOverview, *stubSnapshot) {
	overview := &stubOverview{
		assets: []domain.AnalyzedAsset{{Symbol: "ETHUSDT", Signal: domain.SignalSell}},
		tickers: []domain.Ticker{
			{Symbol: "BTCUSDT", LastPrice: 50000, QuoteVolume24h: domain.Some(9e9)},
			{Symbol: "ETHUSDT", LastPrice: 3000, QuoteVolume24h: domain.Some(4e9)},
		},
		series: map[string]domain.Series{
			"BTCUSDT:1h": {{Symbol: "BTCUSDT", Interval: "1h", Open: 1, High: 2, Low: 1, Close: 2, Volume: 3, OpenTime: time.Unix(0, 0).UTC()}},
		},
	}
	snapshot := &stubSnapshot{}
	deps := Deps{
		Overview: overview,
		Snapshot: snapshot,
		Stats:    stubStats{snap: domain.StatsSnapshot{Hits: 1, Misses: 1, PromptTokens: 10}},
	}
	return NewServer(nil, deps, ServerConfig{RequestTimeout: time.Second}), overview, snapshot
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func decodeToolJSON(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
