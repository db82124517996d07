package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/config"
	"market-pulse/internal/job"
	mcpserver "market-pulse/internal/mcp"
)

// swap replaces a package seam for the duration of the test.
func swap[T any](t *testing.T, seam *T, v T) {
	t.Helper()
	old := *seam
	*seam = v
	t.Cleanup(func() { *seam = old })
}

func testConfig(t *testing.T, transport string) *config.Config {
	return &config.Config{
		StatsSQLitePath:       filepath.Join(t.TempDir(), "stats.db"),
		MarketSource:          "binance",
		Timeframes:            []string{"1h"},
		PrimaryTimeframe:      "1h",
		HTTPTimeoutSecs:       1,
		RefreshCron:           "@every 1h",
		LogLevel:              "error",
		LogFormat:             "console",
		MCPTransport:          transport,
		MCPHTTPBind:           "127.0.0.1",
		MCPHTTPPort:           8090,
		MCPAuthToken:          "secret",
		MCPRequestTimeoutSecs: 1,
		MCPRateLimitPerMin:    30,
	}
}

// stubStartup replaces everything main touches before the transport switch
// and returns the server handed to the transport.
func stubStartup(t *testing.T, transport string) **sdkmcp.Server {
	t.Helper()
	cfg := testConfig(t, transport)
	built := new(*sdkmcp.Server)

	swap(t, &loadEnvFunc, func(...string) error { return nil })
	swap(t, &loadConfigFunc, func() (*config.Config, error) { return cfg, nil })
	swap(t, &initPostgresFunc, func(context.Context, string) error { return nil })
	swap(t, &initRedisFunc, func(context.Context, string) error { return nil })
	swap(t, &initTracerFunc, func(context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	})
	swap(t, &startPollerFunc, func(*job.OverviewPoller, context.Context) {})
	swap(t, &newMCPServerFunc, func(_ trace.Tracer, deps mcpserver.Deps, _ mcpserver.ServerConfig) *sdkmcp.Server {
		if deps.Overview == nil || deps.Snapshot == nil || deps.Stats == nil {
			t.Errorf("expected all MCP deps wired, got %+v", deps)
		}
		*built = sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
		return *built
	})
	return built
}

func TestMainRunsStdioByDefault(t *testing.T) {
	built := stubStartup(t, "")

	var got *sdkmcp.Server
	swap(t, &runStdioFunc, func(_ context.Context, s *sdkmcp.Server) error {
		got = s
		return nil
	})

	main()

	if got == nil || got != *built {
		t.Fatal("expected the built server to run over stdio")
	}
}

func TestMainServesHTTPWithGuards(t *testing.T) {
	stubStartup(t, "http")

	var handlerCfg mcpserver.HTTPHandlerConfig
	swap(t, &newMCPHandlerFunc, func(_ *sdkmcp.Server, cfg mcpserver.HTTPHandlerConfig) http.Handler {
		handlerCfg = cfg
		return http.NotFoundHandler()
	})

	listening := make(chan string)
	swap(t, &startHTTPServerFunc, func(srv *http.Server) error {
		listening <- srv.Addr
		return http.ErrServerClosed
	})
	var addr string
	swap(t, &setupSignalNotify, func(chan<- os.Signal, ...os.Signal) {})
	swap(t, &waitForSignalFunc, func(<-chan os.Signal) { addr = <-listening })
	shutdown := false
	swap(t, &shutdownHTTPServerFn, func(*http.Server, context.Context) error {
		shutdown = true
		return nil
	})

	main()

	if addr != "127.0.0.1:8090" {
		t.Fatalf("unexpected listen addr %q", addr)
	}
	if handlerCfg.AuthToken != "secret" || handlerCfg.RateLimitPerMin != 30 || handlerCfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected handler config %+v", handlerCfg)
	}
	if !shutdown {
		t.Fatal("expected graceful shutdown")
	}
}

func TestRunHTTPModeRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, "http")
	cfg.MCPAuthToken = "  "

	err := runHTTPMode(ctx, cancel, cfg, sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil))
	if err == nil || !strings.Contains(err.Error(), "MCP_AUTH_TOKEN is required") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
