package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, overview, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	list, err := session.ListResources(ctx, &sdkmcp.ListResourcesParams{})
	if err != nil {
		t.Fatalf("list resources failed: %v", err)
	}
	if len(list.Resources) != 3 {
		t.Fatalf("expected 3 static resources, got %d", len(list.Resources))
	}

	templates, err := session.ListResourceTemplates(ctx, &sdkmcp.ListResourceTemplatesParams{})
	if err != nil {
		t.Fatalf("list templates failed: %v", err)
	}
	if len(templates.ResourceTemplates) != 1 {
		t.Fatalf("expected 1 resource template, got %d", len(templates.ResourceTemplates))
	}

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "market://supported-timeframes"})
	if err != nil {
		t.Fatalf("read static resource failed: %v", err)
	}
	var timeframes []string
	if err := decodeResourceJSON(readRes, &timeframes); err != nil {
		t.Fatalf("decode timeframes failed: %v", err)
	}
	if len(timeframes) != 4 {
		t.Fatalf("expected 4 timeframes, got %+v", timeframes)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "series://BTCUSDT/1h?limit=10"})
	if err != nil {
		t.Fatalf("read series resource failed: %v", err)
	}
	var out seriesGetOutput
	if err := decodeResourceJSON(readRes, &out); err != nil {
		t.Fatalf("decode series output failed: %v", err)
	}
	if out.Symbol != "BTCUSDT" || len(out.Candles) != 1 {
		t.Fatalf("unexpected series payload %+v", out)
	}
	if overview.lastSeriesLimit != 10 {
		t.Fatalf("expected limit 10, got %d", overview.lastSeriesLimit)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "stats://current"})
	if err != nil {
		t.Fatalf("read stats failed: %v", err)
	}
	var stats statsGetOutput
	if err := decodeResourceJSON(readRes, &stats); err != nil {
		t.Fatalf("decode stats failed: %v", err)
	}
	if stats.Hits != 1 || stats.PromptTokens != 10 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestUnknownResource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "signals://latest"}); err == nil {
		t.Fatal("expected resource not found error")
	}
}
