package mcp

import (
	"context"
	"testing"
	"time"

	"autotrader/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, activities := testServer()
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

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "engine://watchlist"})
	if err != nil {
		t.Fatalf("read watchlist failed: %v", err)
	}
	var symbols []string
	if err := decodeResourceJSON(readRes, &symbols); err != nil {
		t.Fatalf("decode watchlist failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" {
		t.Fatalf("unexpected watchlist payload: %+v", symbols)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "engine://risk-thresholds"})
	if err != nil {
		t.Fatalf("read thresholds failed: %v", err)
	}
	var thresholds riskThresholdsOutput
	if err := decodeResourceJSON(readRes, &thresholds); err != nil {
		t.Fatalf("decode thresholds failed: %v", err)
	}
	if len(thresholds.Levels) != 5 || thresholds.Levels[2].Threshold != 50 || thresholds.MinConfidence != 60 {
		t.Fatalf("unexpected thresholds: %+v", thresholds)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "activity://bot-1?kind=eod_close&limit=10"})
	if err != nil {
		t.Fatalf("read activity resource failed: %v", err)
	}
	var out activityListOutput
	if err := decodeResourceJSON(readRes, &out); err != nil {
		t.Fatalf("decode activity output failed: %v", err)
	}
	if out.BotID != "bot-1" || len(out.Activity) != 1 {
		t.Fatalf("unexpected activity payload: %+v", out)
	}
	if activities.lastFilter.Limit != 10 || activities.lastFilter.Kind == nil || *activities.lastFilter.Kind != domain.ActivityEndOfDayClose {
		t.Fatalf("unexpected filter: %+v", activities.lastFilter)
	}
}

func TestActivityResourceRejectsBadLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "activity://bot-1?limit=many"}); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "signals://latest"}); err == nil {
		t.Fatal("expected resource not found for unknown scheme")
	}
}
