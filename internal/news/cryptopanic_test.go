package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCurrency(t *testing.T) {
	cases := map[string]string{
		"ETHUSDT": "ETH",
		"BTCUSDT": "BTC",
		"ETHBTC":  "ETH",
		"solusdt": "SOL",
		"":        "BTC",
	}
	for in, want := range cases {
		if got := Currency(in); got != want {
			t.Fatalf("Currency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchWithoutTokenReturnsEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := NewCryptoPanic("", 0)
	c.baseURL = srv.URL
	if items := c.Fetch(context.Background(), "BTCUSDT"); len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	if called {
		t.Fatal("provider must not be called without a token")
	}
}

func TestFetchCapsAndMaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("auth_token") != "tok" || q.Get("currencies") != "ETH" || q.Get("kind") != "news" || q.Get("filter") != "important" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		results := make([]string, 0, 8)
		for i := 0; i < 8; i++ {
			results = append(results, fmt.Sprintf(`{"title":"headline %d","url":"https://x/%d","votes":{"positive":%d,"negative":1}}`, i, i, i))
		}
		_, _ = w.Write([]byte(`{"results":[` + strings.Join(results, ",") + `]}`))
	}))
	defer srv.Close()

	c := NewCryptoPanic("tok", 0)
	c.baseURL = srv.URL
	items := c.Fetch(context.Background(), "ETHUSDT")
	if len(items) != MaxItems {
		t.Fatalf("expected %d items, got %d", MaxItems, len(items))
	}
	if items[0].Title != "headline 0" || items[0].Sentiment != "negative" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Sentiment != "neutral" || items[2].Sentiment != "positive" {
		t.Fatalf("unexpected sentiments %+v", items)
	}
}

func TestFetchFailuresReturnEmpty(t *testing.T) {
	handlers := []http.HandlerFunc{
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
		func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>not json</html>")) },
	}
	for i, h := range handlers {
		srv := httptest.NewServer(h)
		c := NewCryptoPanic("tok", 0)
		c.baseURL = srv.URL
		if items := c.Fetch(context.Background(), "BTCUSDT"); len(items) != 0 {
			t.Fatalf("case %d: expected no items, got %+v", i, items)
		}
		srv.Close()
	}

	c := NewCryptoPanic("tok", 0)
	c.baseURL = "http://127.0.0.1:1"
	if items := c.Fetch(context.Background(), "BTCUSDT"); len(items) != 0 {
		t.Fatalf("expected no items on transport error, got %+v", items)
	}
}
