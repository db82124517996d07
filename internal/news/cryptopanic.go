package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"market-pulse/internal/domain"
)

const (
	DefaultBaseURL = "https://cryptopanic.com/api/v1/posts/"
	MaxItems       = 5
)

type CryptoPanic struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewCryptoPanic(token string, timeout time.Duration) *CryptoPanic {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CryptoPanic{
		baseURL: DefaultBaseURL,
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
	}
}

type postsResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Votes struct {
			Positive int `json:"positive"`
			Negative int `json:"negative"`
			Liked    int `json:"liked"`
			Disliked int `json:"disliked"`
		} `json:"votes"`
	} `json:"results"`
}

// Fetch returns at most MaxItems important headlines for the symbol's base
// currency. Any failure yields an empty list.
func (c *CryptoPanic) Fetch(ctx context.Context, symbol string) []domain.NewsItem {
	if c.token == "" {
		return nil
	}

	q := url.Values{
		"auth_token": {c.token},
		"currencies": {Currency(symbol)},
		"kind":       {"news"},
		"filter":     {"important"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("news fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("symbol", symbol).Msg("news provider returned non-200")
		return nil
	}

	var payload postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("news provider returned invalid json")
		return nil
	}

	out := make([]domain.NewsItem, 0, MaxItems)
	for _, r := range payload.Results {
		if len(out) == MaxItems {
			break
		}
		out = append(out, domain.NewsItem{
			Title:     r.Title,
			URL:       r.URL,
			Sentiment: sentiment(r.Votes.Positive+r.Votes.Liked, r.Votes.Negative+r.Votes.Disliked),
		})
	}
	return out
}

// Currency strips quote suffixes from a trading pair, defaulting to BTC.
func Currency(symbol string) string {
	c := strings.ToUpper(strings.TrimSpace(symbol))
	c = strings.ReplaceAll(c, "USDT", "")
	c = strings.ReplaceAll(c, "BTC", "")
	if c == "" {
		return "BTC"
	}
	return c
}

func sentiment(positive, negative int) string {
	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	}
	return "neutral"
}
