package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// ErrNoData is returned once every host has been tried without a usable
// response. Callers treat it as an empty result.
var ErrNoData = errors.New("no data from any host")

const (
	DefaultTimeout  = 10 * time.Second
	defaultMaxTries = 2
	maxBodyBytes    = 8 << 20
)

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// hostPool issues GET requests against an ordered list of base URLs, retrying
// each host briefly before failing over to the next one.
type hostPool struct {
	name         string
	hosts        []string
	client       *http.Client
	maxTries     uint
	initialDelay time.Duration
	userAgent    string
}

func newHostPool(name string, hosts []string, timeout time.Duration) *hostPool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cleaned := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimRight(strings.TrimSpace(h), "/")
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
			h = "https://" + h
		}
		cleaned = append(cleaned, h)
	}
	return &hostPool{
		name:         name,
		hosts:        cleaned,
		client:       &http.Client{Timeout: timeout},
		maxTries:     defaultMaxTries,
		initialDelay: 200 * time.Millisecond,
	}
}

// getJSON decodes the first successful response into out. It returns the
// host that served the request.
func (p *hostPool) getJSON(ctx context.Context, path string, query url.Values, out any) (string, error) {
	if len(p.hosts) == 0 {
		return "", fmt.Errorf("%s: no hosts configured: %w", p.name, ErrNoData)
	}

	var lastErr error
	for _, host := range p.hosts {
		target := host + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}

		body, err := backoff.Retry(ctx, func() ([]byte, error) {
			return p.fetch(ctx, target)
		}, backoff.WithBackOff(p.backOff()), backoff.WithMaxTries(p.maxTries))
		if err == nil {
			if err = json.Unmarshal(body, out); err == nil {
				return host, nil
			}
			err = fmt.Errorf("decode: %w", err)
		}

		lastErr = err
		log.Warn().Str("source", p.name).Str("host", host).Str("path", path).Err(err).Msg("quote host failed, trying next")
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%s %s: %v: %w", p.name, path, lastErr, ErrNoData)
}

func (p *hostPool) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		serr := &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}
	return body, nil
}

func (p *hostPool) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialDelay
	b.MaxInterval = 2 * time.Second
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
