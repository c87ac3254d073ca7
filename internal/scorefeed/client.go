// Package scorefeed busca placares finais no formato /scores da The Odds API.
package scorefeed

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

	"golang.org/x/time/rate"
)

const (
	apiVersion = "v4"
	timeout    = 10 * time.Second
	maxRetries = 3
	daysFrom   = "3" // máximo aceito pelo endpoint
)

// TeamScore é o placar de um participante; Score vem como string no feed
type TeamScore struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// Score é um jogo do feed. Scores é nulo enquanto o jogo não começou.
type Score struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Completed    bool        `json:"completed"`
	Scores       []TeamScore `json:"scores"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	RetryDelay time.Duration
}

// NewClient cria o client; rps <= 0 desliga o limitador
func NewClient(baseURL, apiKey string, rps float64) *Client {
	lim := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    lim,
		RetryDelay: 2 * time.Second,
	}
}

// Scores devolve os jogos recentes e em andamento de um esporte
func (c *Client) Scores(ctx context.Context, sport string) ([]Score, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("daysFrom", daysFrom)
	params.Set("dateFormat", "iso")
	fullURL := fmt.Sprintf("%s/%s/sports/%s/scores?%s", c.baseURL, apiVersion, url.PathEscape(sport), params.Encode())

	body, err := c.doRequestWithRetry(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch scores %s: %w", sport, err)
	}

	var out []Score
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse scores response: %w", err)
	}
	return out, nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// 4xx não melhora com retry, exceto 429
		var he *httpError
		if errors.As(err, &he) && he.StatusCode >= 400 && he.StatusCode < 500 && he.StatusCode != http.StatusTooManyRequests {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}

type httpError struct {
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
