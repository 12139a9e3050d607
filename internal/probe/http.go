package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/leadscore/internal/adapters/repository"
	"github.com/okian/leadscore/internal/domain/lead"
)

// client issues context-aware GET requests against one base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// health polls /healthz with exponential backoff until it answers 200 or
// wait elapses.
func (c *client) health(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		_, err := c.get(ctx, "/healthz", nil)
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = wait
	return backoff.Retry(func() error {
		_, err := c.get(ctx, "/healthz", nil)
		return err
	}, backoff.WithContext(bo, ctx))
}

func (c *client) leads(ctx context.Context, tc Case) (lead.Scored, error) {
	body, err := c.get(ctx, "/api/leads", tc.values())
	if err != nil {
		return nil, err
	}
	var rows lead.Scored
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}
	return rows, nil
}

func (c *client) export(ctx context.Context, tc Case) (lead.Scored, error) {
	q := tc.values()
	q.Set("format", string(repository.FormatCSV))
	body, err := c.get(ctx, "/api/export", q)
	if err != nil {
		return nil, err
	}
	rows, err := repository.ReadScored(strings.NewReader(string(body)), repository.FormatCSV)
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return rows, nil
}

func (tc Case) values() url.Values {
	q := url.Values{}
	if tc.Industry != "" {
		q.Set("industry", tc.Industry)
	}
	if tc.Role != "" {
		q.Set("role", tc.Role)
	}
	if tc.Location != "" {
		q.Set("location", tc.Location)
	}
	if tc.MinScore > 0 {
		q.Set("min_score", strconv.FormatFloat(tc.MinScore, 'f', -1, 64))
	}
	if tc.Sort != "" {
		q.Set("sort", tc.Sort)
	}
	return q
}
