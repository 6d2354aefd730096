package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RESTProvider implements Provider against a self-hosted bars API that serves
// JSON arrays of {"timestamp", "open", "high", "low", "close", "volume"}.
type RESTProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTProvider creates a new provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string) *RESTProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *RESTProvider) Name() string { return "rest" }

func (p *RESTProvider) Fetch(ctx context.Context, ticker string, start, end time.Time) (*RawTable, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("from", start.Format(time.DateOnly))
	q.Set("to", end.Format(time.DateOnly))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", p.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	// Field order is not guaranteed, and numbers may arrive as strings.
	var bars []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	table := &RawTable{}
	if len(bars) == 0 {
		return table, nil
	}
	for key := range bars[0] {
		if key != "timestamp" {
			table.Labels = append(table.Labels, []string{key})
		}
	}
	for _, b := range bars {
		ts, ok := b["timestamp"].(json.Number)
		if !ok {
			continue
		}
		sec, err := ts.Int64()
		if err != nil {
			continue
		}
		row := make([]any, len(table.Labels))
		for j, l := range table.Labels {
			row[j] = b[l[0]]
		}
		table.Index = append(table.Index, time.Unix(sec, 0).UTC())
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
