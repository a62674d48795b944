// Package chart renders category-breakdown doughnut charts through the
// QuickChart service.
package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/summary"
)

const (
	defaultBaseURL = "https://quickchart.io"

	// Telegram rejects photo URLs longer than this, so oversized chart
	// configs go through the short-URL endpoint instead.
	maxGetURLLen = 8000
)

var palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#C9CBCF", "#7ACB77", "#E7707D", "#6C8EAD",
}

type Renderer struct {
	baseURL string
	client  *http.Client
}

type Option func(*Renderer)

func WithBaseURL(u string) Option {
	return func(r *Renderer) { r.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(r *Renderer) { r.client = hc }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
}

type chartOptions struct {
	Plugins chartPlugins `json:"plugins"`
}

type chartPlugins struct {
	Title  chartTitle  `json:"title"`
	Legend chartLegend `json:"legend"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type chartLegend struct {
	Position string `json:"position"`
}

// DoughnutURL builds a chart image URL for the summary's category
// breakdown, largest slice first. Short configs stay a plain GET URL;
// oversized ones are exchanged for a hosted short URL.
func (r *Renderer) DoughnutURL(ctx context.Context, s summary.Summary) (string, error) {
	if len(s.ByCategory) == 0 {
		return "", fmt.Errorf("%w: nothing to chart", core.ErrChartRenderFailed)
	}

	cfg := chartConfig{
		Type: "doughnut",
		Options: chartOptions{
			Plugins: chartPlugins{
				Title: chartTitle{
					Display: true,
					Text:    fmt.Sprintf("Spending by category (%s)", s.Period),
				},
				Legend: chartLegend{Position: "right"},
			},
		},
	}
	for i, ca := range s.ByCategory {
		cfg.Data.Labels = append(cfg.Data.Labels, ca.Category)
		cfg.Data.Datasets = appendSlice(cfg.Data.Datasets, ca.Amount.Float(), palette[i%len(palette)])
	}

	encoded, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: encode config: %v", core.ErrChartRenderFailed, err)
	}

	getURL := r.baseURL + "/chart?c=" + url.QueryEscape(string(encoded))
	if len(getURL) <= maxGetURLLen {
		return getURL, nil
	}
	return r.createShortURL(ctx, encoded)
}

func appendSlice(datasets []chartDataset, value float64, color string) []chartDataset {
	if len(datasets) == 0 {
		datasets = []chartDataset{{}}
	}
	datasets[0].Data = append(datasets[0].Data, value)
	datasets[0].BackgroundColor = append(datasets[0].BackgroundColor, color)
	return datasets
}

type createRequest struct {
	Chart json.RawMessage `json:"chart"`
}

type createResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (r *Renderer) createShortURL(ctx context.Context, config []byte) (string, error) {
	body, err := json.Marshal(createRequest{Chart: config})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", core.ErrChartRenderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chart/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrChartRenderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrChartRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", core.ErrChartRenderFailed, resp.StatusCode)
	}
	var payload createResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", core.ErrChartRenderFailed, err)
	}
	if !payload.Success || payload.URL == "" {
		return "", fmt.Errorf("%w: no URL in response", core.ErrChartRenderFailed)
	}
	return payload.URL, nil
}
