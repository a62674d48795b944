package chart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendlog/internal/core"
	"spendlog/internal/summary"
)

func sampleSummary(cats ...string) summary.Summary {
	s := summary.Summary{Period: summary.PeriodWeek}
	for i, c := range cats {
		s.ByCategory = append(s.ByCategory, summary.CategoryAmount{
			Category: c,
			Amount:   core.Money{Cents: int64((len(cats) - i) * 10000)},
		})
	}
	return s
}

func TestDoughnutURLShortConfigStaysGet(t *testing.T) {
	r := NewRenderer(WithBaseURL("https://quickchart.example"))
	got, err := r.DoughnutURL(context.Background(), sampleSummary("Transport", "Food"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(got, "https://quickchart.example/chart?c=") {
		t.Fatalf("expected GET chart URL, got %s", got)
	}
	for _, want := range []string{"Transport", "Food", "doughnut"} {
		if !strings.Contains(got, want) {
			t.Errorf("URL should encode %q", want)
		}
	}
}

func TestDoughnutURLEmptyBreakdown(t *testing.T) {
	r := NewRenderer()
	_, err := r.DoughnutURL(context.Background(), summary.Summary{})
	if !errors.Is(err, core.ErrChartRenderFailed) {
		t.Fatalf("expected ErrChartRenderFailed, got %v", err)
	}
}

func TestDoughnutURLOversizedConfigUsesShortURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chart/create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"url":"https://quickchart.io/chart/render/sf-abc123"}`))
	}))
	defer srv.Close()

	// Enough long labels to push the GET URL past the limit.
	var cats []string
	for i := 0; i < 300; i++ {
		cats = append(cats, strings.Repeat("category", 5))
	}

	r := NewRenderer(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := r.DoughnutURL(context.Background(), sampleSummary(cats...))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "https://quickchart.io/chart/render/sf-abc123" {
		t.Fatalf("expected short URL, got %s", got)
	}
}

func TestDoughnutURLShortURLFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var cats []string
	for i := 0; i < 300; i++ {
		cats = append(cats, strings.Repeat("category", 5))
	}

	r := NewRenderer(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := r.DoughnutURL(context.Background(), sampleSummary(cats...))
	if !errors.Is(err, core.ErrChartRenderFailed) {
		t.Fatalf("expected ErrChartRenderFailed, got %v", err)
	}
}
