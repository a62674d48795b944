// Package currency normalizes foreign amounts into the base currency
// using date-anchored exchange rates from the Frankfurter API.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spendlog/internal/core"
)

const defaultBaseURL = "https://api.frankfurter.app"

// Conversion records how an amount was brought into the base currency.
// For same-currency amounts Rate is 1 and no lookup happens.
type Conversion struct {
	Amount           core.Money
	Rate             float64
	Original         float64
	OriginalCurrency string
}

type Converter struct {
	base    string
	baseURL string
	client  *http.Client
}

type Option func(*Converter)

func WithBaseURL(u string) Option {
	return func(c *Converter) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Converter) { c.client = hc }
}

func NewConverter(baseCurrency string, opts ...Option) *Converter {
	c := &Converter{
		base:    strings.ToUpper(baseCurrency),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converter) BaseCurrency() string { return c.base }

// ToBase converts amount from the given currency into the base currency,
// anchored on the expense date. When the anchored lookup fails it retries
// against the latest published rates; when both fail the expense must not
// be persisted, so the caller gets ErrConversionUnavailable.
func (c *Converter) ToBase(ctx context.Context, amount float64, code string, date core.Date) (Conversion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == c.base {
		return Conversion{
			Amount:           core.MoneyFromFloat(core.Round2(amount)),
			Rate:             1,
			Original:         amount,
			OriginalCurrency: c.base,
		}, nil
	}

	rate, err := c.fetchRate(ctx, date.String(), code)
	if err != nil {
		rate, err = c.fetchRate(ctx, "latest", code)
	}
	if err != nil {
		return Conversion{}, fmt.Errorf("%w: %s to %s on %s: %v", core.ErrConversionUnavailable, code, c.base, date, err)
	}

	rate = core.Round4(rate)
	return Conversion{
		Amount:           core.MoneyFromFloat(core.Round2(amount * rate)),
		Rate:             rate,
		Original:         amount,
		OriginalCurrency: code,
	}, nil
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (c *Converter) fetchRate(ctx context.Context, anchor, from string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", c.base)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, anchor, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate lookup %s: status %d", anchor, resp.StatusCode)
	}
	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("rate lookup %s: %w", anchor, err)
	}
	rate, ok := body.Rates[c.base]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rate lookup %s: no %s rate in response", anchor, c.base)
	}
	return rate, nil
}
