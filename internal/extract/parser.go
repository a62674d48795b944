package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spendlog/internal/categories"
	"spendlog/internal/core"
)

type modelPayload struct {
	Amount      *float64 `json:"amount"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

// parseCandidate normalizes the raw model output into a candidate: fences
// stripped, currency defaulted and uppercased, category mapped onto the
// registry, unparsable or future-less dates anchored to today.
func parseCandidate(raw, baseCurrency string, cats categories.Snapshot, now time.Time) (core.Candidate, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return core.Candidate{}, fmt.Errorf("%w: empty model response", core.ErrExtractionFailed)
	}

	var payload modelPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return core.Candidate{}, fmt.Errorf("%w: unmarshal model response: %v", core.ErrExtractionFailed, err)
	}

	currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
	if len(currency) != 3 {
		currency = baseCurrency
	}

	date, err := core.ParseDate(payload.Date)
	if err != nil {
		date = core.DateOf(now)
	}

	if payload.Amount != nil && *payload.Amount <= 0 {
		payload.Amount = nil
	}

	return core.Candidate{
		Date:        date,
		Amount:      payload.Amount,
		Currency:    currency,
		Category:    cats.Canonical(payload.Category),
		Description: strings.TrimSpace(payload.Description),
	}, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk, keeping the
// outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
