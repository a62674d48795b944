// Package extract turns free-form input (transcripts, typed text, receipt
// photos) into structured expense candidates via an LLM, with a one-shot
// clarification step for incomplete candidates.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spendlog/internal/categories"
	"spendlog/internal/core"
)

// Client is the model backend. It returns the raw response text, which
// may still carry Markdown fences the parser has to strip.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

type Extractor struct {
	client Client
	base   string
}

func NewExtractor(client Client, baseCurrency string) *Extractor {
	return &Extractor{client: client, base: strings.ToUpper(baseCurrency)}
}

// FromText extracts a candidate from a transcript or typed message. The
// amount stays nil when the input gives no reasonable value; the caller
// decides whether to ask a follow-up.
func (e *Extractor) FromText(ctx context.Context, transcript string, cats categories.Snapshot, now time.Time) (core.Candidate, error) {
	raw, err := e.client.GenerateText(ctx, textPrompt(transcript, e.base, cats, now))
	if err != nil {
		return core.Candidate{}, fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}
	cand, err := parseCandidate(raw, e.base, cats, now)
	if err != nil {
		return core.Candidate{}, err
	}
	cand.RawSource = transcript
	return cand, nil
}

// FromImage extracts a candidate from a receipt or bill photo. Unlike
// text, images always yield a best-guess total, and the date comes from
// the document when it is legible.
func (e *Extractor) FromImage(ctx context.Context, image []byte, mimeType string, cats categories.Snapshot, now time.Time) (core.Candidate, error) {
	raw, err := e.client.GenerateVision(ctx, imagePrompt(e.base, cats, now), image, mimeType)
	if err != nil {
		return core.Candidate{}, fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}
	cand, err := parseCandidate(raw, e.base, cats, now)
	if err != nil {
		return core.Candidate{}, err
	}
	cand.RawSource = core.RawSourceImage
	return cand, nil
}

// Clarify merges a single follow-up answer into an incomplete candidate
// by re-running extraction over the original input plus the reply. Fields
// the original already resolved are kept if the re-run loses them.
func (e *Extractor) Clarify(ctx context.Context, original core.Candidate, followUp string, cats categories.Snapshot, now time.Time) (core.Candidate, error) {
	combined := original.RawSource + "\nAdditional detail: " + followUp
	cand, err := e.FromText(ctx, combined, cats, now)
	if err != nil {
		return core.Candidate{}, err
	}
	if cand.Amount == nil {
		cand.Amount = original.Amount
	}
	if len(strings.TrimSpace(cand.Description)) < 2 {
		cand.Description = original.Description
	}
	cand.RawSource = original.RawSource
	return cand, nil
}
