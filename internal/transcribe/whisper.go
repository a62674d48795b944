// Package transcribe converts voice notes to text with the OpenAI
// transcription API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/core"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type WhisperClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type Option func(*WhisperClient)

func WithBaseURL(u string) Option {
	return func(w *WhisperClient) { w.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(w *WhisperClient) { w.client = hc }
}

func NewWhisperClient(apiKey string, opts ...Option) *WhisperClient {
	w := &WhisperClient{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio as multipart form data and returns the
// transcript. Failures surface as ErrTranscriptionFailed so the caller
// can tell the user the voice note was unintelligible to the service.
func (w *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: build form: %v", core.ErrTranscriptionFailed, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: build form: %v", core.ErrTranscriptionFailed, err)
	}
	if err := mw.WriteField("model", w.model); err != nil {
		return "", fmt.Errorf("%w: build form: %v", core.ErrTranscriptionFailed, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: build form: %v", core.ErrTranscriptionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTranscriptionFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", core.ErrTranscriptionFailed, resp.StatusCode, msg)
	}

	var payload transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", core.ErrTranscriptionFailed, err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return "", fmt.Errorf("%w: empty transcript", core.ErrTranscriptionFailed)
	}
	return payload.Text, nil
}
