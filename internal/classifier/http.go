package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ukydev/car-maintenance/internal/apperr"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-1.5-flash"
	DefaultPrompt   = "Return the brand of the car, the full model of the car, its model year and the engine."

	maxResponseBytes = 1 << 20
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Prompt   string
	// RPS limits outbound requests per second; zero disables the limit.
	RPS     float64
	Burst   int
	Timeout time.Duration
}

// HTTPClient calls a generateContent style model endpoint with an inline image.
type HTTPClient struct {
	endpoint    string
	apiKey      string
	model       string
	prompt      string
	rateLimiter *rate.Limiter
	httpClient  *http.Client
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &HTTPClient{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		rateLimiter: rate.NewLimiter(limit, cfg.Burst),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type schemaField struct {
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
		ResponseSchema   struct {
			Type       string                 `json:"type"`
			Properties map[string]schemaField `json:"properties"`
			Required   []string               `json:"required"`
		} `json:"responseSchema"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *HTTPClient) buildRequest(image []byte, meta ImageMetadata) generateRequest {
	mime := meta.MimeType
	if mime == "" {
		mime = http.DetectContentType(image)
	}

	var req generateRequest
	req.Contents = []content{{Parts: []part{
		{Text: c.prompt},
		{InlineData: &inlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(image)}},
	}}}
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema.Type = "OBJECT"
	req.GenerationConfig.ResponseSchema.Properties = map[string]schemaField{
		"brand":  {Type: "STRING"},
		"model":  {Type: "STRING"},
		"year":   {Type: "STRING"},
		"engine": {Type: "STRING", Nullable: true},
	}
	req.GenerationConfig.ResponseSchema.Required = []string{"brand", "model", "year"}
	return req
}

// Submit sends one request. Non-2xx responses return a *StatusError.
func (c *HTTPClient) Submit(ctx context.Context, image []byte, meta ImageMetadata) (RawResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return RawResponse{}, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(c.buildRequest(image, meta))
	if err != nil {
		return RawResponse{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return RawResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RawResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return RawResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RawResponse{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), 256)}
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return RawResponse{}, apperr.InvalidResponse("decode model response: %v", err)
	}
	for _, cand := range gr.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return RawResponse{Text: p.Text}, nil
			}
		}
	}
	return RawResponse{}, apperr.InvalidResponse("model response has no text candidate")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
