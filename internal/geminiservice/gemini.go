package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// --- Gemini API Configuration ---
const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultMaxRetries  = 3
	initialBackoff     = 1 * time.Second
	defaultTimeout     = 60 * time.Second
	structuredMimeType = "application/json"
)

var (
	// ErrNoContent means the model answered without any usable part.
	ErrNoContent = errors.New("no content found in Gemini response")
	// ErrNotConfigured means the service was started without an API key.
	ErrNotConfigured = errors.New("server is not configured for AI generation")
)

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents          []GeminiContent   `json:"contents"`
	SystemInstruction *GeminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64 encoded binary content (images) returned by the model.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GenerationConfig struct {
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *GeminiSchema `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

// APIError is a non-200 answer from the Gemini endpoint.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %s, Body: %s", e.Status, e.Body)
}

// retryable reports whether another attempt could succeed.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientOptions configures a Client. Zero values fall back to the defaults above.
type ClientOptions struct {
	APIKey         string
	BaseURL        string
	MaxRetries     int
	Timeout        time.Duration
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client is a thin REST client for the generateContent endpoint.
type Client struct {
	apiKey         string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	httpClient     *http.Client
}

func NewClient(opts ClientOptions) *Client {
	c := &Client{
		apiKey:         opts.APIKey,
		baseURL:        opts.BaseURL,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		httpClient:     opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = initialBackoff
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// GenerateStructured sends a system + user prompt constrained by a response schema
// and returns the raw JSON text of the first candidate.
func (c *Client) GenerateStructured(ctx context.Context, model, systemPrompt, userPrompt string, schema *GeminiSchema) (string, error) {
	payload := GeminiPayload{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   schema,
		},
	}
	if systemPrompt != "" {
		payload.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: systemPrompt}}}
	}

	resp, err := c.generate(ctx, model, payload, c.maxRetries)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", ErrNoContent
}

// GenerateAndParse calls GenerateStructured and unmarshals the answer into out.
// name only labels the log lines.
func (c *Client) GenerateAndParse(ctx context.Context, name, model, systemPrompt, userPrompt string, schema *GeminiSchema, out interface{}) error {
	logger := zerolog.Ctx(ctx)

	raw, err := c.GenerateStructured(ctx, model, systemPrompt, userPrompt, schema)
	if err != nil {
		logger.Error().Err(err).Str("call", name).Msg("Gemini generation failed")
		return fmt.Errorf("%s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Error().Err(err).Str("call", name).Int("raw_len", len(raw)).Msg("Failed to parse Gemini JSON")
		return fmt.Errorf("%s: failed to parse AI response: %w", name, err)
	}
	return nil
}

// GenerateImage asks an image model for a single picture. It makes exactly one
// attempt; a nil result with a nil error means the model returned no image part.
func (c *Client) GenerateImage(ctx context.Context, model, prompt string) (*InlineData, error) {
	payload := GeminiPayload{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	resp, err := c.generate(ctx, model, payload, 1)
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return part.InlineData, nil
		}
	}
	return nil, nil
}

// generate handles the actual HTTP request to the Gemini API with exponential backoff.
func (c *Client) generate(ctx context.Context, model string, payload GeminiPayload, attempts int) (*GeminiResponse, error) {
	if c.apiKey == "" {
		log.Error().Msg("GEMINI_API_KEY is not set")
		return nil, ErrNotConfigured
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := c.initialBackoff * time.Duration(math.Pow(2, float64(i-1)))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gemini call aborted: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		logger.Debug().Str("model", model).Int("attempt", i+1).Msg("Calling Gemini API")

		resp, err := c.do(ctx, url, payloadBytes)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("gemini call aborted: %w", ctx.Err())
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return nil, err
		}
		logger.Warn().Err(err).Str("model", model).Msgf("Attempt %d failed", i+1)
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed to call Gemini API after %d attempts: %w", attempts, lastErr)
}

func (c *Client) do(ctx context.Context, url string, body []byte) (*GeminiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(errBody)}
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &geminiResp, nil
}
