package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AIClient generates a completion for a prompt
type AIClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest carries a single prompt and its generation limits
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
	Retry     RetryPolicy
}

// GeminiRequest represents the request to the generateContent API
type GeminiRequest struct {
	Contents         []GeminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// GeminiContent holds the parts of one conversational turn
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart is a text fragment of a turn
type GeminiPart struct {
	Text string `json:"text"`
}

// GenerationConfig controls sampling
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GeminiResponse represents the response from the generateContent API
type GeminiResponse struct {
	Candidates []struct {
		Content GeminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiClient calls the Gemini generateContent endpoint
type GeminiClient struct {
	apiURL      string
	apiKey      string
	temperature float64
	httpClient  *http.Client
	limiter     *RateLimiter
}

// NewGeminiClient creates a client. A nil limiter disables outbound throttling.
func NewGeminiClient(apiURL, apiKey string, temperature float64, timeout time.Duration, limiter *RateLimiter) *GeminiClient {
	return &GeminiClient{
		apiURL:      apiURL,
		apiKey:      apiKey,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
	}
}

// Generate sends the prompt, retrying according to req.Retry. Only a 2xx
// response carrying candidate text is a success.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if c.apiKey == "" || c.apiURL == "" {
		recordAIRequest("unconfigured")
		return "", fmt.Errorf("%w: API key not configured", ErrAIUnavailable)
	}

	requestBody := GeminiRequest{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: GenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return "", err
	}

	resp, err := req.Retry.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		recordAIRequest("exhausted")
		return "", fmt.Errorf("%w: %w", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordAIRequest("error")
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("Gemini API quota exceeded")
		} else {
			slog.Error("Gemini API error", "status", resp.StatusCode, "body", truncate(string(body), 500))
		}
		recordAIRequest("rejected")
		return "", fmt.Errorf("%w: %w", ErrAIUnavailable, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)})
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		recordAIRequest("error")
		return "", fmt.Errorf("failed to decode Gemini response: %w", err)
	}

	text := geminiResp.text()
	if strings.TrimSpace(text) == "" {
		recordAIRequest("empty")
		return "", fmt.Errorf("%w: no response content from Gemini", ErrAIUnavailable)
	}

	slog.Info("Gemini response generated",
		"promptTokens", geminiResp.UsageMetadata.PromptTokenCount,
		"candidateTokens", geminiResp.UsageMetadata.CandidatesTokenCount,
	)
	recordAIRequest("success")
	return text, nil
}

// endpoint appends the API key as the key query parameter
func (c *GeminiClient) endpoint() (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid Gemini API URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (r *GeminiResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// IsStatus reports whether err carries an upstream response with the given status
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
