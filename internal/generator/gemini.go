package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ryosukesatoh/daily-fact/internal/config"
	"github.com/ryosukesatoh/daily-fact/internal/credentials"
)

// Sampling is fixed so the length and tone of facts stay stable.
const (
	maxOutputTokens = 250
	temperature     = 0.5
)

// GeminiGenerator calls the Gemini generateContent API.
type GeminiGenerator struct {
	keys    credentials.Provider
	model   string
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func NewGeminiGenerator(cfg config.GeneratorConfig, keys credentials.Provider, logger *log.Logger) *GeminiGenerator {
	return &GeminiGenerator{
		keys:    keys,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With("component", "gemini"),
	}
}

// Gemini API request/response types

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func buildPrompt(abstract string) string {
	return fmt.Sprintf(`Summarize the key finding of the following research abstract as exactly one short, factual sentence.
Respond with that single sentence only: no preamble, no quotation marks, no lists.

Abstract:
%s`, abstract)
}

// Generate returns one sentence condensed from abstract.
func (g *GeminiGenerator) Generate(ctx context.Context, abstract string) (string, error) {
	key, err := g.keys.APIKey(ctx)
	if err != nil {
		return "", &GenerationError{Err: err}
	}

	resp, err := g.callAPI(ctx, key, buildPrompt(abstract))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		g.logger.Warn("no candidates returned")
		return NoFact, nil
	}

	first := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range first.Content.Parts {
		sb.WriteString(part.Text)
	}
	fact := strings.TrimSpace(sb.String())

	if first.FinishReason == "MAX_TOKENS" {
		g.logger.Warn("response truncated due to max tokens", "max_tokens", maxOutputTokens, "content_length", len(fact))
	}
	if fact == "" {
		g.logger.Warn("first candidate had no text", "finish_reason", first.FinishReason)
		return NoFact, nil
	}
	return fact, nil
}

func (g *GeminiGenerator) callAPI(ctx context.Context, key, prompt string) (*geminiResponse, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	g.logger.Debug("request starting", "model", g.model, "max_tokens", maxOutputTokens)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var apiResp geminiResponse
	decodeErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if decodeErr == nil && apiResp.Error != nil {
			msg = fmt.Sprintf("%s - %s", apiResp.Error.Status, apiResp.Error.Message)
		}
		g.logger.Error("API error", "status", resp.StatusCode, "message", msg)
		return nil, &GenerationError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if decodeErr != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to parse response: %w", decodeErr)}
	}
	if apiResp.Error != nil {
		return nil, &GenerationError{Err: fmt.Errorf("%s - %s", apiResp.Error.Status, apiResp.Error.Message)}
	}

	return &apiResp, nil
}
