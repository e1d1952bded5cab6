// Package llmgen talks to third-party text-generation providers. Providers
// only supply input text for the moderation pipeline; they have no bearing
// on classification semantics.
package llmgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Provider generates text from a prompt.
type Provider interface {
	// Generate produces up to maxTokens of text for the prompt.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Available reports whether the provider can currently serve requests.
	Available(ctx context.Context) bool

	// Name identifies the provider in logs and dataset metadata.
	Name() string
}

// newClient builds the shared retrying HTTP client. Generation providers
// rate-limit aggressively, so transient 429/5xx responses are retried with
// backoff instead of surfacing immediately.
func newClient(log *slog.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil
	if log != nil {
		client.Logger = slog.NewLogLogger(log.Handler(), slog.LevelDebug)
	}
	return client
}

// GeminiProvider calls the Google Gemini generateContent API.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *retryablehttp.Client
}

// NewGeminiProvider creates a Gemini provider. An empty apiKey falls back
// to the GEMINI_API_KEY environment variable.
func NewGeminiProvider(apiKey string, log *slog.Logger) *GeminiProvider {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   "gemini-1.5-flash",
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		client:  newClient(log),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Available probes the API with a minimal request.
func (p *GeminiProvider) Available(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	_, err := p.Generate(ctx, "Hello", 8)
	return err == nil
}

// Generate calls generateContent and returns the first candidate's text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
			"temperature":     0.9,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// OllamaProvider calls a local Ollama server.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *retryablehttp.Client
}

// NewOllamaProvider creates an Ollama provider. An empty baseURL falls back
// to OLLAMA_URL, then to the default local address.
func NewOllamaProvider(baseURL, model string, log *slog.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaProvider{baseURL: baseURL, model: model, client: newClient(log)}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Available checks the server's tag listing endpoint.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate calls /api/generate in non-streaming mode.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return decoded.Response, nil
}

// Chain tries providers in order and uses the first available one.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

// NewChain builds a provider chain.
func NewChain(log *slog.Logger, providers ...Provider) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{providers: providers, log: log}
}

// Generate delegates to the first available provider.
func (c *Chain) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	for _, p := range c.providers {
		if !p.Available(ctx) {
			c.log.Debug("generation provider unavailable", "provider", p.Name())
			continue
		}
		text, err := p.Generate(ctx, prompt, maxTokens)
		if err != nil {
			c.log.Warn("generation provider failed", "provider", p.Name(), "error", err)
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("no generation provider available")
}

// Available reports whether any provider in the chain is usable.
func (c *Chain) Available(ctx context.Context) bool {
	for _, p := range c.providers {
		if p.Available(ctx) {
			return true
		}
	}
	return false
}

func (c *Chain) Name() string { return "chain" }
