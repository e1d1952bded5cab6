package llmgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				MaxOutputTokens int `json:"maxOutputTokens"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(payload.Contents) != 1 || payload.Contents[0].Parts[0].Text != "write a post" {
			t.Errorf("Unexpected prompt payload: %+v", payload.Contents)
		}
		if payload.GenerationConfig.MaxOutputTokens != 100 {
			t.Errorf("Expected maxOutputTokens 100, got %d", payload.GenerationConfig.MaxOutputTokens)
		}

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"generated post"}]}}]}`)
	}))
	defer ts.Close()

	p := NewGeminiProvider("test-key", nil)
	p.baseURL = ts.URL

	text, err := p.Generate(context.Background(), "write a post", 100)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "generated post" {
		t.Errorf("Expected 'generated post', got '%s'", text)
	}
	if gotPath != "/gemini-1.5-flash:generateContent" {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer ts.Close()

	p := NewGeminiProvider("test-key", nil)
	p.baseURL = ts.URL

	if _, err := p.Generate(context.Background(), "prompt", 50); err == nil {
		t.Error("Expected error for empty candidates, got nil")
	}
}

func TestGeminiUnavailableWithoutKey(t *testing.T) {
	p := NewGeminiProvider("", nil)
	p.apiKey = ""

	if p.Available(context.Background()) {
		t.Error("Expected provider without API key to be unavailable")
	}
}

func TestOllamaGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[]}`)
		case "/api/generate":
			var payload struct {
				Model   string `json:"model"`
				Prompt  string `json:"prompt"`
				Stream  bool   `json:"stream"`
				Options struct {
					NumPredict int `json:"num_predict"`
				} `json:"options"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
			if payload.Stream {
				t.Error("Expected non-streaming request")
			}
			if payload.Model != "llama3.2" || payload.Options.NumPredict != 80 {
				t.Errorf("Unexpected payload: %+v", payload)
			}
			fmt.Fprint(w, `{"response":"ollama text"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "", nil)

	if !p.Available(context.Background()) {
		t.Fatal("Expected provider to be available")
	}

	text, err := p.Generate(context.Background(), "prompt", 80)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "ollama text" {
		t.Errorf("Expected 'ollama text', got '%s'", text)
	}
}

// stubProvider is a scriptable in-memory provider.
type stubProvider struct {
	name      string
	available bool
	text      string
	err       error
	calls     int
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubProvider) Available(ctx context.Context) bool { return s.available }
func (s *stubProvider) Name() string                       { return s.name }

func TestChainSkipsUnavailableProviders(t *testing.T) {
	down := &stubProvider{name: "down", available: false}
	up := &stubProvider{name: "up", available: true, text: "from up"}

	chain := NewChain(nil, down, up)

	text, err := chain.Generate(context.Background(), "prompt", 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "from up" {
		t.Errorf("Expected 'from up', got '%s'", text)
	}
	if down.calls != 0 {
		t.Error("Unavailable provider should not have been called")
	}
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &stubProvider{name: "failing", available: true, err: fmt.Errorf("quota exceeded")}
	working := &stubProvider{name: "working", available: true, text: "recovered"}

	chain := NewChain(nil, failing, working)

	text, err := chain.Generate(context.Background(), "prompt", 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "recovered" {
		t.Errorf("Expected 'recovered', got '%s'", text)
	}
	if failing.calls != 1 {
		t.Errorf("Expected failing provider to be tried once, got %d calls", failing.calls)
	}
}

func TestChainAllDown(t *testing.T) {
	chain := NewChain(nil, &stubProvider{name: "a"}, &stubProvider{name: "b"})

	if chain.Available(context.Background()) {
		t.Error("Expected chain with no available providers to be unavailable")
	}
	if _, err := chain.Generate(context.Background(), "prompt", 10); err == nil {
		t.Error("Expected error when no provider is available")
	}
}
