package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"google.golang.org/genai"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
)

const (
	huggingFaceBaseURL    = "https://api-inference.huggingface.co/models/"
	defaultHFModel        = "gpt2"
	openAIEndpoint        = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultGeminiModel    = "gemini-2.0-flash"

	maxResponseBytes = 4 << 20
	maxErrorBody     = 200

	writerSystemPrompt = "You write practical, original blog posts in markdown."
)

// providerEnvVars names the environment variable holding each provider's credential
var providerEnvVars = map[string]string{
	ProviderHuggingFace: "HF_API_KEY",
	ProviderOpenAI:      "OPENAI_API_KEY",
	ProviderAnthropic:   "ANTHROPIC_API_KEY",
	ProviderGemini:      "GEMINI_API_KEY",
}

// NewProvider builds the configured provider. It returns nil, nil when no
// credential is set so callers go straight to the fallback template.
func NewProvider(ctx context.Context, config *Config) (Provider, error) {
	if config.APIKey == "" {
		return nil, nil
	}

	s := config.Settings
	client := &http.Client{Timeout: s.Timeout()}

	switch s.Provider {
	case ProviderHuggingFace:
		return NewHuggingFaceProvider(config.APIKey, huggingFaceEndpoint(s), s.MaxTokens, *s.Temperature, client), nil
	case ProviderOpenAI:
		endpoint := s.Endpoint
		if endpoint == "" {
			endpoint = openAIEndpoint
		}
		model := s.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIProvider(config.APIKey, endpoint, model, s.MaxTokens, *s.Temperature, client), nil
	case ProviderAnthropic:
		model := s.Model
		if model == "" {
			model = defaultAnthropicModel
		}
		return NewAnthropicProvider(config.APIKey, model, s.MaxTokens, *s.Temperature), nil
	case ProviderGemini:
		model := s.Model
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiProvider(ctx, config.APIKey, model, s.MaxTokens, *s.Temperature)
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}
}

func huggingFaceEndpoint(s *Settings) string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	model := s.Model
	if model == "" {
		model = defaultHFModel
	}
	return huggingFaceBaseURL + model
}

// HTTPProvider posts a JSON body with bearer auth and decodes the JSON reply
type HTTPProvider struct {
	name      string
	endpoint  string
	apiKey    string
	client    *http.Client
	buildBody func(prompt string) any
	decoders  []ResponseDecoder
}

// NewHuggingFaceProvider targets the Hugging Face inference API
func NewHuggingFaceProvider(apiKey, endpoint string, maxTokens int, temperature float64, client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		name:     ProviderHuggingFace,
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		buildBody: func(prompt string) any {
			return map[string]any{
				"inputs": prompt,
				"parameters": map[string]any{
					"max_new_tokens":   maxTokens,
					"temperature":      temperature,
					"return_full_text": false,
				},
			}
		},
		decoders: DefaultDecoders(),
	}
}

// NewOpenAIProvider targets an OpenAI-compatible chat completions endpoint
func NewOpenAIProvider(apiKey, endpoint, model string, maxTokens int, temperature float64, client *http.Client) *HTTPProvider {
	return &HTTPProvider{
		name:     ProviderOpenAI,
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		buildBody: func(prompt string) any {
			return map[string]any{
				"model": model,
				"messages": []map[string]string{
					{"role": "system", "content": writerSystemPrompt},
					{"role": "user", "content": prompt},
				},
				"temperature": temperature,
				"max_tokens":  maxTokens,
			}
		},
		decoders: DefaultDecoders(),
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

// Complete issues exactly one request; it does not retry
func (p *HTTPProvider) Complete(ctx context.Context, prompt string) (*Completion, error) {
	payload, err := json.Marshal(p.buildBody(prompt))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", p.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: p.endpoint, Body: truncate(string(body), maxErrorBody)}
	}

	return DecodeResponse(body, p.decoders)
}

// AnthropicProvider generates text through llmkit
type AnthropicProvider struct {
	apiKey   string
	settings types.RequestSettings
}

// NewAnthropicProvider creates a provider for the Anthropic messages API
func NewAnthropicProvider(apiKey, model string, maxTokens int, temperature float64) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey: apiKey,
		settings: types.RequestSettings{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
	}
}

func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Complete runs the llmkit call against the context deadline. llmkit takes
// no context, so the call runs in a goroutine whose result channel is
// buffered and never blocks it. When the deadline wins, Complete returns at
// once but the goroutine lives on until llmkit's own HTTP request returns.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (*Completion, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		response, err := anthropic.PromptWithSettings(writerSystemPrompt, prompt, "", p.apiKey, p.settings)
		if err != nil {
			done <- result{err: fmt.Errorf("anthropic prompt failed: %w", err)}
			return
		}
		if len(response.Content) == 0 {
			done <- result{err: &MalformedResponseError{Err: errors.New("no content in response")}}
			return
		}
		done <- result{text: response.Content[0].Text}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &Completion{Text: r.text, Recognized: true}, nil
	}
}

// GeminiProvider generates text through the Google GenAI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiProvider creates a Gemini API client
func NewGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int, temperature float64) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(writerSystemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(float32(temperature)),
			MaxOutputTokens:   int32(maxTokens),
		},
	}, nil
}

func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), p.config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &HTTPError{StatusCode: apiErr.Code, URL: "gemini:" + p.model, Body: truncate(apiErr.Message, maxErrorBody)}
		}
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedResponseError{Err: errors.New("no candidates with text")}
	}
	return &Completion{Text: text, Recognized: true}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
