package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"text/template"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"go.uber.org/zap"
)

// Outcome classifies how a generation attempt ended
type Outcome string

const (
	OutcomeGenerated     Outcome = "generated"
	OutcomeUnrecognized  Outcome = "unrecognized"
	OutcomeNoCredential  Outcome = "no_credential"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeAuthFailure   Outcome = "auth_failure"
	OutcomeHTTPError     Outcome = "http_error"
	OutcomeMalformed     Outcome = "malformed_response"
	OutcomeNetworkError  Outcome = "network_error"
	OutcomeProviderError Outcome = "provider_error"
)

// UsedFallback reports whether the article body came from the fallback template
func (o Outcome) UsedFallback() bool {
	return o != OutcomeGenerated && o != OutcomeUnrecognized
}

// Generation is the result of one attempt to produce article text
type Generation struct {
	Text     string
	Outcome  Outcome
	Err      error
	Provider string
}

// Completion is the text a provider returned
type Completion struct {
	Text string
	// Recognized is false when the response shape was unknown and the raw
	// payload was stringified instead
	Recognized bool
}

// Provider performs a single text-generation request
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// MalformedResponseError is returned when a response body cannot be used
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a provider error onto an Outcome
func ClassifyError(err error) Outcome {
	var (
		httpErr   *HTTPError
		malformed *MalformedResponseError
		netErr    net.Error
	)

	switch {
	case err == nil:
		return OutcomeGenerated
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
			return OutcomeAuthFailure
		}
		return OutcomeHTTPError
	case errors.As(err, &malformed):
		return OutcomeMalformed
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return OutcomeTimeout
		}
		return OutcomeNetworkError
	default:
		return OutcomeProviderError
	}
}

// htmlDocument matches text that opens with a block-level tag. Markdown with
// a stray inline tag does not match and is kept as is.
var htmlDocument = regexp.MustCompile(`(?i)^<(!doctype|html|body|p|div|h[1-6]|ul|ol|article|section|header|main)[\s/>]`)

// Generator turns a topic into article text, substituting the fallback
// template whenever the provider is missing or fails
type Generator struct {
	provider  Provider
	prompt    *template.Template
	fallback  *template.Template
	timeout   time.Duration
	converter *md.Converter
	logger    *zap.Logger
}

// NewGenerator creates a Generator. A nil provider means no credential is
// configured and every call uses the fallback template.
func NewGenerator(config *Config, provider Provider, logger *zap.Logger) (*Generator, error) {
	prompt, err := template.New("prompt").Parse(config.GetPrompt())
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}

	fallback, err := template.New("fallback").Parse(config.GetFallbackTemplate())
	if err != nil {
		return nil, fmt.Errorf("parsing fallback template: %w", err)
	}

	return &Generator{
		provider:  provider,
		prompt:    prompt,
		fallback:  fallback,
		timeout:   config.Settings.Timeout(),
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}, nil
}

// Generate produces article text for topic. It never fails: every error
// path collapses into the fallback template, and the Outcome records why.
func (g *Generator) Generate(ctx context.Context, topic string) Generation {
	if g.provider == nil {
		g.logger.Debug("No credential configured, using fallback template", zap.String("topic", topic))
		return Generation{
			Text:     g.Fallback(topic),
			Outcome:  OutcomeNoCredential,
			Provider: "fallback",
		}
	}

	prompt, err := g.renderPrompt(topic)
	if err != nil {
		return g.fail(topic, OutcomeProviderError, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.logger.Info("→ Generating...", zap.String("provider", g.provider.Name()), zap.String("topic", topic))
	completion, err := g.provider.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(completion.Text) == "" {
		err = &MalformedResponseError{Err: errors.New("empty generated text")}
	}
	if err != nil {
		return g.fail(topic, ClassifyError(err), err)
	}

	text := g.normalize(completion.Text)
	outcome := OutcomeGenerated
	if !completion.Recognized {
		outcome = OutcomeUnrecognized
		g.logger.Warn("Unrecognized response shape, using raw payload", zap.String("provider", g.provider.Name()))
	}

	g.logger.Info("✓ Generation completed", zap.String("outcome", string(outcome)), zap.Int("chars", len(text)))
	return Generation{
		Text:     text,
		Outcome:  outcome,
		Provider: g.provider.Name(),
	}
}

// Fallback renders the fallback article for topic
func (g *Generator) Fallback(topic string) string {
	var buf bytes.Buffer
	data := struct {
		Title string
		Topic string
	}{
		Title: DeriveTitle(topic),
		Topic: topic,
	}
	if err := g.fallback.Execute(&buf, data); err != nil {
		g.logger.Error("Fallback template failed", zap.Error(err))
		return "# " + data.Title
	}
	return strings.TrimSpace(buf.String())
}

func (g *Generator) fail(topic string, outcome Outcome, err error) Generation {
	g.logger.Warn("Generation failed, using fallback template",
		zap.String("provider", g.provider.Name()),
		zap.String("outcome", string(outcome)),
		zap.Error(err))

	text := fmt.Sprintf("%s\n\n> Note: generation failed (%s): %v", g.Fallback(topic), outcome, err)
	return Generation{
		Text:     text,
		Outcome:  outcome,
		Err:      err,
		Provider: g.provider.Name(),
	}
}

func (g *Generator) renderPrompt(topic string) (string, error) {
	var buf bytes.Buffer
	if err := g.prompt.Execute(&buf, struct{ Topic string }{Topic: topic}); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// normalize converts an HTML document to markdown and trims surrounding whitespace
func (g *Generator) normalize(text string) string {
	text = strings.TrimSpace(text)
	if !htmlDocument.MatchString(text) {
		return text
	}

	markdown, err := g.converter.ConvertString(text)
	if err != nil {
		g.logger.Debug("HTML conversion failed, keeping raw text", zap.Error(err))
		return text
	}
	return strings.TrimSpace(markdown)
}
