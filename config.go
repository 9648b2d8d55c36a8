package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile     = "config.json"
	defaultOutputDir      = "docs"
	defaultImagesDir      = "images"
	defaultAuthorName     = "ErgoBot"
	defaultCategory       = "Ergonomics"
	defaultSiteName       = "ErgoStudentGear"
	defaultFontPath       = "DejaVuSans-Bold.ttf"
	defaultTimeoutSeconds = 30
	defaultMaxTokens      = 900
	defaultTemperature    = 0.7
	defaultCommitMessage  = "Auto: add generated post(s)"
	defaultCommitName     = "github-actions"
	defaultCommitEmail    = "action@github.com"
)

// ErrConfigMissing is returned when the configuration file does not exist.
var ErrConfigMissing = errors.New(`Missing config.json. Run "post-writer init" or copy config.example.json -> config.json and edit.`)

// ConfigOverrides allows overriding embedded defaults with file paths
type ConfigOverrides struct {
	TemplatePath         *string
	FallbackTemplatePath *string
	PromptPath           *string
}

// Embedded configuration files
//
//go:embed config.example.json
var defaultConfigExample string

//go:embed templates/post.md
var defaultTemplate string

//go:embed templates/fallback.md
var defaultFallbackTemplate string

//go:embed templates/prompt.md
var defaultPrompt string

// PublishSettings configures the commit identity and message of the publish step
type PublishSettings struct {
	RepoDir       string `json:"repo_dir" yaml:"repo_dir"`
	UserName      string `json:"user_name" yaml:"user_name"`
	UserEmail     string `json:"user_email" yaml:"user_email"`
	CommitMessage string `json:"commit_message" yaml:"commit_message"`
}

// Settings represents the configuration file structure
type Settings struct {
	APIKey             string          `json:"api_key" yaml:"api_key"`
	HFAPIKey           string          `json:"hf_api_key" yaml:"hf_api_key"`
	PostsPerRun        int             `json:"posts_per_run" yaml:"posts_per_run"`
	AuthorName         string          `json:"author_name" yaml:"author_name"`
	DefaultCategory    string          `json:"default_category" yaml:"default_category"`
	AmazonAffiliateTag string          `json:"amazon_affiliate_tag" yaml:"amazon_affiliate_tag"`
	Provider           string          `json:"provider" yaml:"provider"`
	Model              string          `json:"model" yaml:"model"`
	Endpoint           string          `json:"endpoint" yaml:"endpoint"`
	TimeoutSeconds     int             `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTokens          int             `json:"max_tokens" yaml:"max_tokens"`
	Temperature        *float64        `json:"temperature" yaml:"temperature"`
	Topics             []string        `json:"topics" yaml:"topics"`
	OutputDir          string          `json:"output_dir" yaml:"output_dir"`
	ImagesDir          string          `json:"images_dir" yaml:"images_dir"`
	Images             *bool           `json:"images" yaml:"images"`
	SiteName           string          `json:"site_name" yaml:"site_name"`
	FontPath           string          `json:"font_path" yaml:"font_path"`
	Publish            PublishSettings `json:"publish" yaml:"publish"`
}

// Config holds settings, the resolved credential and template overrides
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
	APIKey    string
}

// NewConfig creates a new Config with settings and overrides
func NewConfig(settings *Settings, overrides *ConfigOverrides) *Config {
	return &Config{
		Settings:  settings,
		Overrides: overrides,
		APIKey:    settings.ConfiguredAPIKey(),
	}
}

// LoadSettings reads the configuration file. JSON files are decoded as JSON,
// anything else as YAML. Defaults are applied and the result validated.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (looked for %s)", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var settings Settings
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &settings)
	} else {
		err = yaml.Unmarshal(data, &settings)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &settings, nil
}

func (s *Settings) applyDefaults() {
	if s.PostsPerRun == 0 {
		s.PostsPerRun = 1
	}
	if s.AuthorName == "" {
		s.AuthorName = defaultAuthorName
	}
	if s.DefaultCategory == "" {
		s.DefaultCategory = defaultCategory
	}
	if s.Provider == "" {
		s.Provider = ProviderHuggingFace
	}
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = defaultTimeoutSeconds
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	if s.Temperature == nil {
		t := defaultTemperature
		s.Temperature = &t
	}
	if len(s.Topics) == 0 {
		s.Topics = append([]string(nil), DefaultTopics...)
	}
	if s.OutputDir == "" {
		s.OutputDir = defaultOutputDir
	}
	if s.ImagesDir == "" {
		s.ImagesDir = defaultImagesDir
	}
	if s.Images == nil {
		enabled := true
		s.Images = &enabled
	}
	if s.SiteName == "" {
		s.SiteName = defaultSiteName
	}
	if s.FontPath == "" {
		s.FontPath = defaultFontPath
	}
	if s.Publish.UserName == "" {
		s.Publish.UserName = defaultCommitName
	}
	if s.Publish.UserEmail == "" {
		s.Publish.UserEmail = defaultCommitEmail
	}
	if s.Publish.CommitMessage == "" {
		s.Publish.CommitMessage = defaultCommitMessage
	}
	if s.Publish.RepoDir == "" {
		s.Publish.RepoDir = "."
	}
}

// Validate reports configuration values no run can work with
func (s *Settings) Validate() error {
	if s.PostsPerRun < 1 {
		return fmt.Errorf("posts_per_run must be at least 1, got %d", s.PostsPerRun)
	}

	topics := 0
	for _, topic := range s.Topics {
		if strings.TrimSpace(topic) != "" {
			topics++
		}
	}
	if topics == 0 {
		return fmt.Errorf("topics must contain at least one non-empty entry")
	}

	if _, ok := providerEnvVars[s.Provider]; !ok {
		return fmt.Errorf("unknown provider %q", s.Provider)
	}

	return nil
}

// ConfiguredAPIKey returns the credential from the config file, preferring
// api_key over the legacy hf_api_key
func (s *Settings) ConfiguredAPIKey() string {
	if key := strings.TrimSpace(s.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(s.HFAPIKey)
}

// ImagesEnabled reports whether header images are rendered
func (s *Settings) ImagesEnabled() bool {
	return s.Images == nil || *s.Images
}

// Timeout returns the bound applied to the outbound generation request
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// TopicList returns the configured topics without blank entries
func (s *Settings) TopicList() []string {
	topics := make([]string, 0, len(s.Topics))
	for _, topic := range s.Topics {
		if t := strings.TrimSpace(topic); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// ResolveAPIKey picks the credential: explicit flag, then the provider's
// environment variable, then the config file
func (c *Config) ResolveAPIKey(flagValue string, getenv func(string) string) {
	if key := strings.TrimSpace(flagValue); key != "" {
		c.APIKey = key
		return
	}
	if name := providerEnvVars[c.Settings.Provider]; name != "" && getenv != nil {
		if key := strings.TrimSpace(getenv(name)); key != "" {
			c.APIKey = key
			return
		}
	}
	c.APIKey = c.Settings.ConfiguredAPIKey()
}

// GetTemplate returns the post template (from override file or embedded)
func (c *Config) GetTemplate() string {
	if c.Overrides != nil && c.Overrides.TemplatePath != nil {
		if content, err := os.ReadFile(*c.Overrides.TemplatePath); err == nil {
			return string(content)
		}
	}
	return defaultTemplate
}

// GetFallbackTemplate returns the fallback article template (from override file or embedded)
func (c *Config) GetFallbackTemplate() string {
	if c.Overrides != nil && c.Overrides.FallbackTemplatePath != nil {
		if content, err := os.ReadFile(*c.Overrides.FallbackTemplatePath); err == nil {
			return string(content)
		}
	}
	return defaultFallbackTemplate
}

// GetPrompt returns the generation prompt template (from override file or embedded)
func (c *Config) GetPrompt() string {
	if c.Overrides != nil && c.Overrides.PromptPath != nil {
		if content, err := os.ReadFile(*c.Overrides.PromptPath); err == nil {
			return string(content)
		}
	}
	return defaultPrompt
}

// ensureConfigExists writes the example configuration to path if nothing is there yet.
// It reports whether a file was written.
func ensureConfigExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking config file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfigExample), 0644); err != nil {
		return false, fmt.Errorf("writing default config: %w", err)
	}

	return true, nil
}
