package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline handles the main workflow: topic, text, image, markdown
type Pipeline struct {
	settings     *Settings
	generator    *Generator
	writer       *ArtifactWriter
	renderer     *HeaderRenderer
	logger       *zap.Logger
	now          func() time.Time
	skipExisting bool
}

// NewPipeline wires a generator and writer for config. The header renderer
// is only created when images are enabled.
func NewPipeline(config *Config, generator *Generator, logger *zap.Logger) (*Pipeline, error) {
	writer, err := NewArtifactWriter(config)
	if err != nil {
		return nil, fmt.Errorf("creating artifact writer: %w", err)
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))

	var renderer *HeaderRenderer
	if config.Settings.ImagesEnabled() {
		renderer = NewHeaderRenderer(config.Settings.FontPath, config.Settings.SiteName, logger)
	}

	return &Pipeline{
		settings:  config.Settings,
		generator: generator,
		writer:    writer,
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetSkipExisting keeps existing posts instead of overwriting them
func (p *Pipeline) SetSkipExisting(skip bool) {
	p.skipExisting = skip
}

// SetClock replaces the time source
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run produces count posts one after another. A failing post is recorded
// and the remaining posts are still attempted.
func (p *Pipeline) Run(ctx context.Context, selector TopicSelector, count int) []ProcessingResult {
	topics := p.settings.TopicList()
	results := make([]ProcessingResult, 0, count)

	p.logger.Info(fmt.Sprintf("Generating %d post(s)...", count))

	for i := 0; i < count; i++ {
		topic := selector.Pick(topics, p.now().UTC())
		p.logger.Info(fmt.Sprintf("[%d/%d] Processing", i+1, count), zap.String("topic", topic))

		result := p.ProduceOne(ctx, topic)
		results = append(results, result)

		switch result.Status {
		case StatusSuccess:
			p.logger.Info("✓ Generated", zap.String("file", result.Filename), zap.String("outcome", string(result.Outcome)))
		case StatusSkipped:
			p.logger.Info("Skipped, post exists", zap.String("file", result.Filename))
		default:
			p.logger.Error("✗ Failed", zap.String("topic", topic), zap.Error(result.Error))
		}
	}

	return results
}

// ProduceOne generates and writes a single post for topic
func (p *Pipeline) ProduceOne(ctx context.Context, topic string) ProcessingResult {
	now := p.now().UTC()
	date := now.Format(dateLayout)

	generation := p.generator.Generate(ctx, topic)
	article := &Article{
		Topic:      topic,
		Title:      TitleFor(topic, generation.Text),
		Body:       generation.Text,
		Date:       now,
		Generation: generation,
	}

	filename := p.writer.MarkdownPath(article.Title, date)
	result := ProcessingResult{
		Topic:    topic,
		Filename: filename,
		Outcome:  generation.Outcome,
	}

	if fileExists(filename) {
		if p.skipExisting {
			result.Status = StatusSkipped
			return result
		}
		p.logger.Warn("Overwriting existing post", zap.String("file", filename))
	}

	var imageSitePath string
	if p.renderer != nil {
		imagePath, sitePath := p.writer.ImagePath(article.Title, date)
		p.logger.Debug("→ Rendering header image", zap.String("file", imagePath))
		if err := p.renderer.Render(article.Title, imagePath); err != nil {
			result.Status = StatusError
			result.Error = fmt.Errorf("rendering header image: %w", err)
			return result
		}
		result.ImagePath = imagePath
		imageSitePath = sitePath
	}

	p.logger.Debug("→ Saving", zap.String("file", filename))
	if err := p.writer.Write(filename, article, imageSitePath); err != nil {
		result.Status = StatusError
		result.Error = fmt.Errorf("saving post: %w", err)
		return result
	}

	result.Status = StatusSuccess
	return result
}

// Summarize counts results per status
func Summarize(results []ProcessingResult) (succeeded, skipped, failed int) {
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			succeeded++
		case StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	return succeeded, skipped, failed
}
