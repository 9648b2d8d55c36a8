package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, config *Config, provider Provider) (*Pipeline, *Generator) {
	t.Helper()
	generator, err := NewGenerator(config, provider, zap.NewNop())
	require.NoError(t, err)

	pipeline, err := NewPipeline(config, generator, zap.NewNop())
	require.NoError(t, err)
	pipeline.SetClock(func() time.Time { return fixedNow })
	return pipeline, generator
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readPost(t *testing.T, path string) (FrontMatter, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var fm FrontMatter
	rest, err := frontmatter.Parse(f, &fm)
	require.NoError(t, err)
	return fm, strings.TrimSpace(string(rest))
}

func TestPipelineWithoutCredential(t *testing.T) {
	config := testConfig(t)
	config.Settings.PostsPerRun = 1
	pipeline, generator := newTestPipeline(t, config, nil)

	results := pipeline.Run(context.Background(), NewRandomSelector(42), config.Settings.PostsPerRun)
	require.Len(t, results, 1)
	result := results[0]
	require.Equal(t, StatusSuccess, result.Status, "error: %v", result.Error)
	assert.Equal(t, OutcomeNoCredential, result.Outcome)

	posts := listFiles(t, config.Settings.OutputDir)
	images := listFiles(t, config.Settings.ImagesDir)
	require.Len(t, posts, 1)
	require.Len(t, images, 1)

	assert.True(t, strings.HasPrefix(posts[0], "2026-10-17-"), posts[0])
	assert.True(t, strings.HasSuffix(posts[0], ".md"))
	assert.Equal(t, strings.TrimSuffix(posts[0], ".md")+".jpg", images[0])

	fm, body := readPost(t, result.Filename)
	assert.Equal(t, generator.Fallback(result.Topic), body)
	assert.NotEmpty(t, fm.Title)
	assert.Equal(t, "2026-10-17", fm.Date)
	assert.Equal(t, "/images/"+images[0], fm.Image)
	assert.Contains(t, DefaultTopics, result.Topic)
}

func TestPipelineNetworkFailureStillWrites(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	config := testConfig(t)
	provider := NewHuggingFaceProvider("secret", url, 100, 0.7, &http.Client{})
	pipeline, generator := newTestPipeline(t, config, provider)

	result := pipeline.ProduceOne(context.Background(), "posture tips")
	require.Equal(t, StatusSuccess, result.Status, "error: %v", result.Error)
	assert.Equal(t, OutcomeNetworkError, result.Outcome)

	fm, body := readPost(t, result.Filename)
	assert.Equal(t, "Posture Tips: Quick Guide", fm.Title)
	assert.True(t, strings.HasPrefix(body, generator.Fallback("posture tips")))
	assert.Contains(t, body, "> Note: generation failed (network_error)")
	assert.FileExists(t, result.ImagePath)
}

func TestPipelineRotationUsesTopicOfDay(t *testing.T) {
	config := testConfig(t)
	config.Settings.Topics = []string{"alpha", "beta", "gamma"}
	pipeline, _ := newTestPipeline(t, config, nil)

	results := pipeline.Run(context.Background(), RotationSelector{}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, config.Settings.Topics[RotationIndex(fixedNow, 3)], results[0].Topic)
}

func TestPipelineRotationFollowsArtifactDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	topics := []string{"alpha", "beta", "gamma"}

	// Both instants fall on 2026-10-17 in UTC; the second is already
	// 2026-10-18 in Tokyo.
	clocks := []time.Time{
		time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC).In(tokyo),
		time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC).In(tokyo),
	}

	config := testConfig(t)
	config.Settings.Topics = topics
	expected := topics[RotationIndex(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), len(topics))]

	for _, now := range clocks {
		pipeline, _ := newTestPipeline(t, config, nil)
		pipeline.SetClock(func() time.Time { return now })

		results := pipeline.Run(context.Background(), RotationSelector{}, 1)
		require.Len(t, results, 1)
		require.Equal(t, StatusSuccess, results[0].Status, "error: %v", results[0].Error)

		fm, _ := readPost(t, results[0].Filename)
		assert.Equal(t, "2026-10-17", fm.Date)
		assert.Equal(t, expected, results[0].Topic, "clock %s", now)
	}
}

func TestPipelineExistingPost(t *testing.T) {
	tests := []struct {
		name         string
		skipExisting bool
		status       ProcessingStatus
		keepsOld     bool
	}{
		{"overwrite by default", false, StatusSuccess, false},
		{"skip existing", true, StatusSkipped, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t)
			pipeline, _ := newTestPipeline(t, config, nil)
			pipeline.SetSkipExisting(tt.skipExisting)

			first := pipeline.ProduceOne(context.Background(), "desk setup")
			require.Equal(t, StatusSuccess, first.Status)
			require.NoError(t, os.WriteFile(first.Filename, []byte("old content"), 0644))

			second := pipeline.ProduceOne(context.Background(), "desk setup")
			assert.Equal(t, tt.status, second.Status)
			assert.Equal(t, first.Filename, second.Filename)

			content, err := os.ReadFile(first.Filename)
			require.NoError(t, err)
			assert.Equal(t, tt.keepsOld, string(content) == "old content")
			assert.Len(t, listFiles(t, config.Settings.OutputDir), 1)
		})
	}
}

func TestPipelineImagesDisabled(t *testing.T) {
	config := testConfig(t)
	disabled := false
	config.Settings.Images = &disabled
	pipeline, _ := newTestPipeline(t, config, nil)

	result := pipeline.ProduceOne(context.Background(), "desk setup")
	require.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.ImagePath)
	assert.Empty(t, listFiles(t, config.Settings.ImagesDir))

	fm, _ := readPost(t, result.Filename)
	assert.Empty(t, fm.Image)
}

func TestPipelineWriteFailure(t *testing.T) {
	config := testConfig(t)
	// A regular file where the output directory should be
	require.NoError(t, os.WriteFile(config.Settings.OutputDir, []byte("x"), 0644))
	disabled := false
	config.Settings.Images = &disabled
	pipeline, _ := newTestPipeline(t, config, nil)

	results := pipeline.Run(context.Background(), RotationSelector{}, 2)
	succeeded, skipped, failed := Summarize(results)
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 2, failed)
	assert.ErrorContains(t, results[0].Error, "saving post")
}

func TestSummarize(t *testing.T) {
	results := []ProcessingResult{
		{Status: StatusSuccess},
		{Status: StatusSuccess},
		{Status: StatusSkipped},
		{Status: StatusError},
	}
	succeeded, skipped, failed := Summarize(results)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
}
