package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile   string
	apiKey       string
	templatePath string
	fallbackPath string
	promptPath   string
	debugMode    bool
	skipExisting bool
	rotateTopics bool
)

var rootCmd = &cobra.Command{
	Use:   "post-writer",
	Short: "Generate markdown blog posts with header images",
	Long: `Picks a topic, asks a text-generation API for an article (falling back to a
built-in template when no API key is configured or the call fails), renders
a header image and writes a markdown post with front matter.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate posts_per_run posts on random topics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd.Context(), args, runOptions{rotate: rotateTopics})
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily [config-file]",
	Short: "Generate one post on the topic of the day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd.Context(), args, runOptions{rotate: true, count: 1})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [config-file]",
	Short: "Generate posts, then commit and push them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd.Context(), args, runOptions{rotate: rotateTopics, publish: true})
	},
}

var initCmd = &cobra.Command{
	Use:   "init [config-file]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath(args)
		written, err := ensureConfigExists(path)
		if err != nil {
			return err
		}
		if written {
			fmt.Printf("Wrote %s. Edit it, then run \"post-writer generate\".\n", path)
		} else {
			fmt.Printf("%s already exists, leaving it untouched.\n", path)
		}
		return nil
	},
}

type runOptions struct {
	rotate  bool
	count   int
	publish bool
}

func runPosts(ctx context.Context, args []string, opts runOptions) error {
	logger, err := newLogger(debugMode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	settings, err := LoadSettings(configPath(args))
	if err != nil {
		return err
	}

	config := NewConfig(settings, buildOverrides())
	config.ResolveAPIKey(apiKey, os.Getenv)

	provider, err := NewProvider(ctx, config)
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	generator, err := NewGenerator(config, provider, logger)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	pipeline, err := NewPipeline(config, generator, logger)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	pipeline.SetSkipExisting(skipExisting)

	var selector TopicSelector = NewRandomSelector(time.Now().UnixNano())
	if opts.rotate {
		selector = RotationSelector{}
	}

	count := opts.count
	if count == 0 {
		count = settings.PostsPerRun
	}

	results := pipeline.Run(ctx, selector, count)
	succeeded, skipped, failed := Summarize(results)
	logger.Info(fmt.Sprintf("Done. Generated %d post(s).", succeeded), zap.Int("skipped", skipped), zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d post(s) failed", failed, len(results))
	}

	if opts.publish {
		publisher := NewPublisher(NewGitCLI(settings.Publish.RepoDir), settings, logger)
		if err := publisher.Publish(ctx); err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		logger.Info("Publish step finished.")
	}

	return nil
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return configFile
}

func buildOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{}
	if templatePath != "" {
		overrides.TemplatePath = &templatePath
	}
	if fallbackPath != "" {
		overrides.FallbackTemplatePath = &fallbackPath
	}
	if promptPath != "" {
		overrides.PromptPath = &promptPath
	}
	return overrides
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigFile, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{generateCmd, dailyCmd, publishCmd} {
		cmd.Flags().StringVar(&apiKey, "api-key", "", "Text-generation API key (overrides environment and config)")
		cmd.Flags().StringVar(&templatePath, "template", "", "Path to custom post template file")
		cmd.Flags().StringVar(&fallbackPath, "fallback-template", "", "Path to custom fallback article template file")
		cmd.Flags().StringVar(&promptPath, "prompt", "", "Path to custom generation prompt file")
		cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Keep posts that already exist instead of overwriting them")
	}
	generateCmd.Flags().BoolVar(&rotateTopics, "rotate", false, "Pick the topic of the day instead of a random one")
	publishCmd.Flags().BoolVar(&rotateTopics, "rotate", false, "Pick the topic of the day instead of a random one")

	rootCmd.AddCommand(generateCmd, dailyCmd, publishCmd, initCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
