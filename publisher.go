package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// VersionControl is the narrow set of repository operations the publish step needs
type VersionControl interface {
	Configure(ctx context.Context, name, email string) error
	Stage(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// GitCLI runs the git binary inside a repository directory
type GitCLI struct {
	Dir string
}

// NewGitCLI creates a GitCLI rooted at dir
func NewGitCLI(dir string) *GitCLI {
	return &GitCLI{Dir: dir}
}

// Configure sets the repository-local commit identity
func (g *GitCLI) Configure(ctx context.Context, name, email string) error {
	if err := g.run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	return g.run(ctx, "config", "user.email", email)
}

// Stage adds paths to the index
func (g *GitCLI) Stage(ctx context.Context, paths ...string) error {
	return g.run(ctx, append([]string{"add", "--"}, paths...)...)
}

// Commit records the index with message
func (g *GitCLI) Commit(ctx context.Context, message string) error {
	return g.run(ctx, "commit", "-m", message)
}

// Push pushes the current branch to its upstream
func (g *GitCLI) Push(ctx context.Context) error {
	return g.run(ctx, "push")
}

func (g *GitCLI) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(output)))
	}
	return nil
}

// Publisher commits generated posts and pushes them
type Publisher struct {
	vcs      VersionControl
	settings *Settings
	logger   *zap.Logger
}

// NewPublisher creates a Publisher using vcs
func NewPublisher(vcs VersionControl, settings *Settings, logger *zap.Logger) *Publisher {
	return &Publisher{vcs: vcs, settings: settings, logger: logger}
}

// Publish configures the commit identity, stages the output directories,
// commits and pushes. Every step but the push must succeed; a failed push
// is logged and Publish still returns nil.
func (p *Publisher) Publish(ctx context.Context) error {
	s := p.settings

	p.logger.Info("→ Publishing", zap.String("repo", s.Publish.RepoDir))
	if err := p.vcs.Configure(ctx, s.Publish.UserName, s.Publish.UserEmail); err != nil {
		return fmt.Errorf("configuring commit identity: %w", err)
	}

	paths := []string{absPath(s.OutputDir)}
	if s.ImagesEnabled() && fileExists(s.ImagesDir) {
		paths = append(paths, absPath(s.ImagesDir))
	}
	if err := p.vcs.Stage(ctx, paths...); err != nil {
		return fmt.Errorf("staging %s: %w", strings.Join(paths, ", "), err)
	}

	if err := p.vcs.Commit(ctx, s.Publish.CommitMessage); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	if err := p.vcs.Push(ctx); err != nil {
		p.logger.Warn("Push likely failed (maybe no remote or no changes)", zap.Error(err))
		return nil
	}

	p.logger.Info("✓ Published")
	return nil
}

// absPath resolves dir against the working directory the posts were written
// from, since git runs inside the repository directory
func absPath(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
