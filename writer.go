package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

const (
	maxSlugLength = 80
	dateLayout    = "2006-01-02"
	amazonSearch  = "https://www.amazon.com/s"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// ArtifactWriter assembles front matter and body into markdown files
type ArtifactWriter struct {
	settings *Settings
	tmpl     *template.Template
}

// NewArtifactWriter parses the post template from config
func NewArtifactWriter(config *Config) (*ArtifactWriter, error) {
	tmpl, err := template.New("post").Parse(config.GetTemplate())
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &ArtifactWriter{settings: config.Settings, tmpl: tmpl}, nil
}

// postView is the data the post template is executed with
type postView struct {
	FrontMatter   string
	Body          string
	AffiliateLink string
	Article       *Article
}

// BaseName returns "<date>-<slug>-<hash>" shared by the markdown and image files
func BaseName(title, date string) string {
	return fmt.Sprintf("%s-%s-%s", date, GenerateSlug(title), titleHash(title, date))
}

// MarkdownPath returns the output path of the post for title on date
func (w *ArtifactWriter) MarkdownPath(title, date string) string {
	return filepath.Join(w.settings.OutputDir, BaseName(title, date)+".md")
}

// ImagePath returns the file path of the header image and its site path
func (w *ArtifactWriter) ImagePath(title, date string) (string, string) {
	name := BaseName(title, date) + ".jpg"
	return filepath.Join(w.settings.ImagesDir, name), "/" + filepath.ToSlash(filepath.Join(filepath.Base(w.settings.ImagesDir), name))
}

// Render produces the full markdown document for article
func (w *ArtifactWriter) Render(article *Article, imageSitePath string) ([]byte, error) {
	fm := FrontMatter{
		Title:      article.Title,
		Date:       article.Date.Format(dateLayout),
		Author:     w.settings.AuthorName,
		Categories: []string{w.settings.DefaultCategory},
		Image:      imageSitePath,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}

	var buf bytes.Buffer
	err = w.tmpl.Execute(&buf, postView{
		FrontMatter:   string(header),
		Body:          strings.TrimSpace(article.Body),
		AffiliateLink: AffiliateLink(article.Topic, w.settings.AmazonAffiliateTag),
		Article:       article,
	})
	if err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders article and overwrites filename with it
func (w *ArtifactWriter) Write(filename string, article *Article, imageSitePath string) error {
	content, err := w.Render(article, imageSitePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	return os.WriteFile(filename, content, 0644)
}

// AffiliateLink builds an Amazon search link for topic, or "" without a tag
func AffiliateLink(topic, tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.TrimSpace(topic) == "" {
		return ""
	}
	q := url.Values{}
	q.Set("k", topic)
	q.Set("tag", tag)
	return amazonSearch + "?" + q.Encode()
}

// GenerateSlug normalizes title to [a-z0-9-], at most maxSlugLength chars
func GenerateSlug(title string) string {
	s := slug.Make(title)
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "post"
	}
	return s
}

// titleHash disambiguates titles whose slugs collide after normalization
func titleHash(title, date string) string {
	h := sha256.Sum256([]byte(title + "\x00" + date))
	return fmt.Sprintf("%x", h)[:8]
}

// fileExists checks if a file already exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
