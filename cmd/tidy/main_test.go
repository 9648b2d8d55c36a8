package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestVerifyPosts(t *testing.T) {
	root := t.TempDir()
	posts := filepath.Join(root, "docs")

	writeFile(t, filepath.Join(root, "images", "2026-10-17-ok.jpg"), "jpg")
	writeFile(t, filepath.Join(posts, "2026-10-17-ok.md"),
		"---\ntitle: \"Fine\"\ndate: \"2026-10-17\"\nimage: /images/2026-10-17-ok.jpg\n---\n\nBody\n")
	writeFile(t, filepath.Join(posts, "2026-10-17-untitled.md"),
		"---\ndate: \"2026-10-17\"\n---\n\nBody\n")
	writeFile(t, filepath.Join(posts, "2026-10-17-wrong-date.md"),
		"---\ntitle: Wrong\ndate: \"2026-10-16\"\n---\n\nBody\n")
	writeFile(t, filepath.Join(posts, "2026-10-17-no-image.md"),
		"---\ntitle: Missing image\ndate: \"2026-10-17\"\nimage: /images/gone.jpg\n---\n")
	writeFile(t, filepath.Join(posts, "notes.txt"), "ignored")

	problems, err := verifyPosts(posts, root)
	require.NoError(t, err)

	messages := map[string]string{}
	for _, p := range problems {
		messages[filepath.Base(p.Path)] = p.Message
	}

	assert.Len(t, problems, 3)
	assert.Equal(t, "missing title", messages["2026-10-17-untitled.md"])
	assert.Contains(t, messages["2026-10-17-wrong-date.md"], "does not match filename")
	assert.Contains(t, messages["2026-10-17-no-image.md"], "not found")
	assert.NotContains(t, messages, "2026-10-17-ok.md")
}

func TestPruneImages(t *testing.T) {
	root := t.TempDir()
	posts := filepath.Join(root, "docs")
	images := filepath.Join(root, "images")

	writeFile(t, filepath.Join(posts, "2026-10-17-a.md"),
		"---\ntitle: A\ndate: \"2026-10-17\"\nimage: /images/a.jpg\n---\n")
	writeFile(t, filepath.Join(images, "a.jpg"), "keep")
	writeFile(t, filepath.Join(images, "b.jpg"), "orphan")
	writeFile(t, filepath.Join(images, "c.jpg"), "orphan")

	// b: invalid answer then yes, c: default no
	input := bufio.NewReader(strings.NewReader("maybe\ny\n\n"))
	var out bytes.Buffer

	removed, err := pruneImages(posts, images, input, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.FileExists(t, filepath.Join(images, "a.jpg"))
	assert.NoFileExists(t, filepath.Join(images, "b.jpg"))
	assert.FileExists(t, filepath.Join(images, "c.jpg"))
	assert.Contains(t, out.String(), "Please enter y or n.")
	assert.Contains(t, out.String(), "SKIP: c.jpg")
}

func TestFindOrphansMissingDir(t *testing.T) {
	_, err := findOrphans(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
