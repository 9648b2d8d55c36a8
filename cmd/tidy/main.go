package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"
)

var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)

type postMeta struct {
	Title  string `yaml:"title"`
	Date   string `yaml:"date"`
	Author string `yaml:"author"`
	Image  string `yaml:"image"`
}

// Problem is one defect found in a post
type Problem struct {
	Path    string
	Message string
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if len(os.Args) < 3 {
		log.Fatal("Usage: tidy <verify|prune-images> <posts-directory> [images-directory|site-root]")
	}

	command := os.Args[1]
	postsDir := os.Args[2]
	extra := "."
	if len(os.Args) > 3 {
		extra = os.Args[3]
	}

	switch command {
	case "verify":
		problems, err := verifyPosts(postsDir, extra)
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range problems {
			fmt.Printf("  %s: %s\n", p.Path, p.Message)
		}
		if len(problems) > 0 {
			log.Fatalf("%d problem(s) found", len(problems))
		}
		log.Infof("All posts in %s look fine", postsDir)
	case "prune-images":
		if len(os.Args) < 4 {
			log.Fatal("Usage: tidy prune-images <posts-directory> <images-directory>")
		}
		removed, err := pruneImages(postsDir, extra, bufio.NewReader(os.Stdin), os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("\nRemoved %d unreferenced image(s)\n", removed)
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// verifyPosts checks that every post has a title, a date matching its
// filename and, when it references a header image, that the image exists
// under siteRoot
func verifyPosts(postsDir, siteRoot string) ([]Problem, error) {
	var problems []Problem

	err := walkPosts(postsDir, func(path string, meta postMeta) {
		name := filepath.Base(path)
		if strings.TrimSpace(meta.Title) == "" {
			problems = append(problems, Problem{path, "missing title"})
		}
		if strings.TrimSpace(meta.Date) == "" {
			problems = append(problems, Problem{path, "missing date"})
		} else if m := datePrefix.FindStringSubmatch(name); m != nil && !strings.HasPrefix(meta.Date, m[1]) {
			problems = append(problems, Problem{path, fmt.Sprintf("date %s does not match filename", meta.Date)})
		}
		if meta.Image != "" {
			image := filepath.Join(siteRoot, filepath.FromSlash(strings.TrimPrefix(meta.Image, "/")))
			if _, err := os.Stat(image); err != nil {
				problems = append(problems, Problem{path, fmt.Sprintf("image %s not found", meta.Image)})
			}
		}
	}, func(path string, err error) {
		problems = append(problems, Problem{path, err.Error()})
	})

	return problems, err
}

// pruneImages removes images in imagesDir that no post references, asking
// for confirmation on each
func pruneImages(postsDir, imagesDir string, reader *bufio.Reader, out io.Writer) (int, error) {
	referenced, err := referencedImages(postsDir)
	if err != nil {
		return 0, err
	}

	orphans, err := findOrphans(imagesDir, referenced)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range orphans {
		if !confirmDelete(reader, out, path) {
			fmt.Fprintf(out, "  SKIP: %s\n", filepath.Base(path))
			continue
		}
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(out, "  ERROR: %s: %v\n", filepath.Base(path), err)
			continue
		}
		removed++
		fmt.Fprintf(out, "  REMOVED: %s\n", filepath.Base(path))
	}
	return removed, nil
}

// referencedImages returns the base names of all images named in front matter
func referencedImages(postsDir string) (map[string]bool, error) {
	referenced := make(map[string]bool)
	err := walkPosts(postsDir, func(_ string, meta postMeta) {
		if meta.Image != "" {
			referenced[filepath.Base(filepath.FromSlash(meta.Image))] = true
		}
	}, nil)
	return referenced, err
}

func findOrphans(imagesDir string, referenced map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("reading images directory: %w", err)
	}

	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}
		orphans = append(orphans, filepath.Join(imagesDir, entry.Name()))
	}
	sort.Strings(orphans)
	return orphans, nil
}

func walkPosts(postsDir string, visit func(string, postMeta), onError func(string, error)) error {
	err := filepath.WalkDir(postsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on errors
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			return nil
		}
		defer f.Close()

		var meta postMeta
		if _, err := frontmatter.Parse(f, &meta); err != nil {
			if onError != nil {
				onError(path, fmt.Errorf("parse frontmatter: %w", err))
			}
			return nil
		}
		visit(path, meta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}
	return nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
