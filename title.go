package main

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxTitleWords = 8

var markdownParser = goldmark.New().Parser()

// ExtractTitle returns the text of the heading that opens body, or "" when
// the first block is not a heading
func ExtractTitle(body string) string {
	source := []byte(body)
	doc := markdownParser.Parse(text.NewReader(source))

	heading, ok := doc.FirstChild().(*ast.Heading)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(heading.Text(source)))
}

// DeriveTitle title-cases topic and keeps at most eight words
func DeriveTitle(topic string) string {
	words := strings.Fields(topic)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// TitleFor picks the article title: the generated heading if there is one,
// otherwise the title derived from the topic
func TitleFor(topic, body string) string {
	if title := ExtractTitle(body); title != "" {
		return title
	}
	return DeriveTitle(topic)
}
