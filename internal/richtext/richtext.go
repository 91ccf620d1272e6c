// Package richtext renders and converts comment text between the plain,
// Markdown and HTML text types.
package richtext

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy

	// Characters with Markdown meaning. Only escaped where they could start
	// or delimit markup.
	escapeRe   = regexp.MustCompile("([\\\\`*_{}\\[\\]()#+!>|~])")
	listRe     = regexp.MustCompile(`(?m)^(\s*)([-.])`)
	orderedRe  = regexp.MustCompile(`(?m)^(\s*\d+)\.`)
	unescapeRe = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!>|~])")
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// EscapeMarkdown escapes plain text so it renders literally as Markdown.
func EscapeMarkdown(text string) string {
	text = escapeRe.ReplaceAllString(text, `\$1`)
	text = listRe.ReplaceAllString(text, `$1\$2`)
	return orderedRe.ReplaceAllString(text, `$1\.`)
}

// UnescapeMarkdown reverses EscapeMarkdown.
func UnescapeMarkdown(text string) string {
	return unescapeRe.ReplaceAllString(text, `$1`)
}

// PlainToHTML renders plain text as escaped HTML, one line per <br>.
func PlainToHTML(text string) string {
	if text == "" {
		return ""
	}
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br />\n")
}

// Normalize converts stored comment text into the requested output type.
// An empty force keeps the stored type.
func Normalize(text string, richText bool, force model.TextType) (string, model.TextType) {
	stored := model.TextTypePlain
	if richText {
		stored = model.TextTypeMarkdown
	}

	switch force {
	case "", stored:
		return text, stored
	case model.TextTypeHTML:
		if richText {
			return strings.TrimSpace(RenderMarkdown(text)), model.TextTypeHTML
		}
		return PlainToHTML(text), model.TextTypeHTML
	case model.TextTypeMarkdown:
		return EscapeMarkdown(text), model.TextTypeMarkdown
	case model.TextTypePlain:
		return UnescapeMarkdown(text), model.TextTypePlain
	default:
		return text, stored
	}
}
