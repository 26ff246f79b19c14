package utils

import (
	"bytes"
	stdhtml "html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// imported posts carry HTML; policy sanitizes the output
			html.WithUnsafe(),
		),
	)
	policy = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts blog Markdown to sanitized HTML.
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}

	sanitized := policy.SanitizeBytes(buf.Bytes())
	return EnhanceHTMLContent(string(sanitized))
}

// StripTags removes all markup from user supplied plain text fields.
func StripTags(s string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(strict.Sanitize(s)))
}

// Excerpt returns the first n runes of the Markdown source with markup
// characters removed.
func Excerpt(source string, n int) string {
	text := StripTags(string(RenderMarkdown(source)))
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
