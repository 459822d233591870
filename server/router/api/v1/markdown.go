package v1

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownService renders answers to HTML. Raw HTML in answers is escaped.
type MarkdownService struct {
	md goldmark.Markdown
}

// NewMarkdownService creates a renderer with GitHub-flavoured tables and hard line breaks.
func NewMarkdownService() *MarkdownService {
	return &MarkdownService{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// RenderHTML converts markdown to HTML.
func (m *MarkdownService) RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
