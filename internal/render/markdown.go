package render

import (
	"bytes"
	"strings"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown is a Processor that renders response text as Markdown. Bare URLs are linked by goldmark's
// Linkify extension, single line breaks become <br>, and raw HTML passes through untouched, matching the
// trust model of ProcessText. Citation markers are substituted in the rendered markup.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a Markdown processor.
func NewMarkdown() Markdown {
	return Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithUnsafe(),
			),
		),
	}
}

// Process implements Processor. If the Markdown conversion fails, it falls back to ProcessText.
func (m Markdown) Process(text string, citations []models.Citation) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return ProcessText(text, citations)
	}
	return SubstituteCitations(strings.TrimSpace(buf.String()), citations)
}
