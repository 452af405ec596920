// Package render turns raw response text into the widget's markup and markup into terminal text.
//
// Raw server text is trusted: ProcessText does not escape HTML. Re-rendering always starts from raw text,
// never from earlier markup, so substitutions are applied exactly once.
package render

import (
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	xhtml "golang.org/x/net/html"
)

// Processor converts raw response text into markup, resolving citation markers against citations.
type Processor interface {
	Process(text string, citations []models.Citation) string
}

// Plain is the default Processor. It applies ProcessText.
type Plain struct{}

// CitationNotFound is the annotation text used when a marker has no matching citation.
const CitationNotFound = "Citation not found"

var (
	urlPattern      = regexp.MustCompile(`(https?://[^\s]+)`)
	citationPattern = regexp.MustCompile(`\[(\d+)\]`)
	// Citation markers written directly after a URL, with any closing punctuation.
	trailingMarkers = regexp.MustCompile(`(?:\[\d+\])+[.,;:!?]*$`)
)

// Process implements Processor.
func (Plain) Process(text string, citations []models.Citation) string {
	return ProcessText(text, citations)
}

// ProcessText converts bare URLs into links and line breaks into <br>, then, when citations is non-empty,
// rewrites [n] markers into citation annotations. URLs are linked before line breaks are converted so a
// link never absorbs the following <br>. Markers directly after a URL stay outside the link.
func ProcessText(text string, citations []models.Citation) string {
	processed := urlPattern.ReplaceAllStringFunc(text, linkURL)
	processed = strings.ReplaceAll(processed, "\n", "<br>")
	return SubstituteCitations(processed, citations)
}

func linkURL(url string) string {
	var trailing string
	if loc := trailingMarkers.FindStringIndex(url); loc != nil && !strings.HasSuffix(url[:loc[0]], "//") {
		url, trailing = url[:loc[0]], url[loc[0]:]
	}
	return `<a href="` + url + `" target="_blank" rel="noopener noreferrer">` + url + `</a>` + trailing
}

// SubstituteCitations rewrites [n] markers in the text of markup into annotation elements carrying the
// text of citation n, or CitationNotFound. Tags and their attributes are copied unchanged. It returns
// markup unchanged when citations is empty.
func SubstituteCitations(markup string, citations []models.Citation) string {
	if len(citations) == 0 {
		return markup
	}

	var sb strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() != io.EOF {
				// The tokenizer only fails on the reader, which cannot happen for a string.
				return markup
			}
			return sb.String()
		}
		raw := string(z.Raw())
		if tt != xhtml.TextToken {
			sb.WriteString(raw)
			continue
		}
		sb.WriteString(citationPattern.ReplaceAllStringFunc(raw, func(marker string) string {
			n, err := strconv.Atoi(marker[1 : len(marker)-1])
			if err != nil {
				return marker
			}
			return citationAnnotation(n, citations)
		}))
	}
}

func citationAnnotation(n int, citations []models.Citation) string {
	text := CitationNotFound
	if c, ok := models.FindCitation(citations, n); ok {
		text = c.Text
	}
	// Attribute values cannot hold line breaks that survive the <br> pass.
	text = strings.ReplaceAll(text, "\n", " ")

	var sb strings.Builder
	sb.WriteString(`<sup class="citation" data-citation="`)
	sb.WriteString(strconv.Itoa(n))
	sb.WriteString(`" title="`)
	sb.WriteString(html.EscapeString(text))
	sb.WriteString(`">[`)
	sb.WriteString(strconv.Itoa(n))
	sb.WriteString(`]</sup>`)
	return sb.String()
}
