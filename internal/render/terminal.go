package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
)

// Styles controls how Terminal decorates links and citation annotations.
type Styles struct {
	Link     lipgloss.Style
	Citation lipgloss.Style
}

// DefaultStyles returns the styles used by the interactive widget.
func DefaultStyles() Styles {
	return Styles{
		Link:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		Citation: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true),
	}
}

// PlainStyles returns styles that add no decoration.
func PlainStyles() Styles {
	return Styles{
		Link:     lipgloss.NewStyle(),
		Citation: lipgloss.NewStyle(),
	}
}

type citationState struct {
	number string
	title  string
}

// Terminal converts widget markup into terminal text. Line breaks and paragraph ends become newlines,
// links are styled (followed by their target when it differs from the link text), citation annotations
// become "[n: text]" and entities are unescaped. Unknown tags are dropped and their text kept.
func Terminal(markup string, styles Styles) string {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		sb       strings.Builder
		link     *strings.Builder
		href     string
		citation *citationState
	)

	write := func(s string) {
		if link != nil {
			link.WriteString(s)
			return
		}
		sb.WriteString(s)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// The tokenizer only stops at EOF for string input.
			return strings.TrimRight(sb.String(), "\n")
		case html.TextToken:
			if citation != nil {
				continue
			}
			write(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := readAttrs(z, hasAttr)
			switch string(name) {
			case "br":
				write("\n")
			case "li":
				write("\n- ")
			case "a":
				link = &strings.Builder{}
				href = attrs["href"]
			case "sup":
				if attrs["class"] == "citation" {
					citation = &citationState{number: attrs["data-citation"], title: attrs["title"]}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "ul", "ol", "pre", "blockquote":
				write("\n\n")
			case "a":
				if link == nil {
					continue
				}
				text := link.String()
				link = nil
				sb.WriteString(styles.Link.Render(text))
				if href != "" && href != text {
					sb.WriteString(" (" + href + ")")
				}
			case "sup":
				if citation == nil {
					continue
				}
				write(styles.Citation.Render("[" + citation.number + ": " + citation.title + "]"))
				citation = nil
			}
		}
	}
}

func readAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}
