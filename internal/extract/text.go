package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// TextPage is the plain text of one page.
type TextPage struct {
	PageNumber int      `json:"page_number"`
	LineCount  int      `json:"line_count"`
	Content    string   `json:"content"`
	Lines      []string `json:"lines"`
}

// TextDocument is the paginated plain-text form of a document, used when no
// usable table structure was found.
type TextDocument struct {
	DocumentType string     `json:"document_type"`
	Pages        []TextPage `json:"pages"`
}

// TextExtractor produces TextDocuments.
type TextExtractor struct {
	opener Opener
}

// NewTextExtractor returns an extractor backed by opener, or MuPDF when nil.
func NewTextExtractor(opener Opener) *TextExtractor {
	if opener == nil {
		opener = FitzOpener{}
	}
	return &TextExtractor{opener: opener}
}

// Structured extracts the text of every page. Blank pages are omitted.
func (e *TextExtractor) Structured(ctx context.Context, path string) (TextDocument, error) {
	out := TextDocument{DocumentType: "text", Pages: []TextPage{}}
	doc, err := e.opener.Open(path)
	if err != nil {
		return out, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("failed to extract text from page")
			continue
		}
		if page, ok := textPage(i+1, text); ok {
			out.Pages = append(out.Pages, page)
		}
	}
	return out, nil
}

func textPage(number int, text string) (TextPage, bool) {
	content := strings.TrimSpace(text)
	if content == "" {
		return TextPage{}, false
	}
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return TextPage{PageNumber: number, LineCount: len(lines), Content: content, Lines: lines}, true
}
