package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftables/internal/tables"
)

// Layout is what the grid extractor found in a document.
type Layout struct {
	Pages  int
	Tables []tables.RawTable
	// Lines holds every text line in reading order, used when no table
	// was detected.
	Lines []string
}

// RawTables returns the detected tables, or a single one-column table built
// from the text lines when none was detected.
func (l *Layout) RawTables() []tables.RawTable {
	if len(l.Tables) > 0 {
		return l.Tables
	}
	if t := singleColumn(l.Lines); len(t) > 0 {
		return []tables.RawTable{t}
	}
	return nil
}

// GridExtractor reconstructs tables from positioned page text.
type GridExtractor struct{}

func NewGridExtractor() *GridExtractor { return &GridExtractor{} }

// Extract reads every page of the PDF at path. Pages whose content stream
// cannot be decoded are skipped with a warning.
func (g *GridExtractor) Extract(ctx context.Context, path string) (*Layout, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	out := &Layout{Pages: r.NumPage()}
	for i := 1; i <= out.Pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := pageLines(r, i)
		if err != nil {
			log.Warn().Err(err).Str("pdf", path).Int("page", i).Msg("skipping page")
			continue
		}
		out.Tables = append(out.Tables, tablesFromLines(lines)...)
		for _, l := range lines {
			out.Lines = append(out.Lines, l.text())
		}
	}
	log.Debug().Str("pdf", path).Int("pages", out.Pages).Int("tables", len(out.Tables)).Msg("grid extraction done")
	return out, nil
}

func pageLines(r *pdf.Reader, num int) (lines []line, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decode page %d: %v", num, rec)
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return nil, nil
	}
	texts := p.Content().Text
	glyphs := make([]Glyph, len(texts))
	for i, t := range texts {
		glyphs[i] = Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S}
	}
	return buildLines(glyphs), nil
}
