package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftables/internal/extract"
	"github.com/local/pdftables/internal/tables"
)

// Format is an output file format.
type Format string

const (
	CSV   Format = "csv"
	Excel Format = "excel"
	JSON  Format = "json"
	Text  Format = "text"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Excel, JSON, Text:
		return f, nil
	case "xlsx":
		return Excel, nil
	case "txt":
		return Text, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Ext is the file extension written for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case Excel:
		return "xlsx"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// TextSource supplies the plain-text rendition of the document. It is only
// called when no usable table structure was found.
type TextSource func(ctx context.Context) (extract.TextDocument, error)

// Input is the extracted content of one document.
type Input struct {
	Tables []tables.RawTable
	Text   TextSource
}

// Options select the output.
type Options struct {
	Format    Format
	Merge     bool
	OutputDir string
	// BaseName is the output file stem, usually the input name without
	// extension.
	BaseName string
}

// Result lists what was written.
type Result struct {
	Files    []string
	Tables   int
	Records  int
	Fallback bool
}

// Converter renders documents through a shared table analyzer.
type Converter struct {
	analyzer *tables.Analyzer
}

func New(a *tables.Analyzer) *Converter {
	if a == nil {
		a = tables.New(tables.DefaultOptions())
	}
	return &Converter{analyzer: a}
}

// section is one output table: structured when Result is set, raw rows
// otherwise.
type section struct {
	Number int
	Title  string
	Header []string
	Rows   [][]string
	Result *tables.TableResult
}

func fromResult(r tables.TableResult) section {
	rows := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		rows[i] = rec.Values
	}
	return section{Number: r.TableNumber, Title: r.Title, Header: r.Headers, Rows: rows, Result: &r}
}

func rawSection(number int, t tables.RawTable) (section, bool) {
	var rows [][]string
	for _, row := range t {
		cells := make([]string, len(row))
		blank := true
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
			if cells[i] != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, cells)
		}
	}
	return section{Number: number, Rows: rows}, len(rows) > 0
}

// plan decides what to write. A nil slice means the plain-text fallback.
func (c *Converter) plan(ts []tables.RawTable, merge bool) []section {
	if !c.analyzer.Valid(ts) {
		return nil
	}
	if merge {
		r, ok := c.analyzer.Merge(ts)
		if !ok {
			return nil
		}
		return []section{fromResult(r)}
	}
	var (
		out        []section
		structured bool
	)
	for i, t := range ts {
		if r, ok := c.analyzer.Table(i+1, t); ok {
			out = append(out, fromResult(r))
			structured = true
			continue
		}
		if s, ok := rawSection(i+1, t); ok {
			out = append(out, s)
		}
	}
	if !structured {
		return nil
	}
	return out
}

// Convert writes in to opts.OutputDir and returns the written paths.
func (c *Converter) Convert(ctx context.Context, in Input, opts Options) (Result, error) {
	if opts.BaseName == "" {
		opts.BaseName = "output"
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	w, err := writerFor(opts.Format)
	if err != nil {
		return Result{}, err
	}

	sections := c.plan(in.Tables, opts.Merge)
	if sections == nil {
		if in.Text == nil {
			return Result{}, fmt.Errorf("no table structure found and no text source")
		}
		doc, err := in.Text(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("text fallback: %w", err)
		}
		path := filepath.Join(opts.OutputDir, opts.BaseName+"."+opts.Format.Ext())
		if err := w.text(path, doc); err != nil {
			return Result{}, err
		}
		log.Info().Str("format", string(opts.Format)).Int("pages", len(doc.Pages)).Msg("no usable tables, wrote text fallback")
		return Result{Files: []string{path}, Fallback: true}, nil
	}

	res := Result{}
	for _, s := range sections {
		if s.Result != nil {
			res.Tables++
			res.Records += len(s.Rows)
		}
	}
	if opts.Merge {
		path := filepath.Join(opts.OutputDir, opts.BaseName+"."+opts.Format.Ext())
		if err := w.merged(path, sections[0]); err != nil {
			return Result{}, err
		}
		res.Files = []string{path}
		return res, nil
	}
	for _, s := range sections {
		if opts.Format == JSON && s.Result == nil {
			continue
		}
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_table%d.%s", opts.BaseName, s.Number, opts.Format.Ext()))
		if err := w.table(path, s); err != nil {
			return Result{}, err
		}
		res.Files = append(res.Files, path)
	}
	return res, nil
}

type writer interface {
	merged(path string, s section) error
	table(path string, s section) error
	text(path string, doc extract.TextDocument) error
}

func writerFor(f Format) (writer, error) {
	switch f {
	case CSV:
		return csvWriter{}, nil
	case Excel:
		return excelWriter{}, nil
	case JSON:
		return jsonWriter{}, nil
	case Text:
		return textWriter{}, nil
	}
	return nil, fmt.Errorf("unsupported output format %q", f)
}

// grid returns the header followed by the rows.
func (s section) grid() [][]string {
	if s.Header == nil {
		return s.Rows
	}
	return append([][]string{s.Header}, s.Rows...)
}

// textRows flattens a text document into page,line,text rows.
func textRows(doc extract.TextDocument) [][]string {
	rows := [][]string{{"page", "line", "text"}}
	for _, p := range doc.Pages {
		for i, l := range p.Lines {
			rows = append(rows, []string{fmt.Sprint(p.PageNumber), fmt.Sprint(i + 1), l})
		}
	}
	return rows
}
