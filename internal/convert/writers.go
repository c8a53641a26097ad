package convert

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/local/pdftables/internal/extract"
)

type jsonWriter struct{}

func (jsonWriter) merged(path string, s section) error {
	return writeJSON(path, map[string]interface{}{"tables": []interface{}{s.Result}})
}

func (jsonWriter) table(path string, s section) error { return writeJSON(path, s.Result) }

func (jsonWriter) text(path string, doc extract.TextDocument) error { return writeJSON(path, doc) }

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return f.Close()
}

type csvWriter struct{}

func (csvWriter) merged(path string, s section) error { return writeCSV(path, s.grid()) }
func (csvWriter) table(path string, s section) error  { return writeCSV(path, s.grid()) }
func (csvWriter) text(path string, doc extract.TextDocument) error {
	return writeCSV(path, textRows(doc))
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

type textWriter struct{}

func (textWriter) merged(path string, s section) error {
	return writeLines(path, func(b *bufio.Writer) {
		fmt.Fprintf(b, "=== Table %d ===\n", s.Number)
		writeSection(b, s)
	})
}

func (textWriter) table(path string, s section) error {
	return writeLines(path, func(b *bufio.Writer) { writeSection(b, s) })
}

func (textWriter) text(path string, doc extract.TextDocument) error {
	return writeLines(path, func(b *bufio.Writer) {
		for i, p := range doc.Pages {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(b, "=== Page %d ===\n%s\n", p.PageNumber, p.Content)
		}
	})
}

func writeSection(b *bufio.Writer, s section) {
	if s.Title != "" {
		b.WriteString(s.Title + "\n\n")
	}
	for _, line := range alignRows(s.grid()) {
		b.WriteString(line + "\n")
	}
}

func writeLines(path string, fill func(*bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	b := bufio.NewWriter(f)
	fill(b)
	if err := b.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// alignRows left-justifies every column to its widest cell and separates
// columns with two spaces.
func alignRows(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, c := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(c); n > widths[i] {
				widths[i] = n
			}
		}
	}
	out := make([]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = c + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
		}
		out[r] = strings.TrimRight(strings.Join(cells, "  "), " ")
	}
	return out
}
