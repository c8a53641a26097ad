package tables

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RawTable is a table as reported by the extraction provider, rows top to
// bottom. Rows may have different lengths; a missing cell is "".
type RawTable []RawRow

// RawRow is one row of cells, left to right.
type RawRow []string

// RowSignals summarises the content of a row.
type RowSignals struct {
	NonEmpty    int
	Numeric     int
	Text        int
	LongText    int
	Barcode     int
	ShortNumber int
	// Cells holds the trimmed cell texts, one per input cell.
	Cells []string
}

const (
	barcodeMinDigits   = 9
	shortNumberDigits  = 3
	longTextMinRunes   = 21
	headerMinCellRunes = 2
	headerMaxCellRunes = 30
)

// Signals computes the per-row counts used by classification and header
// scoring. Empty cells are skipped. A non-digit cell counts as text only when
// it holds a letter, so prices and dashes count as neither.
func Signals(row RawRow) RowSignals {
	s := RowSignals{Cells: make([]string, len(row))}
	for i, raw := range row {
		cell := strings.TrimSpace(raw)
		s.Cells[i] = cell
		if cell == "" {
			continue
		}
		s.NonEmpty++
		n := runeLen(cell)
		if isDigits(cell) {
			s.Numeric++
			if n >= barcodeMinDigits {
				s.Barcode++
			} else if n <= shortNumberDigits {
				s.ShortNumber++
			}
			continue
		}
		if !hasLetter(cell) {
			continue
		}
		s.Text++
		if n >= longTextMinRunes || strings.Contains(cell, "\n") {
			s.LongText++
		}
	}
	return s
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// isDigits reports whether s is non-empty and made only of decimal digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
