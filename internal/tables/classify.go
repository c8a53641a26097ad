package tables

import "strings"

// RowLabel is the coarse classification of a row.
type RowLabel int

const (
	Unclassified RowLabel = iota
	Empty
	Title
)

func (l RowLabel) String() string {
	switch l {
	case Empty:
		return "empty"
	case Title:
		return "title"
	default:
		return "unclassified"
	}
}

// RowAnalysis pairs a row's signals with its label.
type RowAnalysis struct {
	Index  int
	Label  RowLabel
	Length int
	RowSignals
}

// Classify labels a row. A title is a sparse row (at most two filled cells in
// a row wider than three) carrying a long cell.
func (a *Analyzer) Classify(row RawRow, s RowSignals) RowLabel {
	if s.NonEmpty == 0 {
		return Empty
	}
	if s.NonEmpty <= 2 && len(row) > 3 && (s.LongText > 0 || a.hasTitleCell(s.Cells)) {
		return Title
	}
	return Unclassified
}

func (a *Analyzer) hasTitleCell(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if hasLetter(c) && (runeLen(c) >= a.opts.TitleMinLength || strings.Contains(c, "\n")) {
			return true
		}
	}
	return false
}

func (a *Analyzer) analyzeRows(t RawTable) []RowAnalysis {
	out := make([]RowAnalysis, len(t))
	for i, row := range t {
		s := Signals(row)
		out[i] = RowAnalysis{Index: i, Label: a.Classify(row, s), Length: len(row), RowSignals: s}
	}
	return out
}
