package tables

import (
	"strconv"
	"strings"
)

// Structure is the inferred layout of one table.
type Structure struct {
	// HeaderRow is the index of the header row, or -1 when none was found.
	HeaderRow int
	// DataStart is HeaderRow+1, or -1 when there is no header.
	DataStart       int
	TitleRows       []RawRow
	HasSequentialID bool
	ColumnCount     int
	Rows            []RowAnalysis
}

// HasHeader reports whether a header row was identified.
func (s *Structure) HasHeader() bool { return s != nil && s.HeaderRow >= 0 }

// Title joins the non-empty cells of the title rows with single spaces.
func (s *Structure) Title() string {
	if s == nil {
		return ""
	}
	var parts []string
	for _, row := range s.TitleRows {
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				parts = append(parts, c)
			}
		}
	}
	return strings.Join(parts, " ")
}

// Analyzer infers table structure. It is stateless after construction and
// safe for concurrent use.
type Analyzer struct {
	opts Options
}

// New returns an Analyzer using opts, with unset thresholds defaulted.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts.withDefaults()}
}

// Analyze infers the structure of t. Tables with fewer than two rows have no
// structure and yield nil.
func (a *Analyzer) Analyze(t RawTable) *Structure {
	if len(t) < 2 {
		return nil
	}
	rows := a.analyzeRows(t)
	st := &Structure{HeaderRow: -1, DataStart: -1, Rows: rows}

	for _, row := range t {
		if len(row) > st.ColumnCount {
			st.ColumnCount = len(row)
		}
	}

	for _, r := range rows {
		if r.Label == Title {
			st.TitleRows = append(st.TitleRows, t[r.Index])
			continue
		}
		if r.Label != Empty {
			break
		}
	}

	if h := a.pickHeader(rows); h >= 0 {
		st.HeaderRow = h
		st.DataStart = h + 1
		st.HasSequentialID = a.sequentialIDs(t, st.DataStart)
	}
	return st
}

// sequentialIDs checks whether the first column of the rows following the
// header holds consecutive integers.
func (a *Analyzer) sequentialIDs(t RawTable, start int) bool {
	if start <= 0 {
		return false
	}
	end := start + a.opts.SequenceLookahead
	if end > len(t) {
		end = len(t)
	}
	var values []int
	for i := start; i < end; i++ {
		if len(t[i]) == 0 {
			continue
		}
		cell := strings.TrimSpace(t[i][0])
		if !isDigits(cell) {
			continue
		}
		if v, err := strconv.Atoi(cell); err == nil {
			values = append(values, v)
		}
	}
	return IsSequential(values, a.opts.MinSequenceLength)
}

// IsSequential reports whether values has at least min entries and each one
// is exactly one more than the previous.
func IsSequential(values []int, min int) bool {
	if len(values) < min {
		return false
	}
	for i := 1; i < len(values); i++ {
		if values[i] != values[0]+i {
			return false
		}
	}
	return true
}

// Valid reports whether any table in ts looks like real tabular data.
func (a *Analyzer) Valid(ts []RawTable) bool {
	for _, t := range ts {
		if a.qualifies(t) {
			return true
		}
	}
	return false
}

func (a *Analyzer) qualifies(t RawTable) bool {
	if len(t) < a.opts.ValidityMinRows {
		return false
	}
	widest, multi := 0, 0
	for _, row := range t {
		if len(row) > widest {
			widest = len(row)
		}
		if len(row) >= 2 {
			multi++
		}
	}
	if widest < a.opts.ValidityMinColumns {
		return false
	}
	return float64(multi)/float64(len(t)) >= a.opts.ValidityMultiColumnRatio
}
