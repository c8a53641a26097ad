package tables

import "strings"

// repeatedHeaderTokens mark a header row repeated on a later page.
var repeatedHeaderTokens = map[string]bool{
	"sno":           true,
	"s.no":          true,
	"no":            true,
	"barcode":       true,
	"bar code":      true,
	"product image": true,
	"image":         true,
}

// IsRepeatedHeader reports whether any of the first three cells of row is a
// header token.
func IsRepeatedHeader(row RawRow) bool {
	for i := 0; i < len(row) && i < 3; i++ {
		if repeatedHeaderTokens[strings.ToLower(strings.TrimSpace(row[i]))] {
			return true
		}
	}
	return false
}

// Merge combines the tables of a document into one logical table. The first
// table with a header supplies the column names; every other table only
// contributes data rows, starting at its own data start when it has a
// header. ok is false when no header was found or no rows were collected.
func (a *Analyzer) Merge(ts []RawTable) (TableResult, bool) {
	var (
		headers []string
		title   string
		rows    []RawRow
	)
	for _, t := range ts {
		st := a.Analyze(t)
		if st == nil {
			continue
		}
		if headers == nil && st.HasHeader() {
			headers = a.Headers(t, st)
			title = st.Title()
			for _, row := range t[st.DataStart:] {
				if !isEmptyRow(row) {
					rows = append(rows, row)
				}
			}
			continue
		}

		// A header on the last row was really the page's only data row.
		start := 0
		if st.HasHeader() && st.DataStart < len(t) {
			start = st.DataStart
		}
		for i := start; i < len(t); i++ {
			row := t[i]
			if isEmptyRow(row) || IsRepeatedHeader(row) {
				continue
			}
			rows = append(rows, row)
		}
	}
	if headers == nil || len(rows) == 0 {
		return TableResult{}, false
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = buildRecord(headers, row)
	}
	return TableResult{
		TableNumber: 1,
		Rows:        len(records),
		Columns:     len(headers),
		Headers:     headers,
		Records:     records,
		Title:       title,
	}, true
}
