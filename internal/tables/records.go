package tables

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is one data row keyed by header name. Values are positionally
// aligned with Headers and marshal as a JSON object in header order.
type Record struct {
	Headers []string
	Values  []string
}

// Get returns the value stored under header name.
func (r Record) Get(name string) (string, bool) {
	for i, h := range r.Headers {
		if h == name {
			return r.Values[i], true
		}
	}
	return "", false
}

// MarshalJSON writes the record as an object preserving column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range r.Headers {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, h); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, r.Values[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// TableResult is the structured form of one table.
type TableResult struct {
	TableNumber int      `json:"table_number"`
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	Headers     []string `json:"headers"`
	Records     []Record `json:"data"`
	Title       string   `json:"title,omitempty"`
}

// buildRecord pads or truncates row to the header width, trimming values.
func buildRecord(headers []string, row RawRow) Record {
	values := make([]string, len(headers))
	for i := range headers {
		if i < len(row) {
			values[i] = strings.TrimSpace(row[i])
		}
	}
	return Record{Headers: headers, Values: values}
}

func isEmptyRow(row RawRow) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Table converts a single table into records. ok is false when the table has
// no header, no rows after it, or no non-empty data rows.
func (a *Analyzer) Table(number int, t RawTable) (TableResult, bool) {
	st := a.Analyze(t)
	if !st.HasHeader() || st.DataStart >= len(t) {
		return TableResult{}, false
	}
	headers := a.Headers(t, st)
	var records []Record
	for _, row := range t[st.DataStart:] {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, buildRecord(headers, row))
	}
	if len(records) == 0 {
		return TableResult{}, false
	}
	return TableResult{
		TableNumber: number,
		Rows:        len(records),
		Columns:     len(headers),
		Headers:     headers,
		Records:     records,
		Title:       st.Title(),
	}, true
}

// Tables converts each table independently, numbering them from 1 in input
// order. Tables that yield no records are skipped but keep their number.
func (a *Analyzer) Tables(ts []RawTable) []TableResult {
	var out []TableResult
	for i, t := range ts {
		if r, ok := a.Table(i+1, t); ok {
			out = append(out, r)
		}
	}
	return out
}
