package tables

import (
	"fmt"
	"strings"
)

// Headers builds exactly ColumnCount unique, non-empty column names from the
// header row. Blank header cells are synthesised as "id" (first column of a
// table with sequential ids) or "column_N". Repeated names get _1, _2, ...
// suffixes.
func (a *Analyzer) Headers(t RawTable, st *Structure) []string {
	if !st.HasHeader() {
		return nil
	}
	header := t[st.HeaderRow]
	seen := make(map[string]bool, st.ColumnCount)
	names := make([]string, st.ColumnCount)
	for i := 0; i < st.ColumnCount; i++ {
		name := ""
		if i < len(header) {
			name = cleanHeader(header[i])
		}
		if name == "" {
			if i == 0 && st.HasSequentialID {
				name = "id"
			} else {
				name = fmt.Sprintf("column_%d", i+1)
			}
		}
		names[i] = uniqueName(name, seen)
	}
	return names
}

func cleanHeader(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

func uniqueName(name string, seen map[string]bool) string {
	out := name
	for n := 1; seen[out]; n++ {
		out = fmt.Sprintf("%s_%d", name, n)
	}
	seen[out] = true
	return out
}
