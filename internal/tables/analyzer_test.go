package tables

import (
	"reflect"
	"strconv"
	"testing"
)

func TestSignals(t *testing.T) {
	row := RawRow{"", "  123 ", "6001234567890", "1234", "Soap", "This is a very long product name", "Line one\nLine two", "9.99"}
	s := Signals(row)
	want := RowSignals{NonEmpty: 7, Numeric: 3, Text: 3, LongText: 2, Barcode: 1, ShortNumber: 1}
	s.Cells = nil
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("signals = %+v, want %+v", s, want)
	}
}

func TestSignalsIgnoreCellsWithoutLetters(t *testing.T) {
	s := Signals(RawRow{"9.99", "19.99", "-", "$5", "Soap"})
	if s.NonEmpty != 5 || s.Text != 1 || s.Numeric != 0 {
		t.Errorf("signals = %+v", s)
	}
}

func TestClassify(t *testing.T) {
	a := New(Options{})
	cases := []struct {
		name string
		row  RawRow
		want RowLabel
	}{
		{"all empty", RawRow{"", "  ", ""}, Empty},
		{"no cells", RawRow{}, Empty},
		{"catalog title", RawRow{"Product Catalog", "", "", ""}, Title},
		{"long title", RawRow{"Quarterly wholesale price list", "", "", "", ""}, Title},
		{"multiline title", RawRow{"Price\nList", "", "", ""}, Title},
		{"narrow row", RawRow{"Product Catalog", "", ""}, Unclassified},
		{"short text", RawRow{"Short", "", "", ""}, Unclassified},
		{"three filled", RawRow{"Product Catalog", "x", "y", ""}, Unclassified},
		{"long code", RawRow{"1234567890123456", "", "", ""}, Unclassified},
		{"long price", RawRow{"1,234,567.89 / 2,345,678.90", "", "", ""}, Unclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Classify(tc.row, Signals(tc.row)); got != tc.want {
				t.Errorf("Classify(%q) = %v, want %v", tc.row, got, tc.want)
			}
		})
	}
}

func TestHeaderScore(t *testing.T) {
	cases := []struct {
		name       string
		cells      []string
		score      int
		likelyData bool
	}{
		{"keywords", []string{"SNo", "Name", "Price", "Qty"}, 28, false},
		{"currency", []string{"KSh 120"}, -6, true},
		{"barcode", []string{"6001234567890"}, -10, true},
		{"single digit", []string{"1"}, -3, false},
		{"keyword inside word", []string{"Widget"}, 7, false},
		{"parenthetical", []string{"Something (with parentheses)"}, 0, false},
		{"empty cells ignored", []string{"", "", "Name"}, 7, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, likely := HeaderScore(tc.cells, HeaderCellLookahead)
			if score != tc.score || likely != tc.likelyData {
				t.Errorf("HeaderScore(%q) = %d,%v want %d,%v", tc.cells, score, likely, tc.score, tc.likelyData)
			}
		})
	}
}

func TestHeaderScoreLookahead(t *testing.T) {
	cells := make([]string, 10)
	for i := range cells {
		cells[i] = "Name"
	}
	if score, _ := HeaderScore(cells, 8); score != 56 {
		t.Fatalf("score = %d, want 56", score)
	}
}

func TestIsSequential(t *testing.T) {
	cases := []struct {
		values []int
		want   bool
	}{
		{[]int{5, 6, 7}, true},
		{[]int{1, 2, 3, 4, 5}, true},
		{[]int{1, 2, 4}, false},
		{[]int{1, 2}, false},
		{nil, false},
		{[]int{3, 2, 1}, false},
	}
	for _, tc := range cases {
		if got := IsSequential(tc.values, MinSequenceLength); got != tc.want {
			t.Errorf("IsSequential(%v) = %v, want %v", tc.values, got, tc.want)
		}
	}
}

var catalog = RawTable{
	{"Product Catalog", "", "", ""},
	{"SNo", "Name", "Price", "Qty"},
	{"1", "Widget", "9.99", "10"},
	{"2", "Gadget", "19.99", "5"},
}

func TestAnalyzeCatalog(t *testing.T) {
	a := New(Options{})
	st := a.Analyze(catalog)
	if st == nil {
		t.Fatal("expected structure")
	}
	if st.HeaderRow != 1 || st.DataStart != 2 {
		t.Fatalf("header=%d dataStart=%d, want 1,2", st.HeaderRow, st.DataStart)
	}
	if st.Title() != "Product Catalog" {
		t.Errorf("title = %q", st.Title())
	}
	if st.ColumnCount != 4 {
		t.Errorf("columns = %d", st.ColumnCount)
	}

	res, ok := a.Table(1, catalog)
	if !ok {
		t.Fatal("expected table result")
	}
	if !reflect.DeepEqual(res.Headers, []string{"SNo", "Name", "Price", "Qty"}) {
		t.Errorf("headers = %v", res.Headers)
	}
	if res.Rows != 2 || len(res.Records) != 2 {
		t.Fatalf("rows = %d", res.Rows)
	}
	if v, _ := res.Records[1].Get("Price"); v != "19.99" {
		t.Errorf("price = %q", v)
	}
	if res.Title != "Product Catalog" {
		t.Errorf("result title = %q", res.Title)
	}
}

func TestAnalyzeSequentialIDsKeepExplicitHeader(t *testing.T) {
	a := New(Options{})
	table := append(RawTable{}, catalog...)
	table = append(table, RawRow{"3", "Doohickey", "4.50", "7"})
	st := a.Analyze(table)
	if !st.HasSequentialID {
		t.Fatal("expected sequential ids")
	}
	if h := a.Headers(table, st); h[0] != "SNo" {
		t.Errorf("first header = %q, want SNo", h[0])
	}
}

func TestAnalyzeFallsBackToTextRow(t *testing.T) {
	a := New(Options{})
	table := RawTable{
		{"Apple", "KSh 5", "1", "2"},
		{"Zulu", "Kilo", "Echo", "4"},
		{"Pear", "KSh 80", "6001234567891", "y"},
		{"Plum", "KSh 90", "6001234567892", "z"},
	}
	st := a.Analyze(table)
	if st.HeaderRow != 1 {
		t.Fatalf("header = %d, want 1", st.HeaderRow)
	}
}

func TestAnalyzePriceRowsAreNotTextHeaders(t *testing.T) {
	a := New(Options{})
	table := RawTable{
		{"A1", "B2", "", ""},
		{"Gizmo", "1.00", "2.00", "3.00"},
		{"Bolt", "4.00", "5.00", "6.00"},
	}
	st := a.Analyze(table)
	if st.HeaderRow != 0 || st.DataStart != 1 {
		t.Fatalf("header = %d, data start = %d, want 0 and 1", st.HeaderRow, st.DataStart)
	}
}

func TestAnalyzeNeverPicksLikelyDataByScore(t *testing.T) {
	a := New(Options{})
	table := RawTable{
		{"SNo", "Barcode", "6001234567890", "Name"},
		{"1", "x", "y", "z"},
	}
	if st := a.Analyze(table); st.HeaderRow != 1 {
		t.Fatalf("header = %d, want 1", st.HeaderRow)
	}
}

func TestAnalyzeEdgeCases(t *testing.T) {
	a := New(Options{})
	if st := a.Analyze(RawTable{{"SNo", "Name"}}); st != nil {
		t.Error("single row table must have no structure")
	}
	st := a.Analyze(RawTable{{"", ""}, {"Quarterly wholesale price list", "", "", ""}})
	if st == nil || st.HasHeader() {
		t.Errorf("expected structure without header, got %+v", st)
	}
	if _, ok := a.Table(1, RawTable{{"SNo", "Name", "Qty"}, {"", "", ""}}); ok {
		t.Error("table without data rows must be skipped")
	}
}

func TestHeaders(t *testing.T) {
	a := New(Options{})
	table := RawTable{
		{"", "Name", "Name\n Full", "Name", ""},
		{"1", "Alice", "x", "y", "z"},
		{"2", "Bob", "x", "y", "z"},
		{"3", "Carol", "x", "y", "z"},
	}
	st := a.Analyze(table)
	got := a.Headers(table, st)
	want := []string{"id", "Name", "Name Full", "Name_1", "column_5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}
}

func TestHeadersUniqueAgainstSynthesised(t *testing.T) {
	a := New(Options{})
	table := RawTable{
		{"column_2", "", "A", "A", "A_1"},
		{"x", "y", "z", "w", "v"},
	}
	st := a.Analyze(table)
	got := a.Headers(table, st)
	want := []string{"column_2", "column_2_1", "A", "A_1", "A_1_1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}
	seen := map[string]bool{}
	for _, h := range got {
		if h == "" || seen[h] {
			t.Fatalf("bad header %q in %v", h, got)
		}
		seen[h] = true
	}
}

func TestValid(t *testing.T) {
	a := New(Options{})

	var prose RawTable
	for i := 0; i < 50; i++ {
		prose = append(prose, RawRow{"Sentence number " + strconv.Itoa(i) + " of a long running paragraph."})
	}
	if a.Valid([]RawTable{prose}) {
		t.Error("single column prose must be rejected")
	}

	grid := RawTable{{"a", "b", "c"}, {"1", "2", "3"}, {"4", "5", "6"}}
	if !a.Valid([]RawTable{prose, grid}) {
		t.Error("one qualifying table makes the collection valid")
	}

	sparse := RawTable{}
	for i := 0; i < 10; i++ {
		if i < 6 {
			sparse = append(sparse, RawRow{"a", "b", "c"})
		} else {
			sparse = append(sparse, RawRow{"a"})
		}
	}
	if a.Valid([]RawTable{sparse}) {
		t.Error("60% multi-column rows must be rejected")
	}
	if a.Valid(nil) {
		t.Error("no tables is not valid")
	}
}

func TestRecordMarshalKeepsOrder(t *testing.T) {
	r := Record{Headers: []string{"b", "a"}, Values: []string{"1", "<x> & \"y\""}}
	got, err := r.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"b":"1","a":"<x> & \"y\""}`
	if string(got) != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
}
