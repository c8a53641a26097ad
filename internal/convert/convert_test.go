package convert

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/local/pdftables/internal/extract"
	"github.com/local/pdftables/internal/tables"
)

var catalog = tables.RawTable{
	{"Product Catalog", "", "", ""},
	{"SNo", "Name", "Price", "Qty"},
	{"1", "Widget", "9.99", "10"},
	{"2", "Gadget", "19.99", "5"},
}

var nextPage = tables.RawTable{
	{"SNo", "Name", "Price", "Qty"},
	{"3", "Doohickey", "4.50", "7"},
}

func prose() tables.RawTable {
	var t tables.RawTable
	for i := 0; i < 50; i++ {
		t = append(t, tables.RawRow{"A sentence of running prose that is not a table."})
	}
	return t
}

func textSource(calls *int) TextSource {
	return func(context.Context) (extract.TextDocument, error) {
		*calls++
		return extract.TextDocument{DocumentType: "text", Pages: []extract.TextPage{
			{PageNumber: 1, LineCount: 2, Content: "Hello\nWorld", Lines: []string{"Hello", "World"}},
		}}, nil
	}
}

func convert(t *testing.T, in Input, opts Options) Result {
	t.Helper()
	opts.OutputDir = t.TempDir()
	if opts.BaseName == "" {
		opts.BaseName = "doc"
	}
	res, err := New(nil).Convert(context.Background(), in, opts)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return res
}

func TestMergedJSON(t *testing.T) {
	calls := 0
	res := convert(t, Input{Tables: []tables.RawTable{catalog, nextPage}, Text: textSource(&calls)}, Options{Format: JSON, Merge: true})
	if calls != 0 || res.Fallback {
		t.Fatal("text fallback must not run for valid tables")
	}
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "doc.json" {
		t.Fatalf("files = %v", res.Files)
	}
	raw, err := os.ReadFile(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Tables []struct {
			TableNumber int                 `json:"table_number"`
			Rows        int                 `json:"rows"`
			Headers     []string            `json:"headers"`
			Data        []map[string]string `json:"data"`
			Title       string              `json:"title"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("tables = %d", len(doc.Tables))
	}
	got := doc.Tables[0]
	if got.TableNumber != 1 || got.Rows != 3 || got.Title != "Product Catalog" {
		t.Errorf("table = %+v", got)
	}
	if got.Data[2]["Name"] != "Doohickey" {
		t.Errorf("third record = %v", got.Data[2])
	}
	sno, name := strings.Index(string(raw), `"SNo": "1"`), strings.Index(string(raw), `"Name": "Widget"`)
	if sno < 0 || name < sno {
		t.Errorf("records must keep column order:\n%s", raw)
	}
}

func TestJSONFallback(t *testing.T) {
	calls := 0
	res := convert(t, Input{Tables: []tables.RawTable{prose()}, Text: textSource(&calls)}, Options{Format: JSON})
	if !res.Fallback || calls != 1 {
		t.Fatalf("expected fallback, got %+v calls=%d", res, calls)
	}
	raw, _ := os.ReadFile(res.Files[0])
	var doc extract.TextDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.DocumentType != "text" || len(doc.Pages) != 1 || doc.Pages[0].LineCount != 2 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestFallbackWithoutTextSource(t *testing.T) {
	_, err := New(nil).Convert(context.Background(), Input{}, Options{Format: CSV, OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPerTableCSV(t *testing.T) {
	res := convert(t, Input{Tables: []tables.RawTable{catalog, {{"just one line"}}}}, Options{Format: CSV})
	if len(res.Files) != 2 || res.Tables != 1 || res.Records != 2 {
		t.Fatalf("result = %+v", res)
	}
	if filepath.Base(res.Files[0]) != "doc_table1.csv" || filepath.Base(res.Files[1]) != "doc_table2.csv" {
		t.Fatalf("files = %v", res.Files)
	}
	f, err := os.Open(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"SNo", "Name", "Price", "Qty"}, {"1", "Widget", "9.99", "10"}, {"2", "Gadget", "19.99", "5"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %q", rows)
	}
}

func TestPerTableJSONSkipsRawTables(t *testing.T) {
	res := convert(t, Input{Tables: []tables.RawTable{{{"just one line"}}, catalog}}, Options{Format: JSON})
	if len(res.Files) != 1 || filepath.Base(res.Files[0]) != "doc_table2.json" {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestMergedExcel(t *testing.T) {
	res := convert(t, Input{Tables: []tables.RawTable{catalog}}, Options{Format: Excel, Merge: true})
	if filepath.Ext(res.Files[0]) != ".xlsx" {
		t.Fatalf("files = %v", res.Files)
	}
	f, err := excelize.OpenFile(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Merged Data")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || !reflect.DeepEqual(rows[0], []string{"SNo", "Name", "Price", "Qty"}) {
		t.Fatalf("rows = %q", rows)
	}
	w, err := f.GetColWidth("Merged Data", "B")
	if err != nil {
		t.Fatal(err)
	}
	if w != 8 {
		t.Errorf("column B width = %v, want 8", w)
	}
}

func TestMergedText(t *testing.T) {
	res := convert(t, Input{Tables: []tables.RawTable{catalog}}, Options{Format: Text, Merge: true})
	raw, err := os.ReadFile(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	for _, want := range []string{"=== Table 1 ===", "Product Catalog", "SNo  Name    Price  Qty\n", "1    Widget  9.99   10\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTextFallback(t *testing.T) {
	calls := 0
	res := convert(t, Input{Tables: []tables.RawTable{prose()}, Text: textSource(&calls)}, Options{Format: Text, Merge: true})
	raw, _ := os.ReadFile(res.Files[0])
	if string(raw) != "=== Page 1 ===\nHello\nWorld\n" {
		t.Errorf("text = %q", raw)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"csv": CSV, "Excel": Excel, "xlsx": Excel, " json ": JSON, "txt": Text, "text": Text}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("pdf must be rejected")
	}
}
