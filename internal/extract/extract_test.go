package extract

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/local/pdftables/internal/tables"
)

func word(x, y, w float64, s string) Glyph {
	return Glyph{X: x, Y: y, W: w, FontSize: 10, S: s}
}

func catalogGlyphs() []Glyph {
	return []Glyph{
		// deliberately out of order
		word(120, 665, 30, "Widget"),
		word(50, 700, 35, "Product"),
		word(88, 700, 35, "Catalog"),
		word(50, 680, 15, "SNo"),
		word(120, 680.8, 25, "Name"),
		word(220, 680, 25, "Price"),
		word(300, 680, 15, "Qty"),
		word(50, 665, 5, "1"),
		word(222, 665, 20, "9.99"),
		word(302, 665, 10, "10"),
		word(50, 650, 5, "2"),
		word(120, 650, 30, "Gadget"),
		word(220, 650, 25, "19.99"),
		word(303, 650, 5, "5"),
		word(50, 600, 30, "Closing"),
		word(81, 600, 1, " "),
		word(83, 600, 30, "remark"),
	}
}

func TestBuildLines(t *testing.T) {
	lines := buildLines(catalogGlyphs())
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
	if got := lines[0].text(); got != "Product Catalog" {
		t.Errorf("first line = %q", got)
	}
	if n := len(lines[1].Chunks); n != 4 {
		t.Errorf("header chunks = %d, want 4", n)
	}
	if got := lines[4].text(); got != "Closing remark" {
		t.Errorf("last line = %q", got)
	}
}

func TestTablesFromLines(t *testing.T) {
	got := tablesFromLines(buildLines(catalogGlyphs()))
	want := []tables.RawTable{{
		{"Product Catalog", "", "", ""},
		{"SNo", "Name", "Price", "Qty"},
		{"1", "Widget", "9.99", "10"},
		{"2", "Gadget", "19.99", "5"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tables = %q\nwant %q", got, want)
	}
}

func TestTablesFromLinesNeedsTwoRows(t *testing.T) {
	lines := buildLines([]Glyph{
		word(50, 700, 20, "Only"),
		word(150, 700, 20, "row"),
		word(50, 680, 50, "Paragraph"),
	})
	if got := tablesFromLines(lines); len(got) != 0 {
		t.Fatalf("tables = %q, want none", got)
	}
}

func TestLayoutFallsBackToSingleColumn(t *testing.T) {
	l := &Layout{Lines: []string{"First sentence.", "  ", "Second sentence."}}
	got := l.RawTables()
	want := []tables.RawTable{{{"First sentence."}, {"Second sentence."}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tables = %q", got)
	}
	if (&Layout{}).RawTables() != nil {
		t.Error("empty layout must yield no tables")
	}
}

func TestClusterStarts(t *testing.T) {
	got := clusterStarts([]float64{300, 50, 52, 120, 125, 220}, 6)
	want := []float64{50, 120, 220, 300}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("anchors = %v", got)
	}
}

type fakeDoc struct {
	pages []string
	errs  map[int]error
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }
func (d *fakeDoc) Text(i int) (string, error) {
	if err := d.errs[i]; err != nil {
		return "", err
	}
	return d.pages[i], nil
}
func (d *fakeDoc) Close() error { return nil }

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(string) (Doc, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

func TestStructuredText(t *testing.T) {
	doc := &fakeDoc{
		pages: []string{"  Intro line\n\n second line \n", "   \n", "broken", "Last page"},
		errs:  map[int]error{2: errors.New("bad stream")},
	}
	got, err := NewTextExtractor(fakeOpener{doc: doc}).Structured(context.Background(), "x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.DocumentType != "text" || len(got.Pages) != 2 {
		t.Fatalf("doc = %+v", got)
	}
	first := got.Pages[0]
	if first.PageNumber != 1 || first.LineCount != 2 || first.Content != "Intro line\n\n second line" {
		t.Errorf("first page = %+v", first)
	}
	if !reflect.DeepEqual(first.Lines, []string{"Intro line", "second line"}) {
		t.Errorf("lines = %q", first.Lines)
	}
	if got.Pages[1].PageNumber != 4 {
		t.Errorf("second page number = %d", got.Pages[1].PageNumber)
	}
}

func TestStructuredTextOpenError(t *testing.T) {
	_, err := NewTextExtractor(fakeOpener{err: errors.New("nope")}).Structured(context.Background(), "x.pdf")
	if err == nil || !strings.Contains(err.Error(), "open pdf") {
		t.Fatalf("err = %v", err)
	}
}

func TestProbe(t *testing.T) {
	scanned := &fakeDoc{pages: []string{" ", "\n", ""}}
	res, err := Probe(fakeOpener{doc: scanned}, "scan.pdf", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasText || res.Threshold != DefaultProbeThreshold || res.TotalPages != 3 {
		t.Errorf("scanned result = %+v", res)
	}

	text := &fakeDoc{pages: []string{strings.Repeat("abc def ", 10)}}
	res, err = Probe(fakeOpener{doc: text}, "text.pdf", 50)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasText || res.Chars != 60 {
		t.Errorf("text result = %+v", res)
	}
}

func TestSamplePages(t *testing.T) {
	cases := map[int][]int{
		0:   {},
		3:   {0, 1, 2},
		100: {0, 25, 50, 75, 99},
		6:   {0, 1, 3, 4, 5},
	}
	for total, want := range cases {
		if got := samplePages(total); !reflect.DeepEqual(got, want) {
			t.Errorf("samplePages(%d) = %v, want %v", total, got, want)
		}
	}
}
