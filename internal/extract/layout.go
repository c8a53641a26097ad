package extract

import (
	"math"
	"sort"
	"strings"

	"github.com/local/pdftables/internal/tables"
)

// Glyph is a positioned run of text on a page. Y grows upwards.
type Glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

type chunk struct {
	X    float64
	End  float64
	Text string
}

type line struct {
	Y      float64
	Chunks []chunk
}

func (l line) text() string {
	parts := make([]string, len(l.Chunks))
	for i, c := range l.Chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

const (
	// baseline distance under which glyphs share a line, in points
	lineTolerance = 2.5
	// start positions closer than this belong to the same column
	columnTolerance = 6.0
	minCellGap      = 4.0
)

// buildLines groups glyphs into lines top to bottom and splits each line into
// chunks wherever the horizontal gap is at least one em.
func buildLines(glyphs []Glyph) []line {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Y != gs[j].Y {
			return gs[i].Y > gs[j].Y
		}
		return gs[i].X < gs[j].X
	})

	var lines []line
	for start := 0; start < len(gs); {
		y := gs[start].Y
		end := start + 1
		for end < len(gs) && math.Abs(gs[end].Y-y) <= lineTolerance {
			end++
		}
		row := append([]Glyph(nil), gs[start:end]...)
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		if chunks := splitChunks(row); len(chunks) > 0 {
			lines = append(lines, line{Y: y, Chunks: chunks})
		}
		start = end
	}
	return lines
}

func splitChunks(row []Glyph) []chunk {
	var (
		out   []chunk
		cur   *chunk
		b     strings.Builder
		space bool
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(b.String())
			if cur.Text != "" {
				out = append(out, *cur)
			}
		}
		cur = nil
		b.Reset()
		space = false
	}
	for _, g := range row {
		if strings.TrimSpace(g.S) == "" {
			space = true
			continue
		}
		gap := minCellGap
		if g.FontSize > gap {
			gap = g.FontSize
		}
		if cur != nil && g.X-cur.End >= gap {
			flush()
		}
		if cur == nil {
			cur = &chunk{X: g.X}
		} else if space || g.X-cur.End > g.FontSize*0.15 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteString(g.S)
		if e := g.X + g.W; e > cur.End {
			cur.End = e
		}
	}
	flush()
	return out
}

// tablesFromLines turns runs of consecutive multi-chunk lines into tables.
// A single-chunk line directly above a run is kept as its first row so a
// caption can be recognised as a title.
func tablesFromLines(lines []line) []tables.RawTable {
	var out []tables.RawTable
	for i := 0; i < len(lines); {
		if len(lines[i].Chunks) < 2 {
			i++
			continue
		}
		j := i
		for j < len(lines) && len(lines[j].Chunks) >= 2 {
			j++
		}
		if j-i >= 2 {
			var lead *line
			if i > 0 && len(lines[i-1].Chunks) == 1 {
				lead = &lines[i-1]
			}
			out = append(out, toGrid(lead, lines[i:j]))
		}
		i = j
	}
	return out
}

func toGrid(lead *line, body []line) tables.RawTable {
	var xs []float64
	for _, l := range body {
		for _, c := range l.Chunks {
			xs = append(xs, c.X)
		}
	}
	anchors := clusterStarts(xs, columnTolerance)

	var t tables.RawTable
	if lead != nil {
		t = append(t, place(*lead, anchors))
	}
	for _, l := range body {
		t = append(t, place(l, anchors))
	}
	return t
}

func place(l line, anchors []float64) tables.RawRow {
	row := make(tables.RawRow, len(anchors))
	for _, c := range l.Chunks {
		col := 0
		for k, a := range anchors {
			if a <= c.X+columnTolerance {
				col = k
			}
		}
		if row[col] != "" {
			row[col] += " " + c.Text
		} else {
			row[col] = c.Text
		}
	}
	return row
}

// clusterStarts sorts values and collapses neighbours within tol into the
// smallest value of each group.
func clusterStarts(values []float64, tol float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	anchors := []float64{sorted[0]}
	last := sorted[0]
	for _, v := range sorted[1:] {
		if v-last > tol {
			anchors = append(anchors, v)
		}
		last = v
	}
	return anchors
}

// singleColumn wraps text lines into a one-column table.
func singleColumn(lines []string) tables.RawTable {
	t := make(tables.RawTable, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			t = append(t, tables.RawRow{l})
		}
	}
	return t
}
