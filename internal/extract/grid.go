package extract

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/silabo/internal/syllabus"
)

// edgeTolerance is the distance in points under which two edges are the same edge
// and under which a rectangle counts as a ruling line.
const edgeTolerance = 2.0

// minColumnWidth is the width in points under which an empty column is ruling
// noise rather than a table column.
const minColumnWidth = 8.0

// PageText lays out the glyphs of a page as lines, top to bottom.
func PageText(chars []pdf.Text) string {
	lines := groupLines(chars)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, joinLine(l))
	}
	return strings.Join(out, "\n")
}

// groupLines clusters glyphs by baseline. Lines are ordered top to bottom and
// glyphs within a line left to right.
func groupLines(chars []pdf.Text) [][]pdf.Text {
	sorted := make([]pdf.Text, 0, len(chars))
	for _, c := range chars {
		if c.S != "" {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]pdf.Text
	var baseline float64
	for _, c := range sorted {
		tol := math.Max(c.FontSize/2, 1)
		if len(lines) > 0 && math.Abs(baseline-c.Y) <= tol {
			lines[len(lines)-1] = append(lines[len(lines)-1], c)
			continue
		}
		lines = append(lines, []pdf.Text{c})
		baseline = c.Y
	}
	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool { return l[i].X < l[j].X })
	}
	return lines
}

// joinLine concatenates glyphs, inserting a space where the gap between two
// glyphs is wider than a fifth of the font size.
func joinLine(line []pdf.Text) string {
	var b strings.Builder
	var prevEnd float64
	for i, c := range line {
		if i > 0 {
			gap := c.X - prevEnd
			if gap > math.Max(c.FontSize, 1)/5 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(c.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(c.S)
		prevEnd = c.X + glyphWidth(c)
	}
	return strings.TrimRight(b.String(), " ")
}

func glyphWidth(c pdf.Text) float64 {
	if c.W > 0 {
		return c.W
	}
	return math.Max(c.FontSize, 1) * 0.5 * float64(utf8.RuneCountInString(c.S))
}

// segment is a ruling edge: pos is x for vertical edges and y for horizontal ones;
// from and to bound the other axis.
type segment struct {
	pos, from, to float64
}

type box struct {
	minX, minY, maxX, maxY float64
}

func normalize(r pdf.Rect) box {
	return box{
		minX: math.Min(r.Min.X, r.Max.X), maxX: math.Max(r.Min.X, r.Max.X),
		minY: math.Min(r.Min.Y, r.Max.Y), maxY: math.Max(r.Min.Y, r.Max.Y),
	}
}

// edges turns ruling lines and cell boxes into vertical and horizontal segments.
func edges(boxes []box) (vert, horiz []segment) {
	for _, b := range boxes {
		w, h := b.maxX-b.minX, b.maxY-b.minY
		switch {
		case w <= edgeTolerance && h > edgeTolerance:
			vert = append(vert, segment{pos: (b.minX + b.maxX) / 2, from: b.minY, to: b.maxY})
		case h <= edgeTolerance && w > edgeTolerance:
			horiz = append(horiz, segment{pos: (b.minY + b.maxY) / 2, from: b.minX, to: b.maxX})
		case w > edgeTolerance && h > edgeTolerance:
			vert = append(vert,
				segment{pos: b.minX, from: b.minY, to: b.maxY},
				segment{pos: b.maxX, from: b.minY, to: b.maxY})
			horiz = append(horiz,
				segment{pos: b.minY, from: b.minX, to: b.maxX},
				segment{pos: b.maxY, from: b.minX, to: b.maxX})
		}
	}
	return vert, horiz
}

// clusterPositions returns the sorted distinct positions, merging those closer than edgeTolerance.
func clusterPositions(segs []segment) []float64 {
	pos := make([]float64, len(segs))
	for i, s := range segs {
		pos[i] = s.pos
	}
	sort.Float64s(pos)
	var out []float64
	for _, p := range pos {
		if len(out) > 0 && p-out[len(out)-1] <= edgeTolerance {
			continue
		}
		out = append(out, p)
	}
	return out
}

// largestTable groups boxes whose vertical extents touch and returns the group
// covering the largest area. A page yields at most one table.
func largestTable(rects []pdf.Rect) []box {
	boxes := make([]box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, normalize(r))
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].maxY > boxes[j].maxY })

	var (
		best, group []box
		bestArea    float64
		bottom      float64
		bounds      box
	)
	flush := func() {
		if len(group) == 0 {
			return
		}
		if area := (bounds.maxX - bounds.minX) * (bounds.maxY - bounds.minY); area > bestArea {
			best, bestArea = group, area
		}
	}
	for _, b := range boxes {
		if len(group) > 0 && b.maxY < bottom-edgeTolerance {
			flush()
			group = nil
		}
		if len(group) == 0 {
			bounds, bottom = b, b.minY
		}
		group = append(group, b)
		bottom = math.Min(bottom, b.minY)
		bounds.minX = math.Min(bounds.minX, b.minX)
		bounds.maxX = math.Max(bounds.maxX, b.maxX)
		bounds.minY = math.Min(bounds.minY, b.minY)
		bounds.maxY = math.Max(bounds.maxY, b.maxY)
	}
	flush()
	return best
}

// BuildTable reconstructs the page table from ruling geometry and assigns every
// glyph inside it to a cell. A cell that spans several columns holds its text in
// its leftmost column; the others are "". Empty rows are dropped, and so are
// empty columns narrower than minColumnWidth; every other ruled column is kept,
// empty or not, so cells stay at their column position. Returns nil when the
// page has no grid.
func BuildTable(chars []pdf.Text, rects []pdf.Rect) []syllabus.Row {
	vert, horiz := edges(largestTable(rects))
	xs := clusterPositions(vert)
	ys := clusterPositions(horiz)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}
	// Top row first.
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	nRows, nCols := len(ys)-1, len(xs)-1
	if nRows*nCols < 2 {
		// A lone frame is not a table.
		return nil
	}
	owner := make([][]int, nRows)
	for r := 0; r < nRows; r++ {
		owner[r] = columnOwners(xs, vert, (ys[r]+ys[r+1])/2)
	}

	buckets := make([][][]pdf.Text, nRows)
	for r := range buckets {
		buckets[r] = make([][]pdf.Text, nCols)
	}
	for _, c := range chars {
		if c.S == "" {
			continue
		}
		col := locate(xs, c.X+glyphWidth(c)/2)
		row := locateDescending(ys, c.Y)
		if col < 0 || row < 0 {
			continue
		}
		o := owner[row][col]
		buckets[row][o] = append(buckets[row][o], c)
	}

	cells := make([][]string, 0, nRows)
	for r := 0; r < nRows; r++ {
		row := make([]string, nCols)
		for c := 0; c < nCols; c++ {
			if len(buckets[r][c]) > 0 {
				row[c] = PageText(buckets[r][c])
			}
		}
		cells = append(cells, row)
	}
	return compact(cells, xs)
}

// columnOwners maps each column to the leftmost column of the merged cell it
// belongs to at height y. An inner boundary exists only where a vertical edge crosses y.
func columnOwners(xs []float64, vert []segment, y float64) []int {
	owners := make([]int, len(xs)-1)
	current := 0
	for c := range owners {
		if c > 0 && hasVerticalEdge(vert, xs[c], y) {
			current = c
		}
		owners[c] = current
	}
	return owners
}

func hasVerticalEdge(vert []segment, x, y float64) bool {
	for _, s := range vert {
		if math.Abs(s.pos-x) <= edgeTolerance && s.from-edgeTolerance <= y && y <= s.to+edgeTolerance {
			return true
		}
	}
	return false
}

// locate returns i with edges[i] <= v < edges[i+1] for ascending edges, or -1.
func locate(edges []float64, v float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if edges[i] <= v && v < edges[i+1] {
			return i
		}
	}
	return -1
}

// locateDescending returns i with edges[i] >= v > edges[i+1] for descending edges, or -1.
func locateDescending(edges []float64, v float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if edges[i] >= v && v > edges[i+1] {
			return i
		}
	}
	return -1
}

// compact drops empty rows and the empty sliver columns between near-coincident
// rulings. xs are the column edges, ascending.
func compact(cells [][]string, xs []float64) []syllabus.Row {
	if len(cells) == 0 {
		return nil
	}
	keep := make([]bool, len(cells[0]))
	for c := range keep {
		keep[c] = xs[c+1]-xs[c] >= minColumnWidth
	}
	for _, row := range cells {
		for c, v := range row {
			if v != "" {
				keep[c] = true
			}
		}
	}
	var out []syllabus.Row
	for _, row := range cells {
		var kept syllabus.Row
		empty := true
		for c, v := range row {
			if !keep[c] {
				continue
			}
			kept = append(kept, v)
			if v != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, kept)
		}
	}
	return out
}
