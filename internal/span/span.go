// Package span defines byte offsets, half-open byte ranges and line/column
// coordinates. Every location inside the engine is a byte offset; coordinates
// only appear at the edges where callers speak in rows and columns.
package span

import (
	"fmt"
	"sort"
	"strings"
)

// BytePos is a 0-based byte offset into a file.
type BytePos int

// Increment returns p + 1.
func (p BytePos) Increment() BytePos { return p + 1 }

// Decrement returns p - 1.
func (p BytePos) Decrement() BytePos { return p - 1 }

// CheckedSub returns p - q, or false if the result would be negative.
func (p BytePos) CheckedSub(q BytePos) (BytePos, bool) {
	if q > p {
		return 0, false
	}
	return p - q, true
}

// ByteRange is a half-open byte range [Start, End).
type ByteRange struct {
	Start BytePos
	End   BytePos
}

// NewRange returns the range [start, end).
func NewRange(start, end BytePos) ByteRange {
	return ByteRange{Start: start, End: end}
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int { return int(r.End - r.Start) }

// Contains reports whether start <= p < end.
func (r ByteRange) Contains(p BytePos) bool {
	return r.Start <= p && p < r.End
}

// ContainsExclusive reports whether start < p < end.
func (r ByteRange) ContainsExclusive(p BytePos) bool {
	return r.Start < p && p < r.End
}

// Shift moves both ends of the range by n bytes.
func (r ByteRange) Shift(n BytePos) ByteRange {
	return ByteRange{Start: r.Start + n, End: r.End + n}
}

// Slice returns the part of s covered by the range, clamped to s.
func (r ByteRange) Slice(s string) string {
	start, end := int(r.Start), int(r.End)
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}

func (r ByteRange) String() string {
	return fmt.Sprintf("ByteRange(%d..%d)", r.Start, r.End)
}

// Coordinate is a row/column pair. Row is 1-based and Col is a 0-based byte
// column, matching what editors send.
type Coordinate struct {
	Row int
	Col int
}

// StartCoordinate is the first position of any file.
var StartCoordinate = Coordinate{Row: 1, Col: 0}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// LineIndex maps between byte offsets and coordinates for one text.
type LineIndex struct {
	lines []ByteRange
}

// NewLineIndex splits text on '\n'. Each line range includes its newline,
// so a trailing '\r' is part of the line and the column arithmetic stays in
// bytes.
func NewLineIndex(text string) *LineIndex {
	parts := strings.Split(text, "\n")
	lines := make([]ByteRange, 0, len(parts))
	before := BytePos(0)
	for _, line := range parts {
		n := BytePos(len(line) + 1)
		lines = append(lines, ByteRange{Start: before, End: before + n})
		before += n
	}
	return &LineIndex{lines: lines}
}

// ToPoint converts a coordinate into a byte offset. It fails when the row
// does not exist or the column is past the end of the line.
func (li *LineIndex) ToPoint(c Coordinate) (BytePos, bool) {
	idx := c.Row - 1
	if idx < 0 || idx >= len(li.lines) || c.Col < 0 {
		return 0, false
	}
	line := li.lines[idx]
	if c.Col >= line.Len() {
		return 0, false
	}
	return line.Start + BytePos(c.Col), true
}

// ToCoords converts a byte offset into a coordinate.
func (li *LineIndex) ToCoords(p BytePos) (Coordinate, bool) {
	idx := sort.Search(len(li.lines), func(i int) bool {
		return li.lines[i].End > p
	})
	if idx >= len(li.lines) || !li.lines[idx].Contains(p) {
		return Coordinate{}, false
	}
	return Coordinate{Row: idx + 1, Col: int(p - li.lines[idx].Start)}, true
}
