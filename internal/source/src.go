// Package source holds the two textual views of a Rust file and the
// byte-level scanners that work on them: comment and literal masking,
// statement splitting, and scope lookups around a cursor.
package source

import (
	"sync"

	"github.com/rust-lang/rls-sub001/internal/span"
)

// RawSource is the unmodified text of a file.
type RawSource struct {
	Code string

	once  sync.Once
	lines *span.LineIndex
}

// NewRawSource wraps code.
func NewRawSource(code string) *RawSource {
	return &RawSource{Code: code}
}

func (s *RawSource) index() *span.LineIndex {
	s.once.Do(func() { s.lines = span.NewLineIndex(s.Code) })
	return s.lines
}

// ToPoint converts a coordinate into a byte offset.
func (s *RawSource) ToPoint(c span.Coordinate) (span.BytePos, bool) {
	return s.index().ToPoint(c)
}

// ToCoords converts a byte offset into a coordinate.
func (s *RawSource) ToCoords(p span.BytePos) (span.Coordinate, bool) {
	return s.index().ToCoords(p)
}

// Slice returns the text covered by r.
func (s *RawSource) Slice(r span.ByteRange) string {
	return r.Slice(s.Code)
}

// MaskedSource is file text with comments and literal contents blanked out.
type MaskedSource struct {
	Code string
}

// NewMaskedSource masks raw text.
func NewMaskedSource(raw string) *MaskedSource {
	return &MaskedSource{Code: Mask(raw)}
}

// Src returns a window over the whole masked text.
func (m *MaskedSource) Src() Src {
	return m.SrcFrom(0)
}

// SrcFrom returns a window from start to the end of the masked text.
func (m *MaskedSource) SrcFrom(start span.BytePos) Src {
	return Src{masked: m, Range: span.NewRange(start, span.BytePos(len(m.Code)))}
}

// Src is a window into a MaskedSource. Offsets handed to its methods are
// relative to the window start.
type Src struct {
	masked *MaskedSource
	Range  span.ByteRange
}

// Text returns the windowed text.
func (s Src) Text() string {
	return s.Range.Slice(s.masked.Code)
}

// Len returns the window length.
func (s Src) Len() int { return s.Range.Len() }

// Masked returns the backing masked source.
func (s Src) Masked() *MaskedSource { return s.masked }

// ShiftStart moves the window start forward by n, keeping the end.
func (s Src) ShiftStart(n span.BytePos) Src {
	return Src{masked: s.masked, Range: span.NewRange(s.Range.Start+n, s.Range.End)}
}

// ChangeLength keeps the start and sets the window length to n.
func (s Src) ChangeLength(n span.BytePos) Src {
	return Src{masked: s.masked, Range: span.NewRange(s.Range.Start, s.Range.Start+n)}
}

// ShiftRange narrows the window to r, given relative to the current start.
func (s Src) ShiftRange(r span.ByteRange) Src {
	return Src{masked: s.masked, Range: r.Shift(s.Range.Start)}
}

// StmtRanges splits the window into statements. Ranges are relative to the
// window start.
func (s Src) StmtRanges() []span.ByteRange {
	return StmtRanges(s.Text())
}
