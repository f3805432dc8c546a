package types

import "fmt"

// BoundingBox is an axis-aligned rectangle in source-pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the box.
func (b BoundingBox) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the area of the box in pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Validate checks that the box is non-negative and contained in an image
// of the given dimensions.
func (b BoundingBox) Validate(imageWidth, imageHeight int) error {
	if b.X < 0 || b.Y < 0 || b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("bounding box has negative fields: %+v", b)
	}
	if b.X+b.Width > imageWidth || b.Y+b.Height > imageHeight {
		return fmt.Errorf("bounding box %+v exceeds image bounds %dx%d", b, imageWidth, imageHeight)
	}
	return nil
}

// TextSpec is the caption for one sticker: up to two ordered lines of
// text, each non-empty after trimming.
type TextSpec struct {
	Lines []string `json:"lines,omitempty"`
}

// Empty reports whether the spec carries no text at all.
func (t TextSpec) Empty() bool {
	return len(t.Lines) == 0
}

// Validate enforces the two-line limit and rejects blank lines. A line
// count above the limit is an input error, never a silent truncation.
func (t TextSpec) Validate() error {
	if len(t.Lines) > 2 {
		return fmt.Errorf("caption has %d lines, maximum is 2", len(t.Lines))
	}
	for i, line := range t.Lines {
		if line == "" {
			return fmt.Errorf("caption line %d is empty", i+1)
		}
	}
	return nil
}

// Status of a single photo after the pipeline ran (or refused to run).
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StickerPaths holds the three output files written for one photo.
type StickerPaths struct {
	Sticker string `json:"sticker,omitempty"`
	Main    string `json:"main,omitempty"`
	Tab     string `json:"tab,omitempty"`
}

// PhotoResult is the per-photo record in the result report.
type PhotoResult struct {
	Filename string       `json:"filename"`
	Status   Status       `json:"status"`
	Stage    string       `json:"stage,omitempty"`
	Reason   string       `json:"reason,omitempty"`
	Sequence string       `json:"sequence,omitempty"`
	Paths    StickerPaths `json:"paths,omitempty"`
}

// ResultReport aggregates per-photo results in input processing order.
// Entries are append-only; one entry per input photo.
type ResultReport struct {
	Entries []PhotoResult `json:"entries"`
}

// Append adds a result record. Records are never overwritten.
func (r *ResultReport) Append(res PhotoResult) {
	r.Entries = append(r.Entries, res)
}

// ByName returns the entry for the given source filename, if present.
func (r *ResultReport) ByName(filename string) (PhotoResult, bool) {
	for _, e := range r.Entries {
		if e.Filename == filename {
			return e, true
		}
	}
	return PhotoResult{}, false
}

// FailedCount returns the number of failed entries.
func (r *ResultReport) FailedCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == StatusFailed {
			n++
		}
	}
	return n
}

// SuccessCount returns the number of successful entries.
func (r *ResultReport) SuccessCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == StatusSuccess {
			n++
		}
	}
	return n
}
