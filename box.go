package detprep

// Normalized bounding boxes and the label line format.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// labelFieldCount is the number of whitespace-separated fields in a label line.
const labelFieldCount = 5

// NormalizedBox is an object location as the centre and extent of the box relative to the image
// size, all in [0, 1].
type NormalizedBox struct {
	ClassID int
	CX, CY  float64
	W, H    float64

	// FullFrame marks a box covering the whole image. It is written in the short form
	// "<id> 0.5 0.5 1.0 1.0".
	FullFrame bool
}

// FullFrameBox returns the box that covers the whole image for classID.
func FullFrameBox(classID int) NormalizedBox {
	return NormalizedBox{ClassID: classID, CX: 0.5, CY: 0.5, W: 1, H: 1, FullFrame: true}
}

// NormalizeBox converts the absolute pixel box (x1, y1, x2, y2), upper-left origin, in an image of
// the given width and height to centre/extent form. Coordinates outside the image are clamped to
// its border first.
func NormalizeBox(classID int, coords [4]float64, width, height float64) NormalizedBox {
	coords[0] = clamp(coords[0], 0, width)
	coords[1] = clamp(coords[1], 0, height)
	coords[2] = clamp(coords[2], 0, width)
	coords[3] = clamp(coords[3], 0, height)

	return NormalizedBox{
		ClassID: classID,
		CX:      (coords[0] + coords[2]) / 2 / width,
		CY:      (coords[1] + coords[3]) / 2 / height,
		W:       (coords[2] - coords[0]) / width,
		H:       (coords[3] - coords[1]) / height,
	}
}

// Denormalize expands b to absolute pixel coordinates (x1, y1, x2, y2) for an image of the given
// size.
func (b NormalizedBox) Denormalize(width, height float64) [4]float64 {
	return [4]float64{
		(b.CX - b.W/2) * width,
		(b.CY - b.H/2) * height,
		(b.CX + b.W/2) * width,
		(b.CY + b.H/2) * height,
	}
}

// InUnitRange reports whether all coordinates are in [0, 1]. NaN is never in range.
func (b NormalizedBox) InUnitRange() bool {
	for _, v := range [...]float64{b.CX, b.CY, b.W, b.H} {
		if !inUnitRange(v) {
			return false
		}
	}
	return true
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// String formats b as a label line without the trailing newline.
func (b NormalizedBox) String() string {
	if b.FullFrame {
		return fmt.Sprintf("%d 0.5 0.5 1.0 1.0", b.ClassID)
	}
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", b.ClassID, b.CX, b.CY, b.W, b.H)
}

// ParseLabelLine parses a single "<class_id> <cx> <cy> <w> <h>" line.
func ParseLabelLine(line string) (NormalizedBox, error) {
	fields := strings.Fields(line)
	if len(fields) != labelFieldCount {
		return NormalizedBox{}, fmt.Errorf("expected %d fields, got %d in %q", labelFieldCount,
			len(fields), line)
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return NormalizedBox{}, fmt.Errorf("invalid class id in %q: %w", line, err)
	}

	var v [4]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
			return NormalizedBox{}, fmt.Errorf("invalid coordinate in %q: %w", line, err)
		}
	}

	return NormalizedBox{ClassID: id, CX: v[0], CY: v[1], W: v[2], H: v[3]}, nil
}

// LabelRecord holds the boxes of one image, in order. An empty record is a background image.
type LabelRecord []NormalizedBox

// WriteTo writes one line per box to w.
func (r LabelRecord) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, b := range r {
		n, err := fmt.Fprintln(w, b.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadLabelRecord parses label lines from r. Blank lines are ignored.
func ReadLabelRecord(r io.Reader) (LabelRecord, error) {
	var record LabelRecord
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		b, err := ParseLabelLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		record = append(record, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return record, nil
}
