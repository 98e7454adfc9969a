package detprep

// KITTI specific functionality.

import (
	"fmt"
	"strconv"
	"strings"
)

// FromKitti reads the KITTI label files (*.txt) in labelDir and matches them by base name to the
// images in imageDir. Images without a label file become background examples. It also returns the
// number of examples skipped for unparsable labels or unreadable images.
func FromKitti(labelDir, imageDir string) (Examples, int, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".txt", imageDir, parseKittiFile)
}

// parseKittiFile parses a KITTI label file. KITTI labels carry no image size, so it is read from
// the image header.
func parseKittiFile(labelPath, imagePath string) (SourceExample, error) {
	lines, err := readLines(labelPath)
	if err != nil {
		return SourceExample{}, err
	}
	annotations, err := parseKittiAnnotations(labelPath, lines)
	if err != nil {
		return SourceExample{}, err
	}

	img, _, err := decodeImageConfig(imagePath)
	if err != nil {
		return SourceExample{}, fmt.Errorf("cannot read the size of %q: %w", imagePath, err)
	}

	return SourceExample{
		Annotations: annotations,
		ImageWidth:  float64(img.Width),
		ImageHeight: float64(img.Height),
	}, nil
}

// parseKittiAnnotations parses every non-blank line of a KITTI label file.
func parseKittiAnnotations(path string, lines []string) ([]Annotation, error) {
	annotations := make([]Annotation, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := parseKittiAnnotation(line)
		if err != nil {
			return nil, &MalformedAnnotationError{Path: path, Msg: fmt.Sprintf("line %d", i+1),
				Err: err}
		}
		annotations = append(annotations, a)
	}
	return annotations, nil
}

// parseKittiAnnotation parses the line of values for a single annotation. Only the type and the
// 2D bounding box (fields 1 and 5 to 8) are used.
func parseKittiAnnotation(line string) (Annotation, error) {
	a := Annotation{}

	tokens := strings.Fields(line)
	if len(tokens) < 8 {
		return a, fmt.Errorf("insufficient tokens in %q", line)
	}

	a.Label = tokens[0]
	var err error
	for i := 4; i < 8 && err == nil; i++ {
		a.Coords[i-4], err = strconv.ParseFloat(tokens[i], 64)
	}
	if err != nil {
		return a, fmt.Errorf("unexpected values in %q: %w", line, err)
	}

	return a, nil
}
