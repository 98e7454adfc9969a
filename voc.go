package detprep

// Pascal VOC specific functionality.

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VOCObject is a single object within a VOC annotation file.
type VOCObject struct {
	Name   string    `xml:"name"`
	BndBox VOCBndBox `xml:"bndbox"`
}

// VOCBndBox is the pixel bounding box of a VOC object. The values are kept as text so that a
// missing field can be told apart from zero.
type VOCBndBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}

// VOCAnnotation defines the VOC annotation structure for a single image.
type VOCAnnotation struct {
	XMLName  xml.Name `xml:"annotation"`
	Filename string   `xml:"filename"`
	Size     struct {
		Width  string `xml:"width"`
		Height string `xml:"height"`
	} `xml:"size"`
	Objects []VOCObject `xml:"object"`
}

// FromVOC reads the VOC annotation files (*.xml) in labelDir and matches them by base name to the
// images in imageDir. Images without an annotation file become background examples. Annotation
// files that cannot be parsed are logged and skipped together with their image; the number of
// skipped examples is returned alongside the examples.
func FromVOC(labelDir, imageDir string) (Examples, int, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".xml", imageDir, parseVOCFile)
}

// parseVOCFile parses the VOC annotation at labelPath for the image at imagePath.
func parseVOCFile(labelPath, imagePath string) (example SourceExample, err error) {
	f, err := os.Open(labelPath)
	if err != nil {
		return SourceExample{}, err
	}
	defer closeWithErrCheck(f, &err)

	example, err = ParseVOC(f)
	if err != nil {
		var m *MalformedAnnotationError
		if errors.As(err, &m) {
			m.Path = labelPath
		}
		return SourceExample{}, err
	}
	example.AnnotationPath = labelPath
	example.ImagePath = imagePath

	return example, nil
}

// ParseVOC decodes a single VOC annotation document. Width and height must be positive and every
// object needs a name and all four bounding box coordinates.
func ParseVOC(r io.Reader) (SourceExample, error) {
	var doc VOCAnnotation
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return SourceExample{}, &MalformedAnnotationError{Msg: "invalid XML", Err: err}
	}

	width, err := parseVOCNumber("size/width", doc.Size.Width)
	if err != nil {
		return SourceExample{}, err
	}
	height, err := parseVOCNumber("size/height", doc.Size.Height)
	if err != nil {
		return SourceExample{}, err
	}
	if width <= 0 || height <= 0 {
		return SourceExample{}, &MalformedAnnotationError{
			Msg: fmt.Sprintf("non-positive image size %gx%g", width, height)}
	}

	example := SourceExample{
		Annotations: make([]Annotation, 0, len(doc.Objects)),
		ImageWidth:  width,
		ImageHeight: height,
	}
	for i, obj := range doc.Objects {
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			return SourceExample{}, &MalformedAnnotationError{
				Msg: fmt.Sprintf("object %d has no name", i)}
		}

		a := Annotation{Label: name}
		fields := [4]struct{ tag, value string }{
			{"xmin", obj.BndBox.XMin},
			{"ymin", obj.BndBox.YMin},
			{"xmax", obj.BndBox.XMax},
			{"ymax", obj.BndBox.YMax},
		}
		for j, field := range fields {
			if a.Coords[j], err = parseVOCNumber(fmt.Sprintf("object %d bndbox/%s", i, field.tag),
				field.value); err != nil {
				return SourceExample{}, err
			}
		}
		example.Annotations = append(example.Annotations, a)
	}

	return example, nil
}

// parseVOCNumber parses a required numeric element.
func parseVOCNumber(field, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, &MalformedAnnotationError{Msg: "missing " + field}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &MalformedAnnotationError{Msg: "invalid " + field, Err: err}
	}
	return v, nil
}
