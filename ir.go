package detprep

// The intermediate representation of source examples.

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// Annotation is a raw object label as found in a source. Coords are absolute x1, y1, x2, y2 pixel
// offsets from the top-left corner, unless WholeImage is set.
type Annotation struct {
	Coords     [4]float64
	Label      string
	WholeImage bool // The object covers the entire image; Coords are ignored.
}

// check reports non-finite coordinates and inverted boxes.
func (a Annotation) check() error {
	for _, v := range a.Coords {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("box %q has a non-finite coordinate %v", a.Label, a.Coords)
		}
	}
	if a.Coords[2] < a.Coords[0] || a.Coords[3] < a.Coords[1] {
		return fmt.Errorf("box %q is inverted %v", a.Label, a.Coords)
	}
	return nil
}

// SourceExample is an image discovered in a source together with its raw annotations. It is not
// modified after discovery.
type SourceExample struct {
	Annotations    []Annotation
	AnnotationPath string  // The annotation artifact, if any.
	ImagePath      string  // The source image.
	ImageWidth     float64 // Pixel width from the annotation artifact.
	ImageHeight    float64 // Pixel height from the annotation artifact.

	// Normalized holds boxes that a source already provides in normalized form. It is used
	// instead of Annotations when non-nil.
	Normalized LabelRecord
}

// Stem is the image file name without directory and extension. Labels share it.
func (e SourceExample) Stem() string {
	return stemOf(e.ImagePath)
}

// Label converts the annotations of e into a LabelRecord using the ids from vocab. Annotations
// with a label that is not part of vocab are dropped.
func (e SourceExample) Label(vocab *Vocabulary) (LabelRecord, error) {
	if e.Normalized != nil {
		for i, b := range e.Normalized {
			if b.ClassID < 0 || b.ClassID >= vocab.Len() {
				return nil, &MalformedAnnotationError{Path: e.AnnotationPath,
					Msg: fmt.Sprintf("box %d: class id %d outside the vocabulary", i, b.ClassID)}
			}
		}
		return e.Normalized, nil
	}

	record := make(LabelRecord, 0, len(e.Annotations))
	for _, a := range e.Annotations {
		id, ok := vocab.ID(a.Label)
		if !ok {
			continue
		}

		if a.WholeImage {
			record = append(record, FullFrameBox(id))
			continue
		}

		if e.ImageWidth <= 0 || e.ImageHeight <= 0 {
			return nil, &MalformedAnnotationError{Path: e.AnnotationPath,
				Msg: fmt.Sprintf("invalid image size %gx%g", e.ImageWidth, e.ImageHeight)}
		}
		if err := a.check(); err != nil {
			return nil, &MalformedAnnotationError{Path: e.AnnotationPath, Msg: err.Error()}
		}
		record = append(record, NormalizeBox(id, a.Coords, e.ImageWidth, e.ImageHeight))
	}

	return record, nil
}

// Examples is a list of source examples.
type Examples []SourceExample

// MapLabels replaces label (sub-)strings with substitution values, as specified in mappings. The
// format of mappings is old=new.
//
// The receiver is replaced by a relabelled copy; the original examples are left untouched.
func (data *Examples) MapLabels(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return fmt.Errorf("invalid mapping: %v", v)
		}

		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	count := 0
	mapped := make(Examples, len(*data))
	for i, e := range *data {
		annotations := make([]Annotation, len(e.Annotations))
		for j, a := range e.Annotations {
			oldLabel := a.Label
			for _, r := range replacements {
				a.Label = strings.Replace(a.Label, r.old, r.new, -1)
			}
			if a.Label != oldLabel {
				count++
			}
			annotations[j] = a
		}
		e.Annotations = annotations
		mapped[i] = e
	}
	*data = mapped

	log.Printf("The label mappings changed %d labels", count)
	return nil
}
