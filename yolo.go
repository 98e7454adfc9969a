package detprep

// Sources that already carry normalized "<id> <cx> <cy> <w> <h>" labels.

import (
	"fmt"
	"os"
)

// FromYOLO matches the label files (*.txt) in labelDir by base name to the images in imageDir. The
// labels are parsed and later re-emitted unchanged in meaning. Images without a label file become
// background examples; unparsable label files are logged and skipped together with their image
// and counted in the returned skip count.
func FromYOLO(labelDir, imageDir string) (Examples, int, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".txt", imageDir,
		func(labelPath, _ string) (SourceExample, error) {
			record, err := parseYOLOFile(labelPath)
			if err != nil {
				return SourceExample{}, err
			}
			return SourceExample{Normalized: record}, nil
		})
}

// parseYOLOFile reads a label file. The result is non-nil, even for an empty file, so that it
// takes precedence over raw annotations.
func parseYOLOFile(path string) (record LabelRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	record, err = ReadLabelRecord(f)
	if err != nil {
		return nil, &MalformedAnnotationError{Path: path, Msg: "invalid label", Err: err}
	}
	for i, b := range record {
		if !b.InUnitRange() {
			return nil, &MalformedAnnotationError{Path: path,
				Msg: fmt.Sprintf("box %d (%v) has coordinates outside [0, 1]", i, b)}
		}
	}
	if record == nil {
		record = LabelRecord{}
	}

	return record, nil
}
