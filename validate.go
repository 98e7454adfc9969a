package detprep

// Structural validation of a materialized dataset.

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ValidateOptions enables checks beyond the label format checks that always run.
type ValidateOptions struct {
	CheckCoordinates bool // Coordinates must parse as numbers in [0, 1].
	CheckPairs       bool // Every label needs an image with the same stem and vice versa.
	CheckImages      bool // Every image must decode.
}

// Report is the result of Validate.
type Report struct {
	Issues     []ValidationIssue
	LabelFiles int // The number of label files inspected.
}

// Count is the number of issues found.
func (r *Report) Count() int {
	return len(r.Issues)
}

// OK reports whether no issues were found.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

func (r *Report) add(kind IssueKind, path string, line int, format string, args ...interface{}) {
	r.Issues = append(r.Issues, ValidationIssue{
		Kind:    kind,
		Path:    path,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// String lists the issues followed by the summary line.
func (r *Report) String() string {
	if r.OK() {
		return "No issues found."
	}

	var b strings.Builder
	for _, issue := range r.Issues {
		b.WriteString(issue.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Found %d issues.", r.Count())
	return b.String()
}

// Validate inspects the label files of every split under root. It never stops early: each
// problem is recorded as an issue and the pass continues.
//
// An empty label file is an issue unless the dataset's background list names it; without that
// list an intentionally empty label cannot be told apart from a forgotten one.
func Validate(root string, vocab *Vocabulary, opts ValidateOptions) *Report {
	l := Layout{Root: root}
	report := &Report{}

	backgrounds, err := l.ReadBackgroundList()
	if err != nil {
		report.add(IssueUnreadable, l.BackgroundListPath(), 0, "%v", err)
		backgrounds = map[string]bool{}
	}

	for _, s := range Splits {
		labelDir := l.LabelDir(s)
		if !dirExists(labelDir) {
			report.add(IssueMissingDir, labelDir, 0, "missing label directory")
			continue
		}

		labelFiles, err := filesByExtInDir(labelDir, labelFileExt)
		if err != nil {
			report.add(IssueUnreadable, labelDir, 0, "%v", err)
			continue
		}
		for _, path := range labelFiles {
			report.LabelFiles++
			validateLabelFile(report, path, l.relLabelPath(s, stemOf(path)), backgrounds,
				vocab.Len(), opts)
		}

		if opts.CheckPairs || opts.CheckImages {
			validateImages(report, l, s, labelFiles, opts)
		}
	}

	return report
}

// validateLabelFile checks a single label file against the label format and the number of
// classes n.
func validateLabelFile(report *Report, path, rel string, backgrounds map[string]bool, n int,
	opts ValidateOptions) {

	data, err := os.ReadFile(path)
	if err != nil {
		report.add(IssueUnreadable, path, 0, "%v", err)
		return
	}

	if strings.TrimSpace(string(data)) == "" {
		if !backgrounds[rel] {
			report.add(IssueEmptyLabel, path, 0, "empty label")
		}
		return
	}

	for i, line := range strings.Split(string(data), "\n") {
		lineNo := i + 1
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != labelFieldCount {
			report.add(IssueBadFormat, path, lineNo, "expected %d fields, got %d",
				labelFieldCount, len(fields))
			continue
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			report.add(IssueBadClassID, path, lineNo, "class id %q is not an integer", fields[0])
		} else if id < 0 || id >= n {
			report.add(IssueBadClassID, path, lineNo, "class id %d outside [0, %d)", id, n)
		}

		if opts.CheckCoordinates {
			for _, field := range fields[1:] {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil || !inUnitRange(v) {
					report.add(IssueBadCoordinate, path, lineNo, "coordinate %q outside [0, 1]", field)
					break
				}
			}
		}
	}
}

// validateImages checks the image directory of split s against its label files.
func validateImages(report *Report, l Layout, s Split, labelFiles []string,
	opts ValidateOptions) {

	imageDir := l.ImageDir(s)
	if !dirExists(imageDir) {
		report.add(IssueMissingDir, imageDir, 0, "missing image directory")
		return
	}
	images, err := filesByExtInDir(imageDir, imageExtensions...)
	if err != nil {
		report.add(IssueUnreadable, imageDir, 0, "%v", err)
		return
	}

	if opts.CheckPairs {
		imagesByStem := mapFileNamesToPaths(images)
		labelsByStem := mapFileNamesToPaths(labelFiles)
		for _, path := range labelFiles {
			if _, ok := imagesByStem[stemOf(path)]; !ok {
				report.add(IssueMissingImage, path, 0, "no image with the same name in %s", imageDir)
			}
		}
		for _, path := range images {
			if _, ok := labelsByStem[stemOf(path)]; !ok {
				report.add(IssueMissingLabel, path, 0, "no label file in %s", l.LabelDir(s))
			}
		}
	}

	if opts.CheckImages {
		for _, path := range images {
			if err := verifyImage(path); err != nil {
				report.add(IssueBadImage, path, 0, "%v", err)
			}
		}
	}
}
