package detprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyDataset creates the label and image directories of every split under a new root.
func emptyDataset(t *testing.T) Layout {
	t.Helper()
	l := Layout{Root: t.TempDir()}
	require.NoError(t, l.Prepare())
	return l
}

func TestValidateBadFieldCount(t *testing.T) {
	l := emptyDataset(t)
	path := l.LabelPath(Train, "a")
	writeTestFile(t, path, "0 0.5 0.5 0.2\n")

	report := Validate(l.Root, testVocabulary(t, "a", "b"), ValidateOptions{})
	require.Equal(t, 1, report.Count())
	assert.Equal(t, ValidationIssue{
		Kind:    IssueBadFormat,
		Path:    path,
		Line:    1,
		Message: "expected 5 fields, got 4",
	}, report.Issues[0])
	assert.Equal(t, 1, report.LabelFiles)
}

func TestValidateMissingDirectories(t *testing.T) {
	root := t.TempDir()

	report := Validate(root, testVocabulary(t, "a"), ValidateOptions{})
	require.Equal(t, 3, report.Count())
	for i, s := range Splits {
		assert.Equal(t, IssueMissingDir, report.Issues[i].Kind)
		assert.Equal(t, filepath.Join(root, "labels", string(s)), report.Issues[i].Path)
	}
}

func TestValidateClassIDs(t *testing.T) {
	l := emptyDataset(t)
	path := l.LabelPath(Val, "a")
	writeTestFile(t, path, "0 0.5 0.5 0.1 0.1\n1 0.5 0.5 0.1 0.1\n\n-1 0.5 0.5 0.1 0.1\nx 0.5 0.5 0.1 0.1\n")

	report := Validate(l.Root, testVocabulary(t, "only"), ValidateOptions{})

	var lines []int
	for _, issue := range report.Issues {
		assert.Equal(t, IssueBadClassID, issue.Kind)
		assert.Equal(t, path, issue.Path)
		lines = append(lines, issue.Line)
	}
	if diff := cmp.Diff([]int{2, 4, 5}, lines); diff != "" {
		t.Errorf("issue lines mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateEmptyLabels(t *testing.T) {
	l := emptyDataset(t)
	writeTestFile(t, l.LabelPath(Train, "listed"), "")
	writeTestFile(t, l.LabelPath(Train, "blank"), "\n  \n")
	writeTestFile(t, l.BackgroundListPath(), "labels/train/listed.txt\n")

	report := Validate(l.Root, testVocabulary(t, "a"), ValidateOptions{})
	require.Equal(t, 1, report.Count())
	assert.Equal(t, IssueEmptyLabel, report.Issues[0].Kind)
	assert.Equal(t, l.LabelPath(Train, "blank"), report.Issues[0].Path)
	assert.Equal(t, 2, report.LabelFiles)
}

func TestValidateCoordinates(t *testing.T) {
	l := emptyDataset(t)
	writeTestFile(t, l.LabelPath(Test, "a"),
		"0 0.5 0.5 0.2 0.2\n0 1.5 0.5 0.2 0.2\n0 0.5 nan? 0.2 0.2\n0 NaN 0.5 0.2 0.2\n0 0.5 0.5 Inf 0.2\n")

	report := Validate(l.Root, testVocabulary(t, "a"), ValidateOptions{})
	assert.True(t, report.OK(), report.String())

	report = Validate(l.Root, testVocabulary(t, "a"), ValidateOptions{CheckCoordinates: true})
	require.Equal(t, 4, report.Count(), report.String())
	var lines []int
	for _, issue := range report.Issues {
		assert.Equal(t, IssueBadCoordinate, issue.Kind)
		lines = append(lines, issue.Line)
	}
	if diff := cmp.Diff([]int{2, 3, 4, 5}, lines); diff != "" {
		t.Errorf("issue lines mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatePairsAndImages(t *testing.T) {
	l := emptyDataset(t)
	writeTestFile(t, l.LabelPath(Train, "good"), "0 0.5 0.5 0.2 0.2\n")
	writeTestPNG(t, filepath.Join(l.ImageDir(Train), "good.png"), 4, 4)
	writeTestFile(t, l.LabelPath(Train, "garbage"), "0 0.5 0.5 0.2 0.2\n")
	writeTestFile(t, filepath.Join(l.ImageDir(Train), "garbage.jpg"), "not a jpeg")
	writeTestFile(t, l.LabelPath(Train, "orphan"), "0 0.5 0.5 0.2 0.2\n")
	writeTestPNG(t, filepath.Join(l.ImageDir(Train), "unlabelled.png"), 2, 2)

	vocab := testVocabulary(t, "a")

	report := Validate(l.Root, vocab, ValidateOptions{})
	assert.True(t, report.OK(), report.String())

	report = Validate(l.Root, vocab, ValidateOptions{CheckPairs: true})
	require.Equal(t, 2, report.Count(), report.String())
	assert.Equal(t, IssueMissingImage, report.Issues[0].Kind)
	assert.Equal(t, l.LabelPath(Train, "orphan"), report.Issues[0].Path)
	assert.Equal(t, IssueMissingLabel, report.Issues[1].Kind)
	assert.Equal(t, filepath.Join(l.ImageDir(Train), "unlabelled.png"), report.Issues[1].Path)

	report = Validate(l.Root, vocab, ValidateOptions{CheckImages: true})
	require.Equal(t, 1, report.Count(), report.String())
	assert.Equal(t, IssueBadImage, report.Issues[0].Kind)
	assert.Equal(t, filepath.Join(l.ImageDir(Train), "garbage.jpg"), report.Issues[0].Path)
}

func TestValidateMissingImageDirectory(t *testing.T) {
	l := emptyDataset(t)
	require.NoError(t, os.RemoveAll(l.ImageDir(Val)))

	report := Validate(l.Root, testVocabulary(t, "a"), ValidateOptions{CheckPairs: true})
	require.Equal(t, 1, report.Count())
	assert.Equal(t, IssueMissingDir, report.Issues[0].Kind)
	assert.Equal(t, l.ImageDir(Val), report.Issues[0].Path)
}

func TestReportString(t *testing.T) {
	report := &Report{}
	assert.Equal(t, "No issues found.", report.String())

	report.add(IssueBadFormat, "labels/train/a.txt", 3, "expected %d fields, got %d", 5, 4)
	report.add(IssueMissingDir, "labels/val", 0, "missing label directory")
	assert.Equal(t, "bad-format: labels/train/a.txt line 3: expected 5 fields, got 4\n"+
		"missing-dir: labels/val: missing label directory\n"+
		"Found 2 issues.", report.String())
}
