package detprep

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKittiAnnotation(t *testing.T) {
	a, err := parseKittiAnnotation("Car 0.00 0 -1.58 10.00 20.00 50.00 60.00 1.65 1.67 3.64 -0.65 1.71 46.70 -1.59")
	require.NoError(t, err)
	assert.Equal(t, Annotation{Label: "Car", Coords: [4]float64{10, 20, 50, 60}}, a)

	_, err = parseKittiAnnotation("Car 0 0 0 1 2 3")
	assert.Error(t, err)
	_, err = parseKittiAnnotation("Car 0 0 0 1 2 x 4")
	assert.Error(t, err)
}

func TestFromKitti(t *testing.T) {
	raw := t.TempDir()
	images := filepath.Join(raw, "images")
	labels := filepath.Join(raw, "labels")

	writeTestPNG(t, filepath.Join(images, "000001.png"), 100, 200)
	writeTestPNG(t, filepath.Join(images, "000002.png"), 10, 10)
	writeTestPNG(t, filepath.Join(images, "000003.png"), 10, 10)
	writeTestFile(t, filepath.Join(labels, "000001.txt"),
		"Car 0.00 0 0.00 10 20 50 60 0 0 0 0 0 0 0\n\nDontCare -1 -1 -10 0 0 5 5 -1 -1 -1 -1000 -1000 -1000 -10\n")
	writeTestFile(t, filepath.Join(labels, "000003.txt"), "Car 0 0 0 1 2\n")

	data, skipped, err := FromKitti(labels, images)
	require.NoError(t, err)

	// 000003 is malformed, 000002 has no labels.
	assert.Equal(t, 1, skipped)
	require.Len(t, data, 2)
	assert.Equal(t, 100.0, data[0].ImageWidth)
	assert.Equal(t, 200.0, data[0].ImageHeight)
	assert.Len(t, data[0].Annotations, 2)
	assert.Empty(t, data[1].Annotations)

	record, err := data[0].Label(testVocabulary(t, "Pedestrian", "Cyclist", "Truck", "Car"))
	require.NoError(t, err)
	require.Len(t, record, 1)
	assert.Equal(t, "3 0.300000 0.200000 0.400000 0.200000", record[0].String())
}

func TestParseKittiAnnotationsReportsLine(t *testing.T) {
	_, err := parseKittiAnnotations("x.txt", []string{"Car 0 0 0 1 2 3 4", "Car"})
	var malformed *MalformedAnnotationError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "x.txt", malformed.Path)
	assert.Contains(t, malformed.Error(), "line 2")
}
