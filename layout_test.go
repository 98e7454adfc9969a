package detprep

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "out"}
	assert.Equal(t, filepath.Join("out", "images", "val"), l.ImageDir(Val))
	assert.Equal(t, filepath.Join("out", "labels", "test"), l.LabelDir(Test))
	assert.Equal(t, filepath.Join("out", "labels", "train", "a.txt"), l.LabelPath(Train, "a"))
	assert.Equal(t, "images/train", l.RelImageDir(Train))
	assert.Equal(t, filepath.Join("out", "backgrounds.txt"), l.BackgroundListPath())
}

func TestDatasetWriter(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, filepath.Join(src, "a.jpg"), "a")
	writeTestFile(t, filepath.Join(src, "b.jpg"), "b")
	writeTestFile(t, filepath.Join(src, "c.png"), "c")

	l := Layout{Root: filepath.Join(t.TempDir(), "out")}
	w, err := NewDatasetWriter(l)
	require.NoError(t, err)

	box := LabelRecord{{ClassID: 1, CX: 0.5, CY: 0.5, W: 0.25, H: 0.25}}
	require.NoError(t, w.Write(Train, filepath.Join(src, "a.jpg"), box))
	require.NoError(t, w.Write(Val, filepath.Join(src, "b.jpg"), nil))
	require.NoError(t, w.Write(Test, filepath.Join(src, "c.png"), LabelRecord{}))
	require.NoError(t, w.Close())

	assert.Equal(t, 1, w.Count(Train))
	assert.Equal(t, 1, w.Count(Val))
	assert.Equal(t, 2, w.Backgrounds())

	assert.Equal(t, "1 0.500000 0.500000 0.250000 0.250000\n", readTestFile(t, l.LabelPath(Train, "a")))
	assert.Equal(t, "a", readTestFile(t, filepath.Join(l.ImageDir(Train), "a.jpg")))
	assert.Empty(t, readTestFile(t, l.LabelPath(Val, "b")))
	assert.Equal(t, "c", readTestFile(t, filepath.Join(l.ImageDir(Test), "c.png")))
	assert.NoDirExists(t, filepath.Join(l.Root, stagingDirName))

	assert.Equal(t, "labels/test/c.txt\nlabels/val/b.txt\n", readTestFile(t, l.BackgroundListPath()))
	backgrounds, err := l.ReadBackgroundList()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"labels/test/c.txt": true, "labels/val/b.txt": true}, backgrounds)
}

func TestDatasetWriterOverwrite(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, filepath.Join(src, "one", "x.jpg"), "first")
	writeTestFile(t, filepath.Join(src, "two", "x.jpg"), "second")

	l := Layout{Root: t.TempDir()}
	w, err := NewDatasetWriter(l)
	require.NoError(t, err)

	require.NoError(t, w.Write(Train, filepath.Join(src, "one", "x.jpg"), nil))
	require.NoError(t, w.Write(Train, filepath.Join(src, "two", "x.jpg"), LabelRecord{FullFrameBox(0)}))
	require.NoError(t, w.Close())

	assert.Equal(t, "second", readTestFile(t, filepath.Join(l.ImageDir(Train), "x.jpg")))
	assert.Equal(t, "0 0.5 0.5 1.0 1.0\n", readTestFile(t, l.LabelPath(Train, "x")))
	assert.Zero(t, w.Backgrounds())
	assert.Empty(t, readTestFile(t, l.BackgroundListPath()))
}

func TestDatasetWriterMissingImage(t *testing.T) {
	l := Layout{Root: t.TempDir()}
	w, err := NewDatasetWriter(l)
	require.NoError(t, err)

	err = w.Write(Train, filepath.Join(t.TempDir(), "missing.jpg"), nil)
	assert.Error(t, err)
	assert.NoFileExists(t, l.LabelPath(Train, "missing"))
	require.NoError(t, w.Close())
}

func TestReadBackgroundListMissing(t *testing.T) {
	set, err := Layout{Root: t.TempDir()}.ReadBackgroundList()
	require.NoError(t, err)
	assert.Empty(t, set)
}
