package detprep

// The output directory layout and the per-example writer.

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	imagesDirName      = "images"
	labelsDirName      = "labels"
	stagingDirName     = ".staging"
	backgroundListName = "backgrounds.txt"
	labelFileExt       = ".txt"
)

// Layout describes the dataset tree under Root:
//
//	<Root>/images/{train,val,test}/*
//	<Root>/labels/{train,val,test}/*.txt
//	<Root>/backgrounds.txt
type Layout struct {
	Root string
}

// ImageDir is the image directory of split s.
func (l Layout) ImageDir(s Split) string {
	return filepath.Join(l.Root, imagesDirName, string(s))
}

// LabelDir is the label directory of split s.
func (l Layout) LabelDir(s Split) string {
	return filepath.Join(l.Root, labelsDirName, string(s))
}

// LabelPath is the label file for the image with the given stem in split s.
func (l Layout) LabelPath(s Split, stem string) string {
	return filepath.Join(l.LabelDir(s), stem+labelFileExt)
}

// RelImageDir is the image directory of split s relative to Root, with forward slashes.
func (l Layout) RelImageDir(s Split) string {
	return path.Join(imagesDirName, string(s))
}

// relLabelPath is the label file relative to Root, with forward slashes, as used in the
// background list.
func (l Layout) relLabelPath(s Split, stem string) string {
	return path.Join(labelsDirName, string(s), stem+labelFileExt)
}

// BackgroundListPath is the file listing the labels that are intentionally empty.
func (l Layout) BackgroundListPath() string {
	return filepath.Join(l.Root, backgroundListName)
}

// Prepare creates the image and label directories of all splits.
func (l Layout) Prepare() error {
	for _, s := range Splits {
		for _, dir := range []string{l.ImageDir(s), l.LabelDir(s)} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("cannot create %q: %w", dir, err)
			}
		}
	}
	return nil
}

// ReadBackgroundList returns the set of background labels (paths relative to Root) recorded for
// the dataset. A missing list is an empty set.
func (l Layout) ReadBackgroundList() (map[string]bool, error) {
	set := make(map[string]bool)
	f, err := os.Open(l.BackgroundListPath())
	if os.IsNotExist(err) {
		return set, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			set[line] = true
		}
	}
	return set, scanner.Err()
}

// DatasetWriter materializes examples in a Layout. Each example is first written to its own
// staging directory and then moved into place with two renames, so an interrupted run leaves at
// most the in-flight example incomplete. Re-running into a clean output directory recovers.
//
// A DatasetWriter is not safe for concurrent use.
type DatasetWriter struct {
	layout      Layout
	staging     string
	backgrounds map[string]bool
	written     map[string]bool
	counts      map[Split]int
}

// NewDatasetWriter prepares the layout directories and returns a writer for them.
func NewDatasetWriter(l Layout) (*DatasetWriter, error) {
	if err := l.Prepare(); err != nil {
		return nil, err
	}
	staging := filepath.Join(l.Root, stagingDirName)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("cannot create the staging directory: %w", err)
	}

	return &DatasetWriter{
		layout:      l,
		staging:     staging,
		backgrounds: make(map[string]bool),
		written:     make(map[string]bool),
		counts:      make(map[Split]int, len(Splits)),
	}, nil
}

// Write copies the image at imagePath unchanged into split s and writes its label. An empty
// record is written as an empty label file and recorded as a background image.
func (w *DatasetWriter) Write(s Split, imagePath string, record LabelRecord) (err error) {
	name := filepath.Base(imagePath)
	stem := stemOf(name)
	rel := w.layout.relLabelPath(s, stem)
	if w.written[rel] {
		log.Printf("Overwriting %q with the label for %q", rel, imagePath)
	}

	stage := filepath.Join(w.staging, uuid.NewString())
	if err := os.Mkdir(stage, 0755); err != nil {
		return err
	}
	defer func() {
		if e := os.RemoveAll(stage); e != nil && err == nil {
			err = e
		}
	}()

	stagedImage := filepath.Join(stage, name)
	if err := copyFile(stagedImage, imagePath); err != nil {
		return fmt.Errorf("cannot copy %q: %w", imagePath, err)
	}
	stagedLabel := filepath.Join(stage, stem+labelFileExt)
	if err := writeLabelFile(stagedLabel, record); err != nil {
		return fmt.Errorf("cannot write the label for %q: %w", imagePath, err)
	}

	if err := os.Rename(stagedLabel, w.layout.LabelPath(s, stem)); err != nil {
		return err
	}
	if err := os.Rename(stagedImage, filepath.Join(w.layout.ImageDir(s), name)); err != nil {
		return err
	}

	if len(record) == 0 {
		w.backgrounds[rel] = true
	} else {
		delete(w.backgrounds, rel)
	}
	w.written[rel] = true
	w.counts[s]++

	return nil
}

// Count is the number of examples written to split s.
func (w *DatasetWriter) Count(s Split) int {
	return w.counts[s]
}

// Backgrounds is the number of background images written.
func (w *DatasetWriter) Backgrounds() int {
	return len(w.backgrounds)
}

// Close writes the background list, replacing any previous one, and removes the staging
// directory.
func (w *DatasetWriter) Close() error {
	rels := make([]string, 0, len(w.backgrounds))
	for rel := range w.backgrounds {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	var b strings.Builder
	for _, rel := range rels {
		b.WriteString(rel)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(w.layout.BackgroundListPath(), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %w", w.layout.BackgroundListPath(), err)
	}

	return os.RemoveAll(w.staging)
}

// writeLabelFile writes record to path, one line per box.
func writeLabelFile(path string, record LabelRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(f, &err)

	bw := bufio.NewWriter(f)
	if _, err := record.WriteTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}
