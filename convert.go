package detprep

// Conversion entry points.

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

// DefaultManifestName is the manifest file name used when Config.ManifestPath is empty.
const DefaultManifestName = "data.yaml"

// Config holds everything a conversion run needs. It is passed explicitly to the entry points.
type Config struct {
	// VocabularyPath is the class list. It is required for box and YOLO sources. For folder
	// sources it is optional and, when given, must match the folder names.
	VocabularyPath string

	// Source is the input root: the class folders, or a directory with images/ and labels/.
	Source string

	// Output is the dataset root to write.
	Output string

	// ManifestPath is where the manifest is written; <Output>/data.yaml if empty.
	ManifestPath string

	Proportions Proportions
	Seed        int64

	// LabelMappings are old=new label substitutions applied to raw annotations before the
	// vocabulary lookup.
	LabelMappings []string
}

// Manifest returns the manifest path.
func (c Config) Manifest() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.Output, DefaultManifestName)
}

// Validate checks the configuration without touching the output.
func (c Config) Validate() error {
	if c.Source == "" {
		return configErrorf(nil, "missing source root")
	}
	if !dirExists(c.Source) {
		return configErrorf(nil, "source root %q is not a directory", c.Source)
	}
	if c.Output == "" {
		return configErrorf(nil, "missing output root")
	}
	if filepath.Clean(c.Source) == filepath.Clean(c.Output) {
		return configErrorf(nil, "the source and output roots cannot be identical")
	}
	return c.Proportions.Validate()
}

// Summary reports the outcome of a conversion run.
type Summary struct {
	Written    map[Split]int
	Background int // Written examples with an empty label.
	Skipped    int // Examples that could not be converted.
	Manifest   string
}

// Total is the number of examples written.
func (s Summary) Total() int {
	var n int
	for _, v := range s.Written {
		n += v
	}
	return n
}

func (s Summary) String() string {
	parts := make([]string, 0, len(Splits))
	for _, split := range Splits {
		parts = append(parts, fmt.Sprintf("%s=%d", split, s.Written[split]))
	}
	return fmt.Sprintf("wrote %d examples (%s), %d background, %d skipped; manifest %s",
		s.Total(), strings.Join(parts, " "), s.Background, s.Skipped, s.Manifest)
}

// ConvertFolders converts a classification dataset (one subdirectory per class) into the
// detection layout. Each class is split on its own; every image gets one whole-image box.
func ConvertFolders(cfg Config) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	folders, err := FromFolders(cfg.Source)
	if err != nil {
		return Summary{}, err
	}
	if cfg.VocabularyPath != "" {
		vocab, err := LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return Summary{}, err
		}
		if !vocab.Equal(folders.Vocabulary) {
			return Summary{}, configErrorf(nil,
				"vocabulary %q %v does not match the sorted class folders %v",
				cfg.VocabularyPath, vocab.Names(), folders.Vocabulary.Names())
		}
	}

	return writeDataset(cfg, folders.Vocabulary, folders.Split(cfg.Proportions, cfg.Seed))
}

// ConvertBoxes converts a directory with images/ and Pascal VOC labels/ into the detection
// layout. Boxes of classes outside the vocabulary are dropped.
func ConvertBoxes(cfg Config) (Summary, error) {
	return convertRaw(cfg, FromVOC)
}

// ConvertKitti converts a directory with images/ and KITTI labels/ into the detection layout.
// Boxes of classes outside the vocabulary are dropped.
func ConvertKitti(cfg Config) (Summary, error) {
	return convertRaw(cfg, FromKitti)
}

// ConvertYOLO copies a directory with images/ and already normalized labels/ into the detection
// layout.
func ConvertYOLO(cfg Config) (Summary, error) {
	return convertRaw(cfg, FromYOLO)
}

// convertRaw runs a conversion for sources laid out as <Source>/images and <Source>/labels,
// splitting all examples together.
func convertRaw(cfg Config, discover func(labelDir, imageDir string) (Examples, int, error)) (
	Summary, error) {

	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if cfg.VocabularyPath == "" {
		return Summary{}, configErrorf(nil, "missing vocabulary path")
	}
	vocab, err := LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return Summary{}, err
	}

	data, skipped, err := discover(filepath.Join(cfg.Source, labelsDirName),
		filepath.Join(cfg.Source, imagesDirName))
	if err != nil {
		return Summary{}, err
	}
	if err := data.MapLabels(cfg.LabelMappings); err != nil {
		return Summary{}, configErrorf(err, "invalid label mappings")
	}

	summary, err := writeDataset(cfg, vocab, data.Split(cfg.Proportions, cfg.Seed))
	summary.Skipped += skipped
	return summary, err
}

// writeDataset materializes the split examples and writes the manifest.
func writeDataset(cfg Config, vocab *Vocabulary, datasets map[Split]Examples) (
	summary Summary, err error) {

	w, err := NewDatasetWriter(Layout{Root: cfg.Output})
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = e
		}
	}()

	summary.Written = make(map[Split]int, len(Splits))
	for _, s := range Splits {
		for _, e := range datasets[s] {
			record, err := e.Label(vocab)
			if err != nil {
				log.Printf("Skipping %q: %v", e.ImagePath, err)
				summary.Skipped++
				continue
			}
			if err := w.Write(s, e.ImagePath, record); err != nil {
				return summary, err
			}
		}
		summary.Written[s] = w.Count(s)
		log.Printf("Wrote %d examples to %s", w.Count(s), s)
	}
	summary.Background = w.Backgrounds()

	summary.Manifest = cfg.Manifest()
	if err := WriteManifest(summary.Manifest, NewManifest(cfg.Output, vocab)); err != nil {
		return summary, err
	}

	return summary, nil
}
