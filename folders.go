package detprep

// Classification-style folders: one subdirectory of images per class.

import (
	"log"
	"path/filepath"
)

// ClassFolders is a classification dataset discovered by FromFolders. Examples holds the images of
// each class, keyed by class id.
type ClassFolders struct {
	Vocabulary *Vocabulary
	Examples   map[int]Examples
}

// FromFolders discovers the classes and images under srcRoot. Every immediate subdirectory is a
// class; class ids follow the lexicographic order of the subdirectory names. Each image with an
// accepted extension becomes an example with a single whole-image annotation.
func FromFolders(srcRoot string) (*ClassFolders, error) {
	if !dirExists(srcRoot) {
		return nil, configErrorf(nil, "source root %q is not a directory", srcRoot)
	}

	classes, err := subdirsOf(srcRoot)
	if err != nil {
		return nil, configErrorf(err, "cannot list classes")
	}
	vocab, err := NewVocabulary(classes)
	if err != nil {
		return nil, err
	}
	log.Printf("Detected %d classes in %q", vocab.Len(), srcRoot)

	folders := &ClassFolders{Vocabulary: vocab, Examples: make(map[int]Examples, vocab.Len())}
	for id, class := range classes {
		images, err := filesByExtInDir(filepath.Join(srcRoot, class), imageExtensions...)
		if err != nil {
			return nil, err
		}

		examples := make(Examples, len(images))
		for i, path := range images {
			examples[i] = SourceExample{
				Annotations: []Annotation{{Label: class, WholeImage: true}},
				ImagePath:   path,
			}
		}
		folders.Examples[id] = examples
		log.Printf("Class %d %q: %d images", id, class, len(examples))
	}

	return folders, nil
}

// Split partitions every class independently, so each class is represented in every split in
// proportion. The per-class results are concatenated in class id order.
func (f *ClassFolders) Split(p Proportions, seed int64) map[Split]Examples {
	datasets := make(map[Split]Examples, len(Splits))
	for id := 0; id < f.Vocabulary.Len(); id++ {
		for s, examples := range f.Examples[id].Split(p, seed) {
			datasets[s] = append(datasets[s], examples...)
		}
	}
	return datasets
}
