package detprep

// The ordered class vocabulary.

import (
	"log"
	"strconv"
	"strings"
)

// ClassEntry pairs a class id with its name. The id equals the position in the vocabulary.
type ClassEntry struct {
	ID   int
	Name string
}

// Vocabulary is the ordered, read-only list of class names. It is loaded once per run and is the
// only source of class ids.
type Vocabulary struct {
	names []string
	ids   map[string]int
}

// NewVocabulary creates a vocabulary from names, in order. It fails if names is empty or contains
// duplicates.
func NewVocabulary(names []string) (*Vocabulary, error) {
	if len(names) == 0 {
		return nil, &ConfigError{Msg: "empty class list", Err: ErrNoClasses}
	}

	v := &Vocabulary{
		names: make([]string, len(names)),
		ids:   make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, dup := v.ids[name]; dup {
			return nil, configErrorf(ErrDuplicateClass, "class %q at line %d", name, i+1)
		}
		v.names[i] = name
		v.ids[name] = i
	}

	return v, nil
}

// LoadVocabulary reads the class list at path: one class per line, blank lines skipped, lines
// trimmed. A "<prefix>:<name>" line contributes <name> only and is skipped if <name> is empty. The
// prefix is not checked against the position of the line; a numeric prefix that disagrees with it
// is logged and otherwise ignored.
func LoadVocabulary(path string) (*Vocabulary, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, configErrorf(err, "cannot load the class vocabulary")
	}

	names := parseVocabularyLines(lines)
	if len(names) == 0 {
		return nil, configErrorf(ErrNoClasses, "vocabulary %q", path)
	}

	return NewVocabulary(names)
}

func parseVocabularyLines(lines []string) []string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if i := strings.Index(line, ":"); i >= 0 {
			prefix := strings.TrimSpace(line[:i])
			line = strings.TrimSpace(line[i+1:])
			if line == "" {
				log.Printf("Skipping class entry %q without a name", prefix+":")
				continue
			}
			if id, err := strconv.Atoi(prefix); err == nil && id != len(names) {
				log.Printf("Class %q is declared with id %d but loaded at position %d", line, id,
					len(names))
			}
		}
		names = append(names, line)
	}

	return names
}

// Len is the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.names)
}

// Names returns a copy of the class names in id order.
func (v *Vocabulary) Names() []string {
	return append([]string(nil), v.names...)
}

// Name returns the class name for id, or "" if id is out of range.
func (v *Vocabulary) Name(id int) string {
	if id < 0 || id >= len(v.names) {
		return ""
	}
	return v.names[id]
}

// ID returns the id of the named class.
func (v *Vocabulary) ID(name string) (int, bool) {
	id, ok := v.ids[name]
	return id, ok
}

// Entries returns the vocabulary as id/name pairs in id order.
func (v *Vocabulary) Entries() []ClassEntry {
	entries := make([]ClassEntry, len(v.names))
	for i, name := range v.names {
		entries[i] = ClassEntry{ID: i, Name: name}
	}
	return entries
}

// Equal reports whether both vocabularies hold the same names in the same order.
func (v *Vocabulary) Equal(other *Vocabulary) bool {
	if v == nil || other == nil {
		return v == other
	}
	if len(v.names) != len(other.names) {
		return false
	}
	for i := range v.names {
		if v.names[i] != other.names[i] {
			return false
		}
	}
	return true
}
