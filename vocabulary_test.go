package detprep

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	writeTestFile(t, path, "0:stop\n\n  1: give way  \nspeed limit 40\n\t\n7:no entry\n")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"stop", "give way", "speed limit 40", "no entry"}, v.Names())
	assert.Equal(t, 4, v.Len())
	for i, name := range v.Names() {
		id, ok := v.ID(name)
		assert.True(t, ok)
		assert.Equal(t, i, id, "id of %q", name)
		assert.Equal(t, name, v.Name(i))
	}
	assert.Equal(t, "", v.Name(4))
	assert.Equal(t, "", v.Name(-1))

	_, ok := v.ID("yield")
	assert.False(t, ok)
}

func TestLoadVocabularyKeepsTextAfterFirstColon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	writeTestFile(t, path, "a:b:c\n")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b:c"}, v.Names())
}

func TestLoadVocabularySkipsEmptyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	writeTestFile(t, path, "0:cat\n1:\n 2 :  \ndog\n")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, v.Names())

	writeTestFile(t, path, "0:\n")
	_, err = LoadVocabulary(path)
	assert.True(t, errors.Is(err, ErrNoClasses), "got %v", err)
}

func TestLoadVocabularyErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadVocabulary(filepath.Join(dir, "nope.txt"))
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), "got %v", err)
	})

	t.Run("no classes", func(t *testing.T) {
		path := filepath.Join(dir, "blank.txt")
		writeTestFile(t, path, "\n   \n\t\n")
		_, err := LoadVocabulary(path)
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), "got %v", err)
		assert.True(t, errors.Is(err, ErrNoClasses))
	})

	t.Run("duplicate", func(t *testing.T) {
		path := filepath.Join(dir, "dup.txt")
		writeTestFile(t, path, "cat\ndog\n2:cat\n")
		_, err := LoadVocabulary(path)
		assert.True(t, errors.Is(err, ErrDuplicateClass), "got %v", err)
	})
}

func TestVocabularyEntriesAndEqual(t *testing.T) {
	v := testVocabulary(t, "cat", "dog")
	assert.Equal(t, []ClassEntry{{0, "cat"}, {1, "dog"}}, v.Entries())

	assert.True(t, v.Equal(testVocabulary(t, "cat", "dog")))
	assert.False(t, v.Equal(testVocabulary(t, "dog", "cat")))
	assert.False(t, v.Equal(testVocabulary(t, "cat")))
	assert.False(t, v.Equal(nil))

	// Names returns a copy.
	names := v.Names()
	names[0] = "lion"
	assert.Equal(t, "cat", v.Name(0))
}

func TestSingleClassVocabulary(t *testing.T) {
	v := testVocabulary(t, "sign")
	assert.Equal(t, 1, v.Len())
	id, ok := v.ID("sign")
	assert.True(t, ok)
	assert.Equal(t, 0, id)
}
