package detprep

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions are the accepted image file extensions, compared case-insensitively.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// hasExt reports whether the extension of name matches one of exts, ignoring case. An empty exts
// matches every name.
func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// filesByExtInDir returns the paths of all regular files (or symlinks) directly in dirPath whose
// extension matches one of exts, sorted by name. All files are returned if exts is empty.
func filesByExtInDir(dirPath string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", dirPath, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		mode := entry.Type()
		// Must be a regular file or a symlink and have a requested extension.
		if (!mode.IsRegular() && mode&os.ModeSymlink == 0) || !hasExt(entry.Name(), exts) {
			continue
		}
		files = append(files, filepath.Join(dirPath, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// subdirsOf returns the names of the immediate subdirectories of dirPath in lexicographic order.
func subdirsOf(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", dirPath, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)

	return dirs, nil
}

// stemOf is the file name of path without directory and extension.
func stemOf(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// mapFileNamesToPaths maps the base names of the given file paths, with the file type extensions
// stripped off, to the paths. When several files share a base name the first one wins.
func mapFileNamesToPaths(filePaths []string) map[string]string {
	mapping := make(map[string]string, len(filePaths))
	for _, path := range filePaths {
		stem := stemOf(path)
		if prev, dup := mapping[stem]; dup {
			log.Printf("Ignoring %q, which has the same name as %q", path, prev)
			continue
		}
		mapping[stem] = path
	}

	return mapping
}

// labelParserFn parses the label file at labelPath for the image at imagePath.
type labelParserFn func(labelPath, imagePath string) (SourceExample, error)

// parseLabelsWithOneToOneImages matches the label files in labelDir, with file extension
// labelFileExt (e.g. ".xml"), by stem to the images in imageDir and invokes parse on these path
// pairs. Images without a label file become background examples. A label file that cannot be
// parsed is logged and skipped together with its image; skipped counts these.
func parseLabelsWithOneToOneImages(labelDir, labelFileExt, imageDir string, parse labelParserFn) (
	data Examples, skipped int, err error) {

	images, err := filesByExtInDir(imageDir, imageExtensions...)
	if err != nil {
		return nil, 0, configErrorf(err, "cannot list images")
	}

	var labels map[string]string
	if dirExists(labelDir) {
		labelFiles, err := filesByExtInDir(labelDir, labelFileExt)
		if err != nil {
			return nil, 0, err
		}
		labels = mapFileNamesToPaths(labelFiles)
	} else {
		log.Printf("No label directory %q, all images are treated as background", labelDir)
	}
	log.Printf("Parsing labels for %d images", len(images))

	data = make(Examples, 0, len(images))
	for _, imagePath := range images {
		labelPath, found := labels[stemOf(imagePath)]
		if !found {
			data = append(data, SourceExample{ImagePath: imagePath})
			continue
		}

		example, err := parse(labelPath, imagePath)
		if err != nil {
			log.Printf("Error while parsing, skipping %q: %v", labelPath, err)
			skipped++
			continue
		}
		example.AnnotationPath = labelPath
		example.ImagePath = imagePath
		data = append(data, example)
	}

	return data, skipped, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %w", path, err)
	}

	return lines, nil
}

// copyFile copies the bytes of src to dst, replacing dst.
func copyFile(dst, src string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(in, &err)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(out, &err)

	_, err = io.Copy(out, in)
	return err
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
