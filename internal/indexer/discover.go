package indexer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zolll23/ragdoll/internal/exclude"
	"github.com/zolll23/ragdoll/internal/parser"
)

// excludedDirs are directory names never descended into during
// discovery, independent of auto-detection.
var excludedDirs = map[string]bool{
	"__pycache__":  true,
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"tests":        true,
	"test":         true,
	"data":         true,
	"migrations":   true,
	".venv":        true,
	"venv":         true,
	"env":          true,
	".ragdoll":     true,
}

// DiscoverFiles walks a project root and returns the relative paths of
// indexable source files in lexicographic order, so a resume pointer
// identifies a stable position in the list. Dependency directories
// detected by marker files (composer.json + vendor, etc.) are skipped
// alongside the fixed exclusion set and any extra directory names.
func DiscoverFiles(projectRoot string, extraExcludes ...string) ([]string, error) {
	autoExcluded := make(map[string]bool)
	for _, dir := range exclude.DetectAutoExcludes(projectRoot).Directories {
		autoExcluded[dir] = true
	}
	extra := make(map[string]bool, len(extraExcludes))
	for _, name := range extraExcludes {
		extra[name] = true
	}

	var files []string
	err := filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if excludedDirs[d.Name()] || extra[d.Name()] || strings.HasPrefix(d.Name(), ".") || autoExcluded[filepath.ToSlash(rel)] {
				return filepath.SkipDir
			}
			return nil
		}

		if !isIndexableFile(path) {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func isIndexableFile(path string) bool {
	base := filepath.Base(path)
	if base == "__init__.py" {
		return false
	}
	lang := parser.LanguageFromExtension(filepath.Ext(path))
	return lang == parser.Python || lang == parser.PHP
}

// HashFile returns the content hash used for change detection, or an
// empty string when the file cannot be read.
func HashFile(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return HashContent(data), data, nil
}
