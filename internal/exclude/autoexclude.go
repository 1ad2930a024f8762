// Package exclude provides automatic detection and exclusion of dependency directories.
package exclude

import (
	"os"
	"path/filepath"
	"strings"
)

// AutoExcludeResult contains the directories to exclude and why.
type AutoExcludeResult struct {
	// Directories to exclude (relative to project root)
	Directories []string
	// Reasons maps each directory to why it was excluded
	Reasons map[string]string
}

// DetectAutoExcludes scans the project root for dependency directories that
// should never be indexed. Only uses 100% confidence detection methods
// (marker file existence checks), so nested sub-projects are found too,
// e.g. services/billing/vendor/.
func DetectAutoExcludes(projectRoot string) *AutoExcludeResult {
	result := &AutoExcludeResult{
		Directories: []string{},
		Reasons:     make(map[string]string),
	}

	_ = filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't read
		}
		if path == projectRoot {
			return nil
		}

		relPath, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if contains(result.Directories, relPath) {
				return filepath.SkipDir
			}
			for _, excluded := range result.Directories {
				if strings.HasPrefix(relPath, excluded+string(filepath.Separator)) {
					return filepath.SkipDir
				}
			}

			// Never descend into dependency trees even before a marker
			// confirms them; they can hold tens of thousands of files.
			dirName := d.Name()
			if dirName == "vendor" || dirName == "node_modules" || dirName == "site-packages" {
				return filepath.SkipDir
			}

			return nil
		}

		dirPath := filepath.Dir(path)
		relDirPath, err := filepath.Rel(projectRoot, dirPath)
		if err != nil {
			return nil
		}

		switch d.Name() {
		case "composer.json":
			// PHP: vendor/ sibling if vendor/autoload.php exists
			vendorDir := filepath.Join(relDirPath, "vendor")
			if relDirPath == "." {
				vendorDir = "vendor"
			}
			absVendorAutoload := filepath.Join(projectRoot, vendorDir, "autoload.php")
			if fileExists(absVendorAutoload) && !contains(result.Directories, vendorDir) {
				result.Directories = append(result.Directories, vendorDir)
				result.Reasons[vendorDir] = "PHP Composer dependencies (vendor/autoload.php detected)"
			}

		case "pyvenv.cfg":
			// Python: the directory containing pyvenv.cfg is the venv
			venvDir := relDirPath
			if !contains(result.Directories, venvDir) {
				result.Directories = append(result.Directories, venvDir)
				result.Reasons[venvDir] = "Python virtual environment (pyvenv.cfg detected)"
			}

		case "package.json":
			// Frontend assets inside PHP projects: node_modules/ sibling
			nodeModulesDir := filepath.Join(relDirPath, "node_modules")
			if relDirPath == "." {
				nodeModulesDir = "node_modules"
			}
			absNodeModulesDir := filepath.Join(projectRoot, nodeModulesDir)
			if dirExists(absNodeModulesDir) && !contains(result.Directories, nodeModulesDir) {
				result.Directories = append(result.Directories, nodeModulesDir)
				result.Reasons[nodeModulesDir] = "Node.js dependencies (package.json detected)"
			}
		}

		return nil
	})

	return result
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// contains checks if a string is in a slice.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
