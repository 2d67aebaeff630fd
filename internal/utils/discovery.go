package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiscoverImages expands the given paths into image files. Directories
// contribute the supported images they contain (and, when recursive, those
// of their subdirectories); files are passed through unless excluded.
// Patterns are matched against the base name with filepath.Match.
func DiscoverImages(args []string, recursive bool, include, exclude []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if selected(arg, include, exclude) {
				files = append(files, arg)
			}
			continue
		}

		found, err := discoverInDirectory(arg, recursive, include, exclude)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	return files, nil
}

func discoverInDirectory(dir string, recursive bool, include, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSupportedImage(path) && selected(path, include, exclude) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// selected applies exclude patterns first; an empty include list admits everything else.
func selected(path string, include, exclude []string) bool {
	if matchesAny(path, exclude) {
		return false
	}
	return len(include) == 0 || matchesAny(path, include)
}

func matchesAny(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
