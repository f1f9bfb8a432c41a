package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions are the file types picked up when a directory is expanded.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// ExpandPaths replaces every directory in paths with the image files below
// it, in lexical order. Plain file paths are kept as given, whatever their
// extension, so that unreadable or misnamed inputs still surface as failures.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
	}
	return out, nil
}

// LoadFiles reads every path into a task named after its base name. A file
// that cannot be read yields a task carrying LoadErr.
func LoadFiles(paths []string) []ImageTask {
	tasks := make([]ImageTask, len(paths))
	for i, p := range paths {
		tasks[i].Filename = filepath.Base(p)
		raw, err := os.ReadFile(p)
		if err != nil {
			tasks[i].LoadErr = fmt.Errorf("failed to read image: %w", err)
			continue
		}
		tasks[i].RawBytes = raw
	}
	return tasks
}
