package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetOutputPath generates an output path based on input path and options
func GetOutputPath(inputPath, outputOption string) (string, error) {
	if outputOption == "" {
		// Use input filename with .md extension
		base := filepath.Base(inputPath)
		ext := filepath.Ext(base)
		return strings.TrimSuffix(base, ext) + ".md", nil
	}

	// Check if outputOption is a directory
	info, err := os.Stat(outputOption)
	if err == nil && info.IsDir() {
		base := filepath.Base(inputPath)
		ext := filepath.Ext(base)
		return filepath.Join(outputOption, strings.TrimSuffix(base, ext)+".md"), nil
	}

	// Output is a specific file path
	return outputOption, nil
}

// RelativeRef returns the link target for fileName stored in dir, as seen
// from the Markdown file at outputPath. When dir is not below the output
// file's directory the bare file name is returned.
func RelativeRef(outputPath, dir, fileName string) string {
	if outputPath == "" {
		return fileName
	}

	outDir, err := filepath.Abs(filepath.Dir(outputPath))
	if err != nil {
		return fileName
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fileName
	}

	rel, err := filepath.Rel(outDir, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fileName
	}
	if rel == "." {
		return fileName
	}
	return "./" + filepath.ToSlash(filepath.Join(rel, fileName))
}
