package chart

import (
	"fmt"
	"os"
	"path/filepath"
)

// Format selects the export encoding.
type Format string

// Export formats
const (
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// WriteFile writes s to dir/name.<format> and returns the path.
func WriteFile(dir, name string, format Format, s *Series) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}

	path := filepath.Join(dir, name+"."+string(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(f, s)
	case FormatArrow:
		err = WriteArrow(f, s)
	default:
		err = fmt.Errorf("unknown chart format %q", format)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
