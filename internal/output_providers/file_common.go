package outputproviders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Result is one named document handed to an OutputProvider.
type Result struct {
	// Name is used for the default file name, e.g. "sync-summary".
	Name     string
	Filename string
	Data     any
}

// MarkdownTable is rendered by MarkdownFileProvider; other providers encode it as data.
type MarkdownTable struct {
	TableHeading string
	Headers      []string
	Rows         [][]string
}

type OutputProvider interface {
	Write(result Result) (string, error)
}

// GetFullPath constructs the full file path from filename and output path
func GetFullPath(filename string, outputPath string) string {
	return filepath.Join(outputPath, filename)
}

// GenerateShortUUID returns the first ten hex characters of a random UUID.
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// DefaultFileName is "<prefix>-<short id>.<ext>".
func DefaultFileName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, GenerateShortUUID(), ext)
}

func filename(r Result, ext string) string {
	if r.Filename != "" {
		return r.Filename
	}
	return DefaultFileName(r.Name, ext)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
