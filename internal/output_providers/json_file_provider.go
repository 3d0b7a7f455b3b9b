package outputproviders

import (
	"encoding/json"
	"log/slog"
	"os"
)

type JsonFileProvider struct {
	OutputPath string
}

func NewJsonFileProvider(outputPath string) *JsonFileProvider {
	return &JsonFileProvider{OutputPath: outputPath}
}

// Write encodes result.Data as indented JSON and returns the file written.
func (fp *JsonFileProvider) Write(result Result) (string, error) {
	fullpath := GetFullPath(filename(result, "json"), fp.OutputPath)
	if err := ensureDir(fullpath); err != nil {
		return "", err
	}

	file, err := os.Create(fullpath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result.Data); err != nil {
		return "", err
	}

	slog.Debug("JSON output written", "path", fullpath)
	return fullpath, nil
}
