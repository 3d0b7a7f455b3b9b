package outputproviders

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type MarkdownFileProvider struct {
	OutputPath string
}

func NewMarkdownFileProvider(outputPath string) *MarkdownFileProvider {
	return &MarkdownFileProvider{OutputPath: outputPath}
}

// Write appends a MarkdownTable to its file, so several tables can share one report.
func (fp *MarkdownFileProvider) Write(result Result) (string, error) {
	// Result.Data needs to be of type MarkdownTable for this provider to work
	table, ok := result.Data.(MarkdownTable)
	if !ok {
		return "", fmt.Errorf("incoming result 'Data' not of type MarkdownTable instead received %T", result.Data)
	}

	fullpath := GetFullPath(filename(result, "md"), fp.OutputPath)
	if err := ensureDir(fullpath); err != nil {
		return "", err
	}
	file, err := os.OpenFile(fullpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(RenderMarkdown(table)); err != nil {
		return "", err
	}
	slog.Debug("Markdown table written", "path", fullpath)
	return fullpath, nil
}

// RenderMarkdown formats a table with columns padded to their widest cell.
func RenderMarkdown(table MarkdownTable) string {
	var b strings.Builder

	// Write table heading if exists
	if table.TableHeading != "" {
		b.WriteString("# " + table.TableHeading + "\n\n")
	}

	// Dynamically determine column width
	colWidths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		colWidths[i] = len(header)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	headerRow := "|"
	dividerRow := "|"
	for i, header := range table.Headers {
		headerRow += fmt.Sprintf(" %-*s |", colWidths[i], header)
		dividerRow += fmt.Sprintf(" %s |", strings.Repeat("-", colWidths[i]))
	}
	b.WriteString(headerRow + "\n")
	b.WriteString(dividerRow + "\n")

	for _, row := range table.Rows {
		rowText := "|"
		for i := range table.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			rowText += fmt.Sprintf(" %-*s |", colWidths[i], cell)
		}
		b.WriteString(rowText + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
