package parser

import (
	"fmt"
	"os"
	"strings"

	"docai/types"
)

// parseText extracts one unit per non-empty line.
func parseText(path string) (*types.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	units := make([]types.DocumentUnit, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		units = append(units, types.DocumentUnit{
			Content:  line,
			Position: i + 1,
			Metadata: map[string]any{"line": i + 1},
		})
	}

	return &types.ParsedDocument{
		Units: units,
		Metadata: map[string]any{
			"num_lines":   len(units),
			"total_lines": len(lines),
			"file_size":   len(data),
		},
		FilePath: path,
		Format:   "txt",
	}, nil
}
