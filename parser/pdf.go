package parser

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"docai/types"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// parsePDF extracts one unit per non-empty page. pdfcpu validates the file
// up front so a corrupt upload fails before page-by-page extraction starts.
func parsePDF(path string) (*types.ParsedDocument, error) {
	if err := pdfapi.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("invalid pdf file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	numPages := reader.NumPage()
	units := make([]types.DocumentUnit, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		units = append(units, types.DocumentUnit{
			Content:  text,
			Position: i,
			Metadata: map[string]any{"page": i},
		})
	}

	return &types.ParsedDocument{
		Units: units,
		Metadata: map[string]any{
			"num_pages": numPages,
		},
		FilePath: path,
		Format:   "pdf",
	}, nil
}
