package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"docai/types"
)

// parseDocx extracts one unit per non-empty paragraph. A DOCX file is a zip
// archive; the text lives in word/document.xml as w:p paragraphs of w:t runs.
func parseDocx(path string) (*types.ParsedDocument, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer archive.Close()

	var document io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open document.xml: %w", err)
			}
			break
		}
	}
	if document == nil {
		return nil, fmt.Errorf("invalid docx file: word/document.xml missing")
	}
	defer document.Close()

	paragraphs, total, err := extractParagraphs(document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	units := make([]types.DocumentUnit, 0, len(paragraphs))
	for i, p := range paragraphs {
		units = append(units, types.DocumentUnit{
			Content:  p,
			Position: i + 1,
			Metadata: map[string]any{"paragraph": i + 1},
		})
	}

	return &types.ParsedDocument{
		Units: units,
		Metadata: map[string]any{
			"num_paragraphs":   len(units),
			"total_paragraphs": total,
		},
		FilePath: path,
		Format:   "docx",
	}, nil
}

// extractParagraphs walks the XML token stream collecting the text runs of
// each paragraph. Returns non-empty paragraphs and the total paragraph count.
func extractParagraphs(r io.Reader) ([]string, int, error) {
	decoder := xml.NewDecoder(r)

	var (
		paragraphs  []string
		current     strings.Builder
		inParagraph bool
		inText      bool
		total       int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					total++
					if text := strings.TrimSpace(current.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
				inParagraph = false
			}
		}
	}

	return paragraphs, total, nil
}
