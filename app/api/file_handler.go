package api

import (
	"fmt"
	"os"
	"path/filepath"

	"docai/rag"

	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	service   *rag.Service
	uploadDir string
}

func NewFileHandler(service *rag.Service, uploadDir string) *FileHandler {
	return &FileHandler{
		service:   service,
		uploadDir: uploadDir,
	}
}

// HandleUpload saves the uploaded file into the upload directory and runs it
// through the ingestion pipeline. The saved file is kept either way so a
// failed ingestion can be retried without re-uploading.
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	filename := filepath.Base(fileHeader.Filename)
	path := filepath.Join(h.uploadDir, filename)
	if err := c.SaveFile(fileHeader, path); err != nil {
		return fmt.Errorf("failed to save uploaded file: %w", err)
	}

	result := h.service.IngestDocument(c.Context(), path, filename)
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	return c.JSON(result)
}
