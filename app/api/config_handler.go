package api

import (
	"docai/types"

	"github.com/gofiber/fiber/v2"
)

type ConfigHandler struct {
	cfg types.Config
}

func NewConfigHandler(cfg types.Config) *ConfigHandler {
	return &ConfigHandler{
		cfg: cfg,
	}
}

// HandleGetConfig exposes the active runtime settings. Secrets and connection
// strings stay out of the payload.
func (h *ConfigHandler) HandleGetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"embedding_provider": h.cfg.EmbeddingProvider,
		"llm_provider":       h.cfg.LLMProvider,
		"embedding_model":    h.cfg.EmbeddingModel,
		"llm_model":          h.cfg.LLMModel,
		"vector_store":       h.cfg.VectorStore,
		"collection_name":    h.cfg.CollectionName,
		"top_k":              h.cfg.TopK,
		"score_threshold":    h.cfg.ScoreThreshold,
		"max_history":        h.cfg.MaxHistory,
	})
}
