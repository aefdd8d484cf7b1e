package server

import (
	"context"
	"log/slog"

	"docai/app/api"
	"docai/app/middleware"
	"docai/loader"
	"docai/model"
	"docai/rag"
	"docai/store"
	"docai/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024,
}

type Server struct {
	cfg    types.Config
	logger *slog.Logger

	app         *fiber.App
	stopWatcher context.CancelFunc
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	if s.stopWatcher != nil {
		s.stopWatcher()
	}
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
		}
	}
	s.logger.Info("server stopped")
}

func (s *Server) Run() error {
	ctx := context.Background()

	embedder, err := model.NewEmbedder(s.cfg)
	if err != nil {
		return err
	}
	llm, err := model.NewLLM(s.cfg)
	if err != nil {
		return err
	}
	vectors, err := store.NewVectorStore(ctx, s.cfg)
	if err != nil {
		return err
	}

	service := rag.NewService(s.cfg, embedder, llm, vectors)
	if !service.Initialize(ctx) {
		s.logger.Warn("service initialized in degraded state, some checks failed")
	}

	if s.cfg.WatchDir != "" {
		watcher, err := loader.NewWatcher(s.cfg, service)
		if err != nil {
			return err
		}
		watchCtx, cancel := context.WithCancel(ctx)
		s.stopWatcher = cancel
		go watcher.Run(watchCtx)
	}

	var (
		app           = fiber.New(config)
		chatHandler   = api.NewChatHandler(service)
		fileHandler   = api.NewFileHandler(service, s.cfg.UploadDir)
		checkHandler  = api.NewCheckHandler(service)
		configHandler = api.NewConfigHandler(s.cfg)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	app.Use(middleware.RequestLogger())

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/documents", fileHandler.HandleUpload)
	apiv1.Delete("/documents", chatHandler.HandleClearDocuments)
	apiv1.Get("/stats", chatHandler.HandleStats)
	apiv1.Get("/config", configHandler.HandleGetConfig)
	apiv1.Get("/history/:session", chatHandler.HandleHistory)
	apiv1.Delete("/history/:session", chatHandler.HandleClearHistory)

	s.app = app

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}
