package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"docai/app/server"
	"docai/types"

	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as-is")
	}
}

func main() {
	cfg := types.ConfigFromEnv()
	s := server.NewServer(cfg)

	go func() {
		if err := s.Run(); err != nil {
			log.Fatal("failed to start server: ", err)
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}
