// Package main provides the lightweight entry point for the onco-tier MCP
// server. This version requires no external databases: evidence is cached in
// memory and assessment history persisted to SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/onco-tier-server/internal/config"
	"github.com/onco-tier-server/internal/mcp"
)

func main() {
	// Load lightweight configuration from environment variables
	cfg := config.LoadLiteConfig()

	log.Printf("Starting onco-tier MCP server")
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create MCP server
	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start MCP server over stdio
	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("onco-tier MCP server stopped")
}
