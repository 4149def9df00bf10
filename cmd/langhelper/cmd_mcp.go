package main

import (
	"fmt"

	mcpserver "github.com/felixgeelhaar/langhelper/internal/mcp"
)

// cmdMCP starts the MCP server on stdio
func cmdMCP() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.newPractice()
	if err != nil {
		return fmt.Errorf("create practice service: %w", err)
	}

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Practice: svc,
		Source:   a.client,
		Saver:    a.newSaver(),
		Logger:   a.logger,
		Version:  Version,
	})

	ctx, cancel := signalContext()
	defer cancel()

	return mcpSrv.ServeStdio(ctx)
}
