package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the document to an MCP client over stdio",
	Long: `Serve the portfolio document over the Model Context Protocol on stdin/stdout.
Edits made through MCP tools are published when the owner is signed in on this device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

		env := openClientEnv(cfg.Cache.Dir, cfg.Remote.BaseURL, cfg.Remote.Timeout)
		env.profile.Start(cmd.Context())

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Profile: env.profile,
			Session: env.gate,
			Version: version,
		})
		slog.Info("MCP server started (stdio transport)")
		err = server.NewStdioServer(mcpSrv).Listen(cmd.Context(), os.Stdin, os.Stdout)

		env.profile.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}
