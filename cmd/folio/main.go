package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Edit and publish a portfolio profile",
	Long: `folio keeps a portfolio profile document on this device and, when the
owner is signed in, publishes every edit to a folio server.

Run "folio serve" to host the document, then "folio login" on any device to edit it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", noColor, "disable colored output")

	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, editModeCmd)
	rootCmd.AddCommand(showCmd, setCmd, skillsCmd, itemCmd, editCmd, projectCmd, mediaCmd, documentCmd)
	rootCmd.AddCommand(uploadCmd, assetsCmd)
	rootCmd.AddCommand(mcpCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
