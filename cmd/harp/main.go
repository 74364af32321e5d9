package main

import (
	"errors"
	"os"

	"github.com/hackutd/harp-sub000/internal/config"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	token      string
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "harp",
		Short: "Hackathon application review portal",
		Long: "harp serves the application review API and lets admins triage " +
			"their assigned reviews from the terminal.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "API server address (default: client.server from config)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "admin bearer token (default: client.token from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GlobalConfigPath(), "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(triageCmd())
	rootCmd.AddCommand(completedCmd())
	rootCmd.AddCommand(applicationsCmd())
	rootCmd.AddCommand(reviewsCmd())
	rootCmd.AddCommand(voteCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}
