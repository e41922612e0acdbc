package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version версия сборки
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "autopay",
		Short:         "Autopay settlement batch processor",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to an optional config file (yaml, json, toml)")

	// Добавляем подкоманды
	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(runCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))
	rootCmd.AddCommand(tokenCmd(&configFile))

	return rootCmd
}
