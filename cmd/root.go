package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/axellelanca/shortlink/internal/config"
	"github.com/axellelanca/shortlink/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (create, run-server, stats, list) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "shortlink",
	Short: "A URL shortener application",
	Long: `A URL shortener application that allows you to create shortened URLs,
track click statistics, and monitor URL health.`,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// init() sets up the configuration initialization hook.
// IMPORTANT: We don't call RootCmd.AddCommand() directly here
// for commands like 'run-server', 'create', 'stats', 'list'.
// These commands register themselves via their own init() functions.
// This design allows for better modularity and prevents import cycles.
func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads the application configuration.
// This function is called at the beginning of every Cobra command execution
// thanks to `cobra.OnInitialize(initConfig)` set up above.
func initConfig() {
	// Load a .env file when one exists so local overrides reach viper's
	// AutomaticEnv; a missing file is the normal case and not an error.
	if err := godotenv.Load(); err == nil {
		log.Println(".env file loaded")
	}

	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v. Using default values.", err)
	}

	if Cfg != nil {
		logger.New(Cfg.App.Env, Cfg.App.LogLevel)
	}
}
