package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/remtav/stac-browser/config"
	"github.com/remtav/stac-browser/stac"
	"github.com/remtav/stac-browser/transport"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *transport.Transport

	// Command flags
	debug   bool
	retries int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stac-browser",
	Short: "Browse and download imagery from STAC APIs",
	Long: `stac-browser is a CLI tool to register STAC API endpoints, list their
collections, search items by area, time and cloud cover, and download
item assets.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.stac-browser/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "skip TLS certificate verification")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "retry failed requests N times")
}

// initializeApp loads the configuration and creates the shared transport
func initializeApp(cmd *cobra.Command, args []string) error {
	// Environment from .env, if any, before viper reads STAC_ variables
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command line overrides
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debug
	}
	if cmd.Flags().Changed("retries") {
		cfg.Retries = retries
	}

	logger = setupLogger(cfg.Logging)

	if cfg.Debug {
		logger.Warn().Msg("TLS certificate verification is disabled")
	}

	client = transport.New(logger, cfg.TransportOptions()...)
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, no colors when stderr is redirected
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// loadAPI builds the configured API with the given id
func loadAPI(id string) (*stac.API, error) {
	apiCfg, err := cfg.FindAPI(id)
	if err != nil {
		return nil, err
	}
	return stac.NewAPI(apiCfg.Document(), client, logger, cfg.APIOptions()...)
}
