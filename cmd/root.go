package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/milare/google-instance-id/config"
	"github.com/milare/google-instance-id/instanceid"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *instanceid.Client

	// Global flag overrides
	apiKey       string
	baseURL      string
	outputFormat string
	logLevel     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "iid",
	Short: "Manage topic subscriptions of Instance ID registration tokens",
	Long: `iid is a CLI for the Google Instance ID server API. It subscribes and
unsubscribes registration tokens to topics and shows the details the service
holds for a single token.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "server API key (overrides config and IID_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "Instance ID API base URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (json or yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// initializeApp initializes the configuration and the client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command line flags win over config and environment
	if cmd.Flags().Changed("api-key") {
		cfg.InstanceID.APIKey = apiKey
	}
	if cmd.Flags().Changed("url") {
		cfg.InstanceID.URL = baseURL
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Format = outputFormat
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	opts, err := cfg.InstanceID.ClientOptions()
	if err != nil {
		return err
	}
	opts = append(opts, cfg.Batch.ClientOptions()...)

	client, err = instanceid.NewClient(cfg.InstanceID.APIKey, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Instance ID client: %w", err)
	}

	logger.Debug().Str("url", client.BaseURL()).Msg("Instance ID client ready")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
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

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !useColor(cfg.Color, os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// useColor resolves the logging.color setting for the given descriptor
func useColor(mode string, fd uintptr) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
