package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/bubbletrans/internal/config"
	"github.com/MeKo-Tech/bubbletrans/internal/models"
	"github.com/MeKo-Tech/bubbletrans/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bubbletrans",
	Short: "Detect, read and translate comic speech bubbles",
	Long: `bubbletrans finds the speech bubbles on comic and manga pages, reads
their text with several recognition engines, picks the best reading per bubble
and translates it.

Examples:
  bubbletrans page page01.png --target en
  bubbletrans volume chapter1.pdf --pages 1-10 --format json
  bubbletrans serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersion(cmd)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for tests.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is bubbletrans.yaml in ., $XDG_CONFIG_HOME/bubbletrans, /etc/bubbletrans)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("models-dir", models.GetModelsDir(""),
		"directory containing ONNX models (also "+models.EnvModelsDir+")")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	bindRootFlags()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(cfg),
		})))
		return nil
	}
}

// loadDotEnv picks up OPENAI_API_KEY and BUBBLETRANS_* from a local .env file.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConfig loads the configuration once; flags bound to the global viper
// take precedence over file and environment values.
func GetConfig() (*config.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	cfg, err := GetConfigLoader().LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	globalConfig = cfg
	return cfg, nil
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoaderWithViper(viper.GetViper())
	}
	return configLoader
}

// resetConfig forgets the loaded configuration so the next command reloads it.
func resetConfig() {
	globalConfig = nil
	configLoader = nil
	cfgFile = ""
	viper.Reset()
	bindRootFlags()
}

func bindRootFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("models_dir", flags.Lookup("models-dir"))
}

func printVersion(cmd *cobra.Command) {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "bubbletrans", version.String())
}
