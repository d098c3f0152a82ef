// Package cmd implements the CLI commands for codecenginectl.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/streamforge/codecengine/internal/config"
	"github.com/streamforge/codecengine/internal/observability"
	"github.com/streamforge/codecengine/internal/version"
)

// cliViper is a separate viper instance for codecenginectl configuration.
var cliViper = viper.New()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "codecenginectl",
	Short:   "Operator harness for the codec engine",
	Version: version.Short(),
	Long: `codecenginectl is a CLI-only harness around the codec engine's
internal packages: it probes a media file's codec parameters via ffprobe,
or drives a VideoDecoder end to end over a file's elementary stream,
reporting frame/flush/close lifecycle events to stderr as structured logs.

It is not a scripting-language binding for the engine — embedders should
link pkg/webcodec directly.

Configuration is primarily via environment variables:
  CODECENGINE_FFMPEG_BINARY_PATH  - Path to the ffmpeg binary (auto-detected if unset)
  CODECENGINE_FFMPEG_PROBE_PATH   - Path to the ffprobe binary (auto-detected if unset)
  CODECENGINE_LOGGING_LEVEL       - Log level (debug, info, warn, error)
  CODECENGINE_LOGGING_FORMAT      - Log format (text, json)`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
	rootCmd.PersistentFlags().String("ffmpeg-path", "", "path to the ffmpeg binary (auto-detected if unset)")
	rootCmd.PersistentFlags().String("ffprobe-path", "", "path to the ffprobe binary (auto-detected if unset)")

	mustBindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	mustBindPFlag("ffmpeg.binary_path", rootCmd.PersistentFlags().Lookup("ffmpeg-path"))
	mustBindPFlag("ffmpeg.probe_path", rootCmd.PersistentFlags().Lookup("ffprobe-path"))
}

// mustBindPFlag binds a cliViper key to a cobra flag and panics if binding
// fails, which only happens for a programmer error (unknown flag name).
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := cliViper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}

// initConfig reads environment variables for codecenginectl configuration.
func initConfig() {
	cliViper.SetEnvPrefix("CODECENGINE")
	cliViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	cliViper.AutomaticEnv()
	config.SetDefaults(cliViper)
}

// initLogging configures the slog default logger for the CLI.
func initLogging() error {
	logCfg := config.LoggingConfig{
		Level:  strings.ToLower(cliViper.GetString("logging.level")),
		Format: strings.ToLower(cliViper.GetString("logging.format")),
	}
	if logCfg.Level == "warning" {
		logCfg.Level = "warn"
	}

	logger := observability.NewLoggerWithWriter(logCfg, os.Stderr)
	observability.SetDefault(logger)

	return nil
}

// ffmpegPaths resolves the ffmpeg/ffprobe binary paths from flags or
// CODECENGINE_FFMPEG_* env/config, falling back to PATH lookup.
func ffmpegPaths(_ *cobra.Command) (ffmpegPath, ffprobePath string) {
	return cliViper.GetString("ffmpeg.binary_path"), cliViper.GetString("ffmpeg.probe_path")
}
