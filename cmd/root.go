package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/frontdesk/internal/tracing"
)

var (
	version = "dev"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "frontdesk",
	Short: "Drive a desk registry from YAML scenarios",
	Long: `frontdesk runs declarative YAML scenarios against a keyed registration
desk: children check in, update, and check out under unique ids while
plugins and observers react. After the steps apply it prints the final
registry and, on request, the recorded activity trail.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: $HOME/.frontdesk.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"enable verbose desk operation logging")
	rootCmd.PersistentFlags().String("trace-exporter", "",
		"span exporter: none, stdout, file or otlp")
	rootCmd.PersistentFlags().String("trace-file", "",
		"output path for the file span exporter")
	rootCmd.PersistentFlags().String("otlp-endpoint", "",
		"collector endpoint for the otlp span exporter")
	rootCmd.PersistentFlags().Float64("sample-rate", 0,
		"fraction of traces to sample (default 1.0)")

	// Bind flags to viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("tracing.exporter", rootCmd.PersistentFlags().Lookup("trace-exporter"))
	_ = viper.BindPFlag("tracing.file_path", rootCmd.PersistentFlags().Lookup("trace-file"))
	_ = viper.BindPFlag("tracing.otlp_endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))
	_ = viper.BindPFlag("tracing.sample_rate", rootCmd.PersistentFlags().Lookup("sample-rate"))
}

func initConfig() {
	defaults := tracing.DefaultConfig()
	viper.SetDefault("debug", false)
	viper.SetDefault("tracing.exporter", defaults.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(home)
		viper.SetConfigName(".frontdesk")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FRONTDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; flags and env still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		}
	}

	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// tracingConfig assembles the exporter configuration from viper,
// falling back to defaults for unset values.
func tracingConfig() tracing.Config {
	cfg := tracing.DefaultConfig()
	if v := viper.GetString("tracing.exporter"); v != "" {
		cfg.Exporter = v
	}
	cfg.FilePath = viper.GetString("tracing.file_path")
	if v := viper.GetString("tracing.otlp_endpoint"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := viper.GetFloat64("tracing.sample_rate"); v > 0 {
		cfg.SampleRate = v
	}
	if v := viper.GetString("tracing.service_name"); v != "" {
		cfg.ServiceName = v
	}
	return cfg
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
