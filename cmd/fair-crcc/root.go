package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crs4/fair-crcc/slide"
)

var (
	cfgFile string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fair-crcc",
	Short: "Utilities for FAIR CRCC whole-slide images",
	Long: `fair-crcc works with large pathology whole-slide images: it samples
random patches, generates thumbnails, converts slides to tiled BigTIFF,
and packages the surrounding workflow directory into an RO-Crate.

All pixel work is done by libvips. Its worker thread count follows the
VIPS_CONCURRENCY environment variable, defaulting to the number of cores.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fair-crcc.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fair-crcc")
	}

	viper.SetEnvPrefix("FAIRCRCC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogger() error {
	cfg := zap.NewDevelopmentConfig()
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	var err error
	logger, err = cfg.Build()
	return err
}

// withVips brackets fn with libvips startup and shutdown.
func withVips(fn func() error) error {
	slide.Startup(logger)
	defer slide.Shutdown()
	return fn()
}

// timed reports fn's wall time regardless of outcome.
func timed(fn func() error) error {
	start := time.Now()
	defer func() {
		logger.Info("run finished", zap.Duration("elapsed", time.Since(start)))
	}()
	return fn()
}
