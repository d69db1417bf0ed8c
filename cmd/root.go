package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  = logrus.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repo-analyzer",
	Short: "Analyze the structure and dependencies of GitHub repositories",
	Long: `repo-analyzer fetches a GitHub repository into a scratch directory and reports
its file tree, a Mermaid directory graph, its package.json dependencies and its README.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.repo-analyzer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("scratch-dir", "", "Directory repositories are fetched into (default is the system temp dir)")
	rootCmd.PersistentFlags().String("walker-on-error", "strict", "What to do with unreadable entries (strict, annotate)")
	rootCmd.PersistentFlags().StringSlice("exclude", nil, "Entry names to skip while walking (replaces the defaults)")
	rootCmd.PersistentFlags().String("git-binary", "git", "git executable used to fetch repositories")
	rootCmd.PersistentFlags().Duration("fetch-timeout", 5*time.Minute, "Maximum time a single fetch may take")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("scratch.dir", rootCmd.PersistentFlags().Lookup("scratch-dir"))
	_ = viper.BindPFlag("walker.on_error", rootCmd.PersistentFlags().Lookup("walker-on-error"))
	_ = viper.BindPFlag("walker.exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("fetch.git_binary", rootCmd.PersistentFlags().Lookup("git-binary"))
	_ = viper.BindPFlag("fetch.timeout", rootCmd.PersistentFlags().Lookup("fetch-timeout"))
}

// initConfig reads in a .env file, the config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".repo-analyzer")
	}

	// server.port becomes REPO_ANALYZER_SERVER_PORT
	viper.SetEnvPrefix("repo_analyzer")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	setupLogging()
}

func setupLogging() {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", viper.GetString("log.level"))
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// stdout carries command output, keep logs off it
	logger.SetOutput(os.Stderr)

	if viper.GetBool("log.json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// GetLogger returns the process-wide logger
func GetLogger() *logrus.Logger {
	return logger
}
