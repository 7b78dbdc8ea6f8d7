// Package cli implements the codegenius command line.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/codegenius/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codegenius",
	Short: "CodeGenius - structural summaries and documentation for source code",
	Long: `CodeGenius parses Python, JavaScript and TypeScript with tree-sitter and
reports the functions, classes and calls each file contains. It can turn a
local directory or a git repository into a Markdown document, and serve the
same pipeline over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.codegenius/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig sets up logging before any command runs.
func initConfig() {
	log.SetOutput(os.Stderr)
	if viper.GetBool("verbose") {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		log.SetFlags(0)
	}
}

// loadConfig reads the --config file when given, otherwise
// .codegenius/config.yml in the working directory. Environment variables
// override either.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.NewFileLoader(path).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if viper.GetBool("verbose") {
		log.Printf("Configuration: workers=%d cache=%d max_files=%d",
			cfg.Analysis.Workers, cfg.Analysis.CacheSize, cfg.Analysis.MaxFiles)
	}
	return cfg, nil
}
