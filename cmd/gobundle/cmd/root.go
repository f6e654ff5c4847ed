// Package cmd implements the gobundle CLI: a thin cobra/viper front end
// over internal/bundle.Build, in the same command-tree shape as the
// rest of the corpus's cobra-based tools.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gobundle",
	Short: "Bundle a JavaScript/TypeScript module graph into a set of chunks",
	Long: `gobundle resolves a module graph from one or more entry points, links
cross-module bindings, tree-shakes unused exports, splits the result into
chunks, and writes the finalized JavaScript.`,
}

// Execute adds all child commands to the root command and runs it. This
// is called by main.main(); it only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gobundle.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("gobundle")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

func absOrSame(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
