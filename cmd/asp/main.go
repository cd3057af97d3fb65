// Command asp is the ASP CLI: resolve, install, build, run, explain,
// diff, list, doctor, and gc over a project's asp-targets.toml against a
// git-backed space registry (spec §6 "CLI surface").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentspaces/asp/internal/config"
	"github.com/agentspaces/asp/internal/logging"
)

var (
	flagAspHome  string
	flagRegistry string
	flagVerbose  bool

	cfg *config.Config

	// exitCode lets `run` report the invoked harness's own exit code
	// (spec §6 "run returns the harness exit code") instead of the
	// generic 0/1 every other subcommand uses.
	exitCode int

	rootCmd = &cobra.Command{
		Use:           "asp",
		Short:         "Compose and run portable agent spaces across coding-agent harnesses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAspHome, "asp-home", "", "override ASP_HOME (default ~/.asp)")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "path to the space registry's local git checkout")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	cobra.OnInitialize(initConfigAndLogging)
}

func initConfigAndLogging() {
	cfg = config.Load()
	if flagAspHome != "" {
		cfg.AspHome = flagAspHome
	}
	if flagRegistry != "" {
		cfg.Registry = flagRegistry
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	logging.Initialize(cfg.Verbose)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
