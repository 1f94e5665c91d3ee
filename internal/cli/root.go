package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x6d61/rawget/internal/config"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// NewRootCmd builds the complete command tree. Each call returns fresh
// flag state.
func NewRootCmd() *cobra.Command {
	d := config.Defaults()

	rootCmd := &cobra.Command{
		Use:   "rawget",
		Short: "Minimal HTTP/1.1 GET over a raw TCP socket",
		Long: `rawget - Minimal HTTP/1.1 GET over a raw TCP socket

Sends a literal GET request to host:port, reads until the peer closes the
connection, and splits the raw bytes into status code, headers and body.
No HTTP client library is involved, so what you see is what the server sent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Config flags
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("env-file", "", "Dotenv file to load (default .env)")
	rootCmd.PersistentFlags().String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", d.Format, "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Print progress to stderr")

	// History flags
	rootCmd.PersistentFlags().String("history-store", d.HistoryStore, "History backend (sqlite, bbolt, none)")
	rootCmd.PersistentFlags().String("history-path", d.HistoryPath, "History database file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rawget %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadConfig resolves the configuration for cmd from its flags, the
// environment and the optional config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(config.Options{
		EnvFile:    envFile,
		ConfigFile: cfgFile,
		Flags:      cmd.Flags(),
	})
}

// progressf prints a "[*]" progress line to stderr when -v was given.
func progressf(cmd *cobra.Command, format string, args ...any) {
	if verbose, _ := cmd.Flags().GetCount("verbose"); verbose > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "[*] "+format+"\n", args...)
	}
}
