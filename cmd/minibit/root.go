// Package minibit wires the command-line interface: flags, configuration
// binding and the node run loop.
package minibit

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "minibit",
	Short: "A single-node proof-of-work ledger",
	Long: `Minibit mines blocks of signed transactions, chains them by hash and
persists them to an embedded key-value store. The wallet subsystem creates
and signs transactions against Base58Check addresses.`,
}

// Execute runs the root command. It is the only place the process exits
// with a failure code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db-path", "minibit.db", "Path to the ledger database file")
	flags.String("keys-file", "keys.txt", "Path to the wallet private key file")
	flags.Int("difficulty", 2, "Proof-of-work difficulty in leading zero hex digits")
	flags.Float64("reward", 50.0, "Block reward paid to the miner")
	flags.String("metrics-addr", "", "Listen address for the Prometheus metrics endpoint (disabled when empty)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	if err := viper.BindPFlags(flags); err != nil {
		slog.Error("Failed to bind flags", "error", err)
		os.Exit(1)
	}

	viper.SetEnvPrefix("MINIBIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(startCmd)
}

func setupLogging() {
	var level slog.Level
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
