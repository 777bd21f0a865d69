// netpong is a host-authoritative networked Pong: a WebSocket relay that
// pairs players and forwards their messages, and a terminal peer that plays
// locally or through the relay.
//
// Usage:
//
//	netpong serve                 - Run the relay (WebSocket, metrics, results API)
//	netpong play                  - Play in this terminal
//	netpong ssh                   - Serve the terminal peer over SSH
//	netpong results               - Show recent online match results
//
// Global flags:
//
//	--config <path>     - Server config (serve, ssh, results) or Pong tunables (play)
//	--db <path>         - Results database (default: ~/.netpong/netpong.db)
//	--log-level <lvl>   - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/netpong/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netpong",
	Short: "netpong - networked Pong in your terminal",
	Long: `netpong is a real-time Pong for two terminals. One peer hosts the
simulation, the other follows its snapshots, and a small relay server pairs
them up and forwards their messages.

Available commands:
  serve    - Run the WebSocket relay server
  play     - Play locally or against someone through a relay
  ssh      - Let players connect with plain ssh
  results  - Show recent online match results

Examples:
  netpong serve
  netpong play --mode vs_ai --difficulty hard
  netpong play --mode 1v1_online --url ws://localhost:8080/ws --name alice
  netpong ssh
  netpong results --limit 20`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the results database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(resultsCmd)
}

// loadServerConfig loads the layered server config and applies the global
// flag overrides.
func loadServerConfig() (*config.ServerConfig, error) {
	cfg, err := config.LoadServer(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDBPath != "" {
		cfg.Database.Path = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	return cfg, nil
}
