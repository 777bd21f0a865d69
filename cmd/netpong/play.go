package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/netpong/internal/config"
	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/platform/tui"
	"github.com/vovakirdan/netpong/internal/storage"
)

var (
	flagMode       string
	flagURL        string
	flagName       string
	flagDifficulty string
	flagFPS        int
	flagLogFile    string
	flagDumpConfig bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in this terminal",
	Long: `Play netpong in this terminal. Without --mode a menu lets you pick.

Local modes (1v1_local, 1v2_local, 2v1_local, 2v2_local, vs_ai) run the
whole match here. Online modes (1v1_online, ...) need --url and are matched
against another player asking for the same mode.

Controls:
  W/S, E/D       - Left paddles
  Up/Down, O/L   - Right paddles (or your own when playing alone)
  P              - Pause (local modes)
  Enter          - Find an opponent / rematch
  Esc            - Back to the menu
  Q/Ctrl+C       - Quit

Difficulty options (vs_ai):
  easy   - Slow CPU reactions
  normal - CPU starts at 30% and sharpens as the match goes on
  hard   - CPU starts sharp
  fixed  - No progression

Examples:
  netpong play --mode vs_ai --difficulty hard
  netpong play --dump-config > ~/.netpong/configs/pong.yaml
  netpong play --mode 2v2_local
  netpong play --url ws://localhost:8080/ws --name alice
  netpong play --mode 1v1_online --url ws://pong.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagMode, "mode", "", "Start this mode directly, skipping the menu")
	playCmd.Flags().StringVar(&flagURL, "url", "", "Relay WebSocket URL (enables online modes)")
	playCmd.Flags().StringVar(&flagName, "name", "", "Player name (default: your user name)")
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard, fixed")
	playCmd.Flags().IntVar(&flagFPS, "fps", 60, "Redraw rate")
	playCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
	playCmd.Flags().BoolVar(&flagDumpConfig, "dump-config", false, "Print the default game tunables as YAML and exit")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	if flagDumpConfig {
		_, err := cmd.OutOrStdout().Write(config.DefaultPongYAML())
		return err
	}

	var mode game.Mode
	if flagMode != "" {
		m, err := game.ParseMode(flagMode)
		if err != nil {
			return err
		}
		if m.Online() && flagURL == "" {
			return fmt.Errorf("mode %s needs --url", m)
		}
		mode = m
	}

	preset, err := config.ParsePreset(flagDifficulty)
	if err != nil {
		return err
	}
	pong, err := config.LoadPong(flagConfig)
	if err != nil {
		return err
	}
	config.ApplyPongPreset(&pong, preset)

	logger, closeLog, err := playLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath := flagDBPath
	if dbPath == "" {
		dbPath = config.DefaultServerConfig().Database.Path
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open scores database: %v\n", err)
		// Continue without storage - the game still works
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width, height = w, h
	}

	opts := tui.AppOptions{
		Name:   playerName(),
		Pong:   pong,
		Store:  store,
		Logger: logger,
		FPS:    flagFPS,
		Mode:   mode,
		Width:  width,
		Height: height,
	}
	if flagURL != "" {
		opts.Connect = tui.WSConnector(flagURL, logger.WithPrefix("ws"))
	}

	return tui.Run(cmd.Context(), opts)
}

func playerName() string {
	if flagName != "" {
		return flagName
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// playLogger writes to --log-file. The terminal belongs to the game, so
// without a file nothing is logged.
func playLogger() (*log.Logger, func(), error) {
	if flagLogFile == "" {
		return logging.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file: %w", err)
	}
	level := flagLogLevel
	if level == "" {
		level = "info"
	}
	return logging.NewWithWriter(f, "netpong", level), func() { f.Close() }, nil
}
