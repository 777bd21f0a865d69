package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/storage"
)

var (
	flagLimit  int
	flagPlayer string
	flagScores string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show recent online match results",
	Long: `Print recorded online matches, newest first, from the results database.
With --scores it prints the local high-score table for a mode instead.

Examples:
  netpong results
  netpong results --limit 50
  netpong results --player alice
  netpong results --scores vs_ai`,
	Args: cobra.NoArgs,
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of rows to show")
	resultsCmd.Flags().StringVar(&flagPlayer, "player", "", "Only matches this player took part in")
	resultsCmd.Flags().StringVar(&flagScores, "scores", "", "Show high scores for a local mode instead")
}

func runResults(_ *cobra.Command, _ []string) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if flagScores != "" {
		return printScores(store)
	}

	var results []storage.OnlineMatchResult
	if flagPlayer != "" {
		results, err = store.PlayerMatchHistory(flagPlayer, flagLimit)
	} else {
		results, err = store.RecentOnlineMatches(flagLimit)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No online matches recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODE\tPLAYERS\tSCORE\tRESULT\tDURATION")
	for _, r := range results {
		result := r.EndReason
		if r.WinnerName != "" {
			result = fmt.Sprintf("%s (%s won)", r.EndReason, r.WinnerName)
		}
		fmt.Fprintf(w, "%s\t%s\t%s v %s\t%d-%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Mode,
			r.Player1Name, r.Player2Name,
			r.Score1, r.Score2,
			result,
			r.Duration.Round(time.Second),
		)
	}
	return w.Flush()
}

func printScores(store *storage.Store) error {
	mode, err := game.ParseMode(flagScores)
	if err != nil {
		return err
	}
	if mode.Online() {
		return fmt.Errorf("%s is an online mode; high scores are kept for local modes", mode)
	}

	scores, err := store.TopScores(mode, flagLimit)
	if err != nil {
		return err
	}

	fmt.Printf("High Scores - %s\n\n", mode.Title())
	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Printf("\nPlay 'netpong play --mode %s' to set the first high score!\n", mode)
		return nil
	}

	fmt.Printf("  %-4s  %-24s  %-6s  %s\n", "Rank", "Player", "Score", "Date")
	fmt.Printf("  %-4s  %-24s  %-6s  %s\n", "----", "------", "-----", "----")
	for i, s := range scores {
		fmt.Printf("  %-4d  %-24s  %-6d  %s\n", i+1, s.Player, s.Score, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	if best, err := store.HighScore(mode); err == nil {
		fmt.Printf("\nBest: %d\n", best)
	}
	return nil
}
