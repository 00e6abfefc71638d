package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/regulatory"
	"github.com/ppiankov/legalens/internal/util"
	"github.com/ppiankov/legalens/internal/worker"
)

var (
	updatesJSON    bool
	updatesTimeout time.Duration
)

// updatesCmd represents the updates command
var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Fetch and list recent regulatory updates",
	Long: `Updates fetches the configured regulatory sources (RSS, Atom or HTML
pages), honoring robots.txt and per-host rate limits, and lists the newest
items. When every source fails the predefined updates are shown and the
command exits non-zero.

Example:
  legalens updates
  legalens updates --json
  LEGALENS_REGULATORY_SOURCES=https://www.finra.org/rss.xml legalens updates`,
	Args: cobra.NoArgs,
	RunE: runUpdates,
}

func init() {
	rootCmd.AddCommand(updatesCmd)

	updatesCmd.Flags().BoolVar(&updatesJSON, "json", false, "print updates as JSON")
	updatesCmd.Flags().DurationVar(&updatesTimeout, "timeout", time.Minute, "fetch timeout")
	updatesCmd.Flags().Bool("no-cache", false, "disable cache (force fresh fetch)")
}

func runUpdates(cmd *cobra.Command, args []string) error {
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), updatesTimeout)
	defer cancel()

	client := util.NewHTTPClient(cfg.HTTP)
	opts := []regulatory.Option{
		regulatory.WithHTTPClient(client),
		regulatory.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)),
		regulatory.WithCache(cache.New(cfg.Cache)),
		regulatory.WithLogger(logger),
	}
	if cfg.HTTP.RespectRobots {
		opts = append(opts, regulatory.WithRobots(util.NewRobotsChecker(client, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)))
	}

	updates, fetchErr := regulatory.NewClient(cfg, opts...).Fetch(ctx)
	if fetchErr != nil || len(updates) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ Could not fetch regulatory updates: %v\n", fetchErr)
		fmt.Fprintf(cmd.ErrOrStderr(), "  Showing predefined updates instead.\n\n")
		updates = model.FallbackUpdates()
	}

	if err := printUpdates(cmd.OutOrStdout(), updates, updatesJSON); err != nil {
		return err
	}
	if fetchErr != nil {
		return fmt.Errorf("fetch regulatory updates: %w", fetchErr)
	}
	return nil
}

func printUpdates(w io.Writer, updates []model.RegulatoryUpdate, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(updates)
	}

	for _, u := range updates {
		fmt.Fprintf(w, "• %s\n", u.Title)
		var meta []string
		if u.Source != "" {
			meta = append(meta, u.Source)
		}
		if u.Published != nil {
			meta = append(meta, u.Published.Format("2006-01-02"))
		}
		if u.Authority != "" {
			meta = append(meta, string(u.Authority))
		}
		if len(meta) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(meta, ", "))
		}
		if u.Link != "" {
			fmt.Fprintf(w, "  %s\n", u.Link)
		}
		if u.Description != "" {
			fmt.Fprintf(w, "  %s\n", u.Description)
		}
		fmt.Fprintln(w)
	}
	return nil
}
