package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legalens/internal/cache"
	"github.com/ppiankov/legalens/internal/model"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk fetch cache",
	Long: `Manage cached documents, feeds and regulatory updates stored under
cache.dir (default: ~/.legalens/cache).`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pruneCache(cmd.OutOrStdout(), cfg.Cache, false)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pruneCache(cmd.OutOrStdout(), cfg.Cache, true)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func pruneCache(w io.Writer, c model.CacheConfig, all bool) error {
	if c.Dir == "" {
		fmt.Fprintln(w, "No cache directory configured")
		return nil
	}

	disk := cache.NewDiskCache(c.Dir, c.TTL)
	if all {
		if err := disk.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(w, "✓ Cleared cache: %s\n", c.Dir)
		return nil
	}

	removed, err := disk.Prune()
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	fmt.Fprintf(w, "✓ Removed %d expired entries from %s\n", removed, c.Dir)
	return nil
}
